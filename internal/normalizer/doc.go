// Package normalizer removes noise such as timestamp prefixes and links from chat
// text before it is embedded or summarized.
//
// Patterns are named and kept in an ordered map, so they are always applied in the
// order they were configured.
package normalizer
