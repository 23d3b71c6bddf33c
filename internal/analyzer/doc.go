// Package analyzer reports how large the chunks of a set of chat logs are,
// which helps pick a granularity and overlap that fit the embedding model.
package analyzer
