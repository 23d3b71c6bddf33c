// Package scanner reads chat logs line by line and extracts the timestamp each
// line carries.
//
// A Pattern pairs a regular expression with exactly one capture group and a
// strftime-style date format:
//
//	p, err := scanner.Compile(`\[(\d{1,2}/\d{1,2}/\d{2}), [^\]]+\]`, "%d/%m/%y")
//	first, last, err := scanner.Bounds("chat.txt", p)
//
// Lines without a match carry no timestamp. A match whose captured text does not
// parse against the format is returned as a *ParseError; it is never skipped.
//
// Every pass opens the file, reads it sequentially and closes it before
// returning, including early stops and error paths.
package scanner
