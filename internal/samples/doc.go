// Package samples builds evaluation data sets from chat logs in three stages:
// contexts cut from the logs, one question per context and query, then an
// answer per question from the text generator.
//
// Every stage reads and writes the same JSON layout:
//
//	{"samples": [{"id": "...", "query": "...", "context": "...", "answer": "..."}]}
package samples
