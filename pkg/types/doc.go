// Package types provides shared type definitions for chatcontext.
//
// This package defines the domain types used across the chunking engine and the
// retrieval layer: granularities, time-windowed chunks, search results and the
// sentinel errors the calendar, scanner and chunker return.
//
// # Granularity
//
// A Granularity is the unit used to partition a chat log into windows:
//
//	g, err := types.ParseGranularity("week")
//	if err != nil {
//	    // errors.Is(err, types.ErrInvalidGranularity)
//	}
//
// # Chunks
//
// A Chunk is a window of a chat log together with the lines that fell inside it:
//
//	chunk := types.Chunk{
//	    Source:      "chats/team.txt",
//	    Index:       0,
//	    WindowStart: start,
//	    WindowEnd:   end,
//	    Lines:       []string{"[23/2/25, 14:28:56] David: Ok"},
//	}
//	text := chunk.Text() // lines joined with a trailing newline
//
// WindowStart <= WindowEnd always holds for chunks produced by the chunker.
//
// # Errors
//
// Callers match domain failures with errors.Is:
//
//	if errors.Is(err, types.ErrNoTimestampFound) {
//	    // skip this file, continue the batch
//	}
package types
