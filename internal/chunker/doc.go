// Package chunker divides time-stamped chat logs into time windows for embedding
// and summarization.
//
// # Basic Usage
//
//	c := chunker.New(logger)
//	for chunk, err := range c.Chunk("chat.txt", scanner.Default(), types.GranularityWeek, 2) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Printf("%s - %s: %d lines\n",
//	        chunk.WindowStart.Format(time.DateOnly), chunk.WindowEnd.Format(time.DateOnly), len(chunk.Lines))
//	}
//
// # Windows
//
// Window boundaries come from calendar.BuildIntervals between the first and the
// last timestamp of the file. With an overlap of N days every interior boundary is
// widened by N days on both sides, so adjacent windows share the lines near their
// common edge. The outer edges of the first and last window stay on the file's own
// first and last timestamps.
//
// Chunk windows are inclusive on both ends. FirstChunk is a different operation:
// its single window is half-open and it stops reading at the first line past it.
//
// Lines without a timestamp (continuation lines, headers) are never part of a chunk.
package chunker
