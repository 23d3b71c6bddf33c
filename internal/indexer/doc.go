// Package indexer loads chat logs into the retriever.
//
// Each file is cut into overlapping time windows by the chunker. Empty windows
// are dropped, the rest are optionally normalized and then embedded and stored
// through the retriever.
//
// # Basic Usage
//
//	idx := indexer.New(r, normalizer.Default(), indexer.DefaultConfig(), logger)
//
//	stats, err := idx.IndexFiles(ctx, []string{"chats/", "extra/team.txt"})
//
//	fmt.Printf("Indexed %d files, %d chunks in %v\n",
//	    stats.FilesIndexed, stats.ChunksAdded, stats.Duration)
//
// Directories are walked for .txt files. Files are processed concurrently,
// bounded by Config.Workers.
//
// # Failures
//
// A file without timestamps, a missing file or an unparseable date fails that
// file only. The failure is logged and appended to Statistics.ErrorMessages and
// the run continues.
//
// # Incremental Indexing
//
// The indexer remembers the SHA-256 of every file it indexed. Running it again
// over an unchanged file skips it. A changed file replaces everything stored
// for its path, so windows cut from the old content stop showing up in search.
package indexer
