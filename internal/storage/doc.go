// Package storage persists embedded conversation chunks in SQLite.
//
// A collection groups documents that share one embedding dimension. Each
// document holds a chunk's text, its source file, its window bounds and its
// vector. Documents are deduplicated per collection by content hash, so
// re-indexing the same files adds nothing.
//
// # Database Schema
//
// Tables:
//   - schema_version: applied migrations
//   - collections: name and vector dimension
//   - documents: chunk text, window bounds and the vector as a little-endian float32 blob
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage("chatcontext.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	coll, err := store.CreateCollection(ctx, "overlapped_conversations", 384)
//	added, err := store.AddChunks(ctx, coll.ID, docs)
//	results, err := store.SearchVector(ctx, coll.ID, query, 6, nil)
//
// # Build Modes
//
// The default build uses the pure Go modernc.org/sqlite driver. Building with
// the cgo_sqlite tag switches to github.com/mattn/go-sqlite3.
//
// Similarity is computed in Go with cosine distance over every document of
// the collection, which is adequate for chat histories of a few thousand chunks.
package storage
