// Package embedder generates vector embeddings for chat chunks.
//
// Two providers implement Embedder:
//
//   - openai: any OpenAI-compatible embeddings API through go-openai, with
//     retry and exponential backoff for rate limits and server errors
//   - local: an offline bag-of-words hashing embedder, deterministic and
//     dependency free, used by default and in tests
//
// # Basic Usage
//
//	emb, err := embedder.New(embedder.FromConfig(cfg.Embedding))
//	if err != nil {
//	    return err
//	}
//	defer emb.Close()
//
//	resp, err := emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{
//	    Texts: []string{chunk.Text()},
//	})
//
// A single GenerateBatch call accepts at most MaxBatchSize texts; use Batches
// to split larger inputs.
//
// # Caching
//
// Embeddings are cached in an LRU keyed by the SHA-256 of the text. Only texts
// missing from the cache are sent to the API, and cached vectors are copied on
// the way in and out so callers cannot corrupt them.
package embedder
