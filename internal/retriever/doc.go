// Package retriever indexes conversation chunks as embeddings and finds the
// chunks closest to a query.
//
// A Retriever binds an embedder to one storage collection. Texts are embedded
// in batches, several batches at a time, and stored in input order:
//
//	r, err := retriever.New(ctx, store, emb, retriever.DefaultOptions(), logger)
//	added, err := r.AddTexts(ctx, []string{"[1/2/25, 10:00:00] Ana: hola"})
//
//	resp, err := r.Search(ctx, retriever.SearchRequest{Query: "team lunch"})
//	for _, res := range resp.Results {
//	    fmt.Printf("[%d] %.2f %s\n", res.Rank, res.RelevanceScore, res.Content)
//	}
//
// Search responses may be cached by query; any write to the collection
// clears the cache.
package retriever
