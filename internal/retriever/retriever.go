package retriever

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/chatcontext-mcp/internal/config"
	"github.com/dshills/chatcontext-mcp/internal/embedder"
	"github.com/dshills/chatcontext-mcp/internal/logging"
	"github.com/dshills/chatcontext-mcp/internal/storage"
	"github.com/dshills/chatcontext-mcp/pkg/types"
)

const (
	// MaxLimit caps the number of results a single search may return
	MaxLimit = 50

	defaultCacheSize = 1000
	defaultCacheTTL  = time.Hour
)

var (
	ErrEmptyQuery        = errors.New("query cannot be empty")
	ErrDimensionMismatch = errors.New("collection dimension does not match embedder")
)

// Options configures a Retriever
type Options struct {
	Collection string
	K          int // Default number of results
	BatchSize  int // Texts per embedding call
	Workers    int // Concurrent embedding calls
	CacheSize  int // Cached search responses
	CacheTTL   time.Duration
}

// DefaultOptions returns options matching the config defaults
func DefaultOptions() Options {
	return Options{
		Collection: config.DefaultCollection,
		K:          config.DefaultK,
		BatchSize:  config.DefaultBatchSize,
		Workers:    config.DefaultWorkers,
		CacheSize:  defaultCacheSize,
		CacheTTL:   defaultCacheTTL,
	}
}

// OptionsFromConfig maps the application config
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.Collection = cfg.Retrieval.Collection
	opts.K = cfg.Retrieval.K
	opts.BatchSize = cfg.Embedding.BatchSize
	opts.Workers = cfg.Embedding.Workers
	return opts
}

// Text is a piece of content to index along with where it came from
type Text struct {
	Content     string
	Source      string
	ChunkIndex  int
	WindowStart time.Time
	WindowEnd   time.Time
}

// FromChunk builds a Text from a chunk, using content in place of the raw lines
func FromChunk(c types.Chunk, content string) Text {
	return Text{
		Content:     content,
		Source:      c.Source,
		ChunkIndex:  c.Index,
		WindowStart: c.WindowStart,
		WindowEnd:   c.WindowEnd,
	}
}

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query        string
	Limit        int     // 0 selects the retriever's K
	Source       string  // Restrict to one file
	MinRelevance float64 // Minimum cosine similarity
	UseCache     bool
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Results  []types.SearchResult
	Duration time.Duration
	CacheHit bool
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// Retriever embeds texts into a storage collection and answers similarity queries
type Retriever struct {
	store      storage.Storage
	embedder   embedder.Embedder
	collection *storage.Collection
	opts       Options
	logger     *zap.Logger

	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.RWMutex
}

// New opens the named collection, creating it with the embedder's dimension
// when it does not exist yet.
func New(ctx context.Context, store storage.Storage, emb embedder.Embedder, opts Options, logger *zap.Logger) (*Retriever, error) {
	if store == nil || emb == nil {
		return nil, fmt.Errorf("retriever requires a store and an embedder")
	}

	defaults := DefaultOptions()
	if opts.Collection == "" {
		opts.Collection = defaults.Collection
	}
	if opts.K <= 0 {
		opts.K = defaults.K
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaults.BatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = defaults.Workers
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaults.CacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaults.CacheTTL
	}

	collection, err := store.GetCollection(ctx, opts.Collection)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		collection, err = store.CreateCollection(ctx, opts.Collection, emb.Dimension())
		if err != nil {
			return nil, fmt.Errorf("failed to create collection: %w", err)
		}
	case err != nil:
		return nil, err
	case collection.Dimension != emb.Dimension():
		return nil, fmt.Errorf("%w: collection %s has %d, embedder has %d",
			ErrDimensionMismatch, collection.Name, collection.Dimension, emb.Dimension())
	}

	cache, err := lru.New[[32]byte, *cacheEntry](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}

	return &Retriever{
		store:      store,
		embedder:   emb,
		collection: collection,
		opts:       opts,
		logger:     logging.OrNop(logger),
		cache:      cache,
	}, nil
}

// Collection returns the collection the retriever writes to
func (r *Retriever) Collection() *storage.Collection {
	return r.collection
}

// K returns the default number of search results
func (r *Retriever) K() int {
	return r.opts.K
}

// Embedder returns the embedder in use
func (r *Retriever) Embedder() embedder.Embedder {
	return r.embedder
}

// Count returns the number of stored chunks in the collection
func (r *Retriever) Count(ctx context.Context) (int, error) {
	return r.store.CountChunks(ctx, r.collection.ID)
}

// AddTexts indexes plain texts with no source metadata
func (r *Retriever) AddTexts(ctx context.Context, texts []string) (int, error) {
	items := make([]Text, len(texts))
	for i, text := range texts {
		items[i] = Text{Content: text, ChunkIndex: i}
	}
	return r.Add(ctx, items)
}

// Add embeds texts in batches and stores them. Batches are embedded
// concurrently; the stored order follows the input. Blank texts are skipped.
// It returns the number of new documents, which excludes content already in
// the collection.
func (r *Retriever) Add(ctx context.Context, texts []Text) (int, error) {
	items := make([]Text, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		items = append(items, t)
	}
	if skipped := len(texts) - len(items); skipped > 0 {
		r.logger.Debug("skipping blank texts", zap.Int("count", skipped))
	}
	if len(items) == 0 {
		return 0, nil
	}

	contents := make([]string, len(items))
	for i, t := range items {
		contents[i] = t.Content
	}
	batches := embedder.Batches(contents, r.opts.BatchSize)
	embedded := make([][]*embedder.Embedding, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, batch := range batches {
		g.Go(func() error {
			resp, err := r.embedder.GenerateBatch(gctx, embedder.BatchEmbeddingRequest{Texts: batch})
			if err != nil {
				return fmt.Errorf("batch %d: %w", i, err)
			}
			if len(resp.Embeddings) != len(batch) {
				return fmt.Errorf("batch %d: %w: %d embeddings for %d texts",
					i, embedder.ErrProviderFailed, len(resp.Embeddings), len(batch))
			}
			embedded[i] = resp.Embeddings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("failed to embed texts: %w", err)
	}

	docs := make([]*storage.Document, 0, len(items))
	for _, batch := range embedded {
		for _, emb := range batch {
			t := items[len(docs)]
			docs = append(docs, &storage.Document{
				Source:      t.Source,
				ChunkIndex:  t.ChunkIndex,
				WindowStart: t.WindowStart,
				WindowEnd:   t.WindowEnd,
				Content:     t.Content,
				ContentHash: sha256.Sum256([]byte(t.Content)),
				Vector:      emb.Vector,
				Provider:    emb.Provider,
				Model:       emb.Model,
			})
		}
	}

	added, err := r.store.AddChunks(ctx, r.collection.ID, docs)
	if err != nil {
		return 0, fmt.Errorf("failed to store texts: %w", err)
	}

	r.InvalidateCache()
	r.logger.Debug("added texts",
		zap.String("collection", r.collection.Name),
		zap.Int("embedded", len(docs)),
		zap.Int("added", added))

	return added, nil
}

// RemoveSource deletes every stored chunk cut from source and returns how
// many were removed
func (r *Retriever) RemoveSource(ctx context.Context, source string) (int, error) {
	deleted, err := r.store.DeleteSource(ctx, r.collection.ID, source)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		r.InvalidateCache()
		r.logger.Debug("removed source",
			zap.String("collection", r.collection.Name),
			zap.String("source", source),
			zap.Int("deleted", deleted))
	}
	return deleted, nil
}

// Search returns the texts most similar to the query, best first
func (r *Retriever) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if err := r.validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	if req.UseCache {
		if cached := r.checkCache(req); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	embedding, err := r.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: req.Query})
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	var filters *storage.SearchFilters
	if req.Source != "" || req.MinRelevance > 0 {
		filters = &storage.SearchFilters{Source: req.Source, MinRelevance: req.MinRelevance}
	}

	vectorResults, err := r.store.SearchVector(ctx, r.collection.ID, embedding.Vector, req.Limit, filters)
	if err != nil {
		return nil, err
	}

	results := make([]types.SearchResult, len(vectorResults))
	for i, vr := range vectorResults {
		results[i] = types.SearchResult{
			ChunkID:        vr.DocumentID,
			Rank:           i + 1,
			RelevanceScore: vr.SimilarityScore,
			Source:         vr.Source,
			Content:        vr.Content,
		}
	}

	response := &SearchResponse{
		Results:  results,
		Duration: time.Since(startTime),
	}

	if req.UseCache && len(results) > 0 {
		r.storeInCache(req, response)
	}

	return response, nil
}

// SearchTexts returns the contents of the top k matches for query
func (r *Retriever) SearchTexts(ctx context.Context, query string) ([]string, error) {
	resp, err := r.Search(ctx, SearchRequest{Query: query})
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(resp.Results))
	for i, res := range resp.Results {
		texts[i] = res.Content
	}
	return texts, nil
}

// validateRequest ensures search request is valid
func (r *Retriever) validateRequest(req *SearchRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return ErrEmptyQuery
	}

	if req.Limit <= 0 {
		req.Limit = r.opts.K
	}

	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}

	return nil
}

// checkCache returns a copy of a live cached response, or nil
func (r *Retriever) checkCache(req SearchRequest) *SearchResponse {
	hash := computeQueryHash(req)

	r.cacheMu.RLock()
	entry, found := r.cache.Get(hash)
	if !found {
		r.cacheMu.RUnlock()
		return nil
	}

	if time.Now().After(entry.expiresAt) {
		r.cacheMu.RUnlock()

		r.cacheMu.Lock()
		r.cache.Remove(hash)
		r.cacheMu.Unlock()
		return nil
	}

	response := copySearchResponse(entry.response)
	r.cacheMu.RUnlock()

	return response
}

// storeInCache saves a copy of response
func (r *Retriever) storeInCache(req SearchRequest, response *SearchResponse) {
	entry := &cacheEntry{
		response:  copySearchResponse(response),
		expiresAt: time.Now().Add(r.opts.CacheTTL),
	}

	r.cacheMu.Lock()
	r.cache.Add(computeQueryHash(req), entry)
	r.cacheMu.Unlock()
}

// InvalidateCache drops all cached search responses
func (r *Retriever) InvalidateCache() {
	r.cacheMu.Lock()
	r.cache.Purge()
	r.cacheMu.Unlock()
}

// copySearchResponse creates a copy of a SearchResponse; results hold only values
func copySearchResponse(src *SearchResponse) *SearchResponse {
	if src == nil {
		return nil
	}

	dst := *src
	dst.Results = make([]types.SearchResult, len(src.Results))
	copy(dst.Results, src.Results)
	return &dst
}

// computeQueryHash computes a unique hash for a search request
func computeQueryHash(req SearchRequest) [32]byte {
	var data strings.Builder
	data.WriteString(req.Query)
	data.WriteString("|")
	fmt.Fprintf(&data, "%d", req.Limit)
	data.WriteString("|")
	data.WriteString(req.Source)
	data.WriteString("|")
	fmt.Fprintf(&data, "%.2f", req.MinRelevance)

	return sha256.Sum256([]byte(data.String()))
}
