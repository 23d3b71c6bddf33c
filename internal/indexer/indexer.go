package indexer

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/chatcontext-mcp/internal/chunker"
	"github.com/dshills/chatcontext-mcp/internal/config"
	"github.com/dshills/chatcontext-mcp/internal/logging"
	"github.com/dshills/chatcontext-mcp/internal/normalizer"
	"github.com/dshills/chatcontext-mcp/internal/retriever"
	"github.com/dshills/chatcontext-mcp/internal/scanner"
	"github.com/dshills/chatcontext-mcp/pkg/types"
)

// LogExtension is the file extension picked up when a directory is indexed
const LogExtension = ".txt"

// Indexer coordinates the indexing pipeline: chunk -> normalize -> embed -> store
type Indexer struct {
	chunker    *chunker.Chunker
	normalizer *normalizer.Normalizer
	retriever  *retriever.Retriever
	logger     *zap.Logger

	config Config

	mu     sync.Mutex
	hashes map[string][32]byte // last indexed content per file
}

// Config contains configuration for the indexer
type Config struct {
	Workers     int // Files processed concurrently (default: config.DefaultWorkers)
	Pattern     *scanner.Pattern
	Granularity types.Granularity
	OverlapDays int
	Normalize   bool // Strip timestamps and URLs before embedding
}

// DefaultConfig returns week windows with a two day overlap on the default pattern
func DefaultConfig() Config {
	return Config{
		Workers:     config.DefaultWorkers,
		Pattern:     scanner.Default(),
		Granularity: types.GranularityWeek,
		OverlapDays: config.DefaultOverlapDays,
	}
}

// ConfigFrom maps the application config
func ConfigFrom(cfg *config.Config) (Config, error) {
	pattern, err := cfg.Pattern()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Workers:     cfg.Embedding.Workers,
		Pattern:     pattern,
		Granularity: cfg.Granularity(),
		OverlapDays: cfg.Chunking.OverlapDays,
		Normalize:   cfg.Chunking.Normalize,
	}, nil
}

// Statistics contains statistics about the indexing operation
type Statistics struct {
	FilesIndexed  int
	FilesSkipped  int // Unchanged since the previous run
	FilesFailed   int
	ChunksCreated int // Non-empty windows cut from the files
	ChunksAdded   int // Chunks new to the collection
	ChunksRemoved int // Chunks of a previous version of a file
	EmptyWindows  int
	Duration      time.Duration
	ErrorMessages []string
}

// New creates a new Indexer. A nil normalizer stores chunk text as read.
func New(r *retriever.Retriever, n *normalizer.Normalizer, cfg Config, logger *zap.Logger) *Indexer {
	defaults := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.Pattern == nil {
		cfg.Pattern = defaults.Pattern
	}
	if cfg.Granularity == "" {
		cfg.Granularity = defaults.Granularity
	}
	if n == nil {
		cfg.Normalize = false
	}

	logger = logging.OrNop(logger)
	return &Indexer{
		chunker:    chunker.New(logger),
		normalizer: n,
		retriever:  r,
		logger:     logger,
		config:     cfg,
		hashes:     make(map[string][32]byte),
	}
}

// IndexFiles indexes chat logs concurrently. Directories are expanded to the
// log files they contain. A file that fails is logged and recorded in the
// statistics; the other files are still indexed. The error return is reserved
// for failures that stop the whole run, such as cancellation.
func (idx *Indexer) IndexFiles(ctx context.Context, paths []string) (*Statistics, error) {
	startTime := time.Now()
	stats := &Statistics{
		ErrorMessages: make([]string, 0),
	}

	files, err := DiscoverFiles(paths)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	var (
		indexed, skipped, failed   atomic.Int32
		created, added, emptyCount atomic.Int32
		removed                    atomic.Int32
		mu                         sync.Mutex // Protect stats.ErrorMessages
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.config.Workers)

	for _, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			res, err := idx.indexFile(gctx, path)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				idx.logger.Warn("failed to index file", zap.String("path", path), zap.Error(err))
				mu.Lock()
				stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", path, err))
				mu.Unlock()
				return nil
			}

			if res.skipped {
				skipped.Add(1)
				return nil
			}
			indexed.Add(1)
			created.Add(int32(res.created))
			added.Add(int32(res.added))
			removed.Add(int32(res.removed))
			emptyCount.Add(int32(res.empty))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.FilesIndexed = int(indexed.Load())
	stats.FilesSkipped = int(skipped.Load())
	stats.FilesFailed = int(failed.Load())
	stats.ChunksCreated = int(created.Load())
	stats.ChunksAdded = int(added.Load())
	stats.ChunksRemoved = int(removed.Load())
	stats.EmptyWindows = int(emptyCount.Load())
	sort.Strings(stats.ErrorMessages)
	stats.Duration = time.Since(startTime)

	idx.logger.Info("indexing complete",
		zap.Int("files_indexed", stats.FilesIndexed),
		zap.Int("files_skipped", stats.FilesSkipped),
		zap.Int("files_failed", stats.FilesFailed),
		zap.Int("chunks_added", stats.ChunksAdded),
		zap.Int("chunks_removed", stats.ChunksRemoved),
		zap.Duration("duration", stats.Duration))

	return stats, nil
}

// fileResult is the outcome of indexing one file
type fileResult struct {
	skipped bool
	created int
	added   int
	removed int
	empty   int
}

// indexFile indexes a single file. The chunks of a changed file replace
// everything previously stored for that path.
func (idx *Indexer) indexFile(ctx context.Context, path string) (fileResult, error) {
	hash, err := computeFileHash(path)
	if err != nil {
		return fileResult{}, err
	}

	idx.mu.Lock()
	previous, seen := idx.hashes[path]
	idx.mu.Unlock()
	if seen && previous == hash {
		idx.logger.Debug("file unchanged, skipping", zap.String("path", path))
		return fileResult{skipped: true}, nil
	}

	var res fileResult
	texts := make([]retriever.Text, 0)
	for chunk, err := range idx.chunker.Chunk(path, idx.config.Pattern, idx.config.Granularity, idx.config.OverlapDays) {
		if err != nil {
			return fileResult{}, err
		}
		if chunk.IsEmpty() {
			res.empty++
			continue
		}

		content := chunk.Text()
		if idx.config.Normalize {
			content = idx.normalizer.CleanChunk(chunk)
		}
		if strings.TrimSpace(content) == "" {
			res.empty++
			continue
		}
		texts = append(texts, retriever.FromChunk(chunk, content))
	}
	res.created = len(texts)

	res.removed, err = idx.retriever.RemoveSource(ctx, path)
	if err != nil {
		return fileResult{}, err
	}

	idx.logger.Debug("adding chunks from file",
		zap.String("path", path),
		zap.Int("chunks", len(texts)),
		zap.Int("replaced", res.removed))

	res.added, err = idx.retriever.Add(ctx, texts)
	if err != nil {
		return fileResult{}, err
	}

	idx.mu.Lock()
	idx.hashes[path] = hash
	idx.mu.Unlock()

	return res, nil
}

// DiscoverFiles expands directories into the log files below them, skipping
// hidden directories. Plain file paths are kept as given, so a missing file
// surfaces as a per-file failure.
func DiscoverFiles(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			add(root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.EqualFold(filepath.Ext(path), LogExtension) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}

// computeFileHash computes SHA-256 hash of a file
func computeFileHash(filePath string) ([32]byte, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return [32]byte{}, err
	}
	defer func() { _ = file.Close() }()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return [32]byte{}, err
	}

	var result [32]byte
	copy(result[:], hash.Sum(nil))
	return result, nil
}
