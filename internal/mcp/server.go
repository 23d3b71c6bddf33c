package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/dshills/chatcontext-mcp/internal/config"
	"github.com/dshills/chatcontext-mcp/internal/culture"
	"github.com/dshills/chatcontext-mcp/internal/embedder"
	"github.com/dshills/chatcontext-mcp/internal/generator"
	"github.com/dshills/chatcontext-mcp/internal/indexer"
	"github.com/dshills/chatcontext-mcp/internal/logging"
	"github.com/dshills/chatcontext-mcp/internal/retriever"
	"github.com/dshills/chatcontext-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "chatcontext-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

var (
	// ErrIndexingInProgress is returned when another indexing run holds the lock
	ErrIndexingInProgress = errors.New("indexing already in progress")
	// ErrNothingIndexed is returned by culture requests before any file was indexed
	ErrNothingIndexed = errors.New("no conversations have been indexed")
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp       *server.MCPServer
	config    *config.Config
	storage   storage.Storage
	embedder  embedder.Embedder
	generator generator.Generator
	retriever *retriever.Retriever
	indexer   *indexer.Indexer
	culture   *culture.Summarizer
	logger    *zap.Logger
	indexLock indexer.IndexLock

	mu          sync.Mutex
	files       []string        // indexed chat logs in first-seen order
	seen        map[string]bool // membership for files
	cultureText string          // cached summary, reset when files change
}

// Option customizes NewServer
type Option func(*options)

type options struct {
	storage   storage.Storage
	generator generator.Generator
}

// WithStorage uses store instead of a private in-memory database. The server
// takes ownership and closes it.
func WithStorage(store storage.Storage) Option {
	return func(o *options) { o.storage = store }
}

// WithGenerator uses gen instead of the generator selected by the config
func WithGenerator(gen generator.Generator) Option {
	return func(o *options) { o.generator = gen }
}

// NewServer creates a new MCP server instance and indexes the chat logs
// listed in cfg.Data.Files. Files that fail to index are logged; the server
// still starts.
func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*Server, error) {
	logger = logging.OrNop(logger)
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	store := o.storage
	if store == nil {
		var err error
		store, err = storage.NewMemoryStore()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
	}

	s, err := newServer(ctx, cfg, store, o.generator, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	if len(cfg.Data.Files) > 0 {
		stats, err := s.Index(ctx, cfg.Data.Files)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to index configured files: %w", err)
		}
		logger.Info("loaded chat logs",
			zap.Int("files_indexed", stats.FilesIndexed),
			zap.Int("files_failed", stats.FilesFailed),
			zap.Int("chunks_added", stats.ChunksAdded))
	}

	return s, nil
}

func newServer(ctx context.Context, cfg *config.Config, store storage.Storage, gen generator.Generator, logger *zap.Logger) (*Server, error) {
	// one embedder shared by indexing and search so both hit the same cache
	emb, err := embedder.New(embedder.FromConfig(cfg.Embedding))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	ret, err := retriever.New(ctx, store, emb, retriever.OptionsFromConfig(cfg), logger)
	if err != nil {
		_ = emb.Close()
		return nil, fmt.Errorf("failed to initialize retriever: %w", err)
	}

	idxCfg, err := indexer.ConfigFrom(cfg)
	if err != nil {
		_ = emb.Close()
		return nil, fmt.Errorf("failed to configure indexer: %w", err)
	}
	norm, err := cfg.Normalizer()
	if err != nil {
		_ = emb.Close()
		return nil, fmt.Errorf("failed to configure normalizer: %w", err)
	}

	if gen == nil {
		gen, err = generator.New(cfg.Generation, cfg.Generation.Temperature, logger)
		if err != nil {
			_ = emb.Close()
			return nil, fmt.Errorf("failed to initialize generator: %w", err)
		}
	}

	s := &Server{
		mcp:       server.NewMCPServer(ServerName, ServerVersion),
		config:    cfg,
		storage:   store,
		embedder:  emb,
		generator: gen,
		retriever: ret,
		indexer:   indexer.New(ret, norm, idxCfg, logger),
		culture:   culture.New(gen, idxCfg.Pattern, cfg.PreviewGranularity(), logger),
		logger:    logger,
		seen:      make(map[string]bool),
	}

	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until ctx is cancelled or
// the client disconnects
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.Close() }()

	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))

	s.logger.Info("MCP server listening on stdio",
		zap.String("collection", s.config.Retrieval.Collection),
		zap.String("embedding_provider", s.embedder.Provider()),
		zap.String("generation_model", s.generator.Model()))

	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// Close releases the store and the embedder
func (s *Server) Close() error {
	return errors.Join(s.storage.Close(), s.embedder.Close())
}

// Index adds the chat logs under paths to the collection. Only one run may be
// active at a time; a concurrent call fails with ErrIndexingInProgress.
func (s *Server) Index(ctx context.Context, paths []string) (*indexer.Statistics, error) {
	if !s.indexLock.TryAcquire() {
		return nil, ErrIndexingInProgress
	}
	defer s.indexLock.Release()

	files, err := indexer.DiscoverFiles(paths)
	if err != nil {
		return nil, err
	}

	stats, err := s.indexer.IndexFiles(ctx, files)
	if err != nil {
		return nil, err
	}

	if stats.FilesIndexed > 0 {
		s.remember(files)
	}
	return stats, nil
}

// remember records readable files for the culture preview
func (s *Server) remember(files []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, f := range files {
		if s.seen[f] {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			continue
		}
		s.seen[f] = true
		s.files = append(s.files, f)
		changed = true
	}
	if changed {
		s.cultureText = ""
	}
}

// Files returns the chat logs indexed so far
func (s *Server) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.files...)
}

// CompanyCulture summarizes the culture seen in the indexed chat logs. The
// summary is generated once and reused until new files are indexed.
func (s *Server) CompanyCulture(ctx context.Context) (string, error) {
	s.mu.Lock()
	cached := s.cultureText
	files := append([]string(nil), s.files...)
	s.mu.Unlock()

	if cached != "" {
		return cached, nil
	}
	if len(files) == 0 {
		return "", ErrNothingIndexed
	}

	summary, err := s.culture.Summarize(ctx, files)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	// files indexed meanwhile invalidate this summary
	if len(s.files) == len(files) {
		s.cultureText = summary
	}
	s.mu.Unlock()

	return summary, nil
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchConversationsTool(), s.handleSearchConversations)
	s.mcp.AddTool(getCompanyCultureTool(), s.handleGetCompanyCulture)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	s.mcp.AddTool(indexConversationsTool(), s.handleIndexConversations)
	s.mcp.AddTool(listTeamMembersTool(), s.handleListTeamMembers)
}
