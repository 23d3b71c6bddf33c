package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
	// ErrDimensionMismatch is returned when a vector does not match its collection
	ErrDimensionMismatch = errors.New("vector dimension does not match collection")
	// ErrInvalidCollection is returned for an empty name or a non-positive dimension
	ErrInvalidCollection = errors.New("collection needs a name and a positive dimension")
)

// Storage persists chat chunks and their embeddings in named collections and
// answers cosine similarity queries over them
type Storage interface {
	// Collection operations
	CreateCollection(ctx context.Context, name string, dimension int) (*Collection, error)
	GetCollection(ctx context.Context, name string) (*Collection, error)
	ListCollections(ctx context.Context) ([]*Collection, error)
	DeleteCollection(ctx context.Context, name string) error

	// Document operations
	AddChunks(ctx context.Context, collectionID int64, docs []*Document) (added int, err error)
	GetDocument(ctx context.Context, documentID int64) (*Document, error)
	CountChunks(ctx context.Context, collectionID int64) (int, error)
	DeleteSource(ctx context.Context, collectionID int64, source string) (deleted int, err error)

	// Search operations
	SearchVector(ctx context.Context, collectionID int64, vector []float32, limit int, filters *SearchFilters) ([]VectorResult, error)

	// Status operations
	GetStatus(ctx context.Context, collectionID int64) (*CollectionStatus, error)

	// Database operations
	Close() error
}

// Collection is a named set of documents sharing one embedding dimension
type Collection struct {
	ID        int64
	Name      string
	Dimension int
	CreatedAt time.Time
}

// Document is one chunk of a chat log together with its embedding
type Document struct {
	ID           int64
	CollectionID int64
	Source       string // Path of the chat log
	ChunkIndex   int
	WindowStart  time.Time
	WindowEnd    time.Time
	Content      string
	ContentHash  [32]byte
	Vector       []float32
	Provider     string
	Model        string
	CreatedAt    time.Time
}

// SearchFilters contains filters for narrowing search results
type SearchFilters struct {
	Source       string  // Only documents cut from this file
	MinRelevance float64 // Minimum cosine similarity
}

// VectorResult is a document ranked by similarity to a query vector
type VectorResult struct {
	DocumentID      int64
	Source          string
	ChunkIndex      int
	WindowStart     time.Time
	WindowEnd       time.Time
	Content         string
	SimilarityScore float64
}

// CollectionStatus contains statistics about a collection
type CollectionStatus struct {
	Collection     *Collection
	DocumentsCount int
	SourcesCount   int
	SchemaVersion  string
	Health         HealthStatus
}

// HealthStatus represents the health of the store
type HealthStatus struct {
	DatabaseAccessible  bool
	EmbeddingsAvailable bool
}
