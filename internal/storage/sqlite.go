package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// A single connection keeps an in-memory database alive and private to this store
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if dbPath != MemoryPath {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// NewMemoryStore creates a store backed by a private in-memory database that
// lives as long as the store
func NewMemoryStore() (*SQLiteStorage, error) {
	return NewSQLiteStorage(MemoryPath)
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Collection operations

func (s *SQLiteStorage) CreateCollection(ctx context.Context, name string, dimension int) (*Collection, error) {
	if strings.TrimSpace(name) == "" || dimension <= 0 {
		return nil, fmt.Errorf("%w: name %q, dimension %d", ErrInvalidCollection, name, dimension)
	}

	now := time.Now().UTC().Truncate(time.Second)
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (name, dimension, created_at) VALUES (?, ?, ?)`,
		name, dimension, now.Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("collection %q: %w", name, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Collection{ID: id, Name: name, Dimension: dimension, CreatedAt: now}, nil
}

func (s *SQLiteStorage) GetCollection(ctx context.Context, name string) (*Collection, error) {
	return getCollection(ctx, s.db, "name = ?", name)
}

func (s *SQLiteStorage) getCollectionByID(ctx context.Context, q querier, id int64) (*Collection, error) {
	return getCollection(ctx, q, "id = ?", id)
}

func getCollection(ctx context.Context, q querier, where string, arg interface{}) (*Collection, error) {
	var c Collection
	var created int64
	err := q.QueryRowContext(ctx,
		`SELECT id, name, dimension, created_at FROM collections WHERE `+where, arg,
	).Scan(&c.ID, &c.Name, &c.Dimension, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("collection %v: %w", arg, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	c.CreatedAt = time.Unix(created, 0).UTC()
	return &c, nil
}

func (s *SQLiteStorage) ListCollections(ctx context.Context) ([]*Collection, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, dimension, created_at FROM collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	collections := make([]*Collection, 0)
	for rows.Next() {
		var c Collection
		var created int64
		if err := rows.Scan(&c.ID, &c.Name, &c.Dimension, &created); err != nil {
			return nil, err
		}
		c.CreatedAt = time.Unix(created, 0).UTC()
		collections = append(collections, &c)
	}
	return collections, rows.Err()
}

func (s *SQLiteStorage) DeleteCollection(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("collection %q: %w", name, ErrNotFound)
	}
	return nil
}

// Document operations

// AddChunks stores documents in one transaction. A document whose content is
// already in the collection is skipped; added counts the new rows only.
func (s *SQLiteStorage) AddChunks(ctx context.Context, collectionID int64, docs []*Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	collection, err := s.getCollectionByID(ctx, tx, collectionID)
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO documents
			(collection_id, source, chunk_index, window_start, window_end, content,
			 content_hash, vector, provider, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC().Truncate(time.Second)
	added := 0
	for i, doc := range docs {
		if len(doc.Vector) != collection.Dimension {
			return 0, fmt.Errorf("document %d: %w: got %d, want %d",
				i, ErrDimensionMismatch, len(doc.Vector), collection.Dimension)
		}

		result, err := stmt.ExecContext(ctx,
			collectionID, doc.Source, doc.ChunkIndex,
			doc.WindowStart.Unix(), doc.WindowEnd.Unix(), doc.Content,
			doc.ContentHash[:], encodeVector(doc.Vector),
			doc.Provider, doc.Model, now.Unix())
		if err != nil {
			return 0, fmt.Errorf("failed to insert document %d: %w", i, err)
		}

		n, err := result.RowsAffected()
		if err != nil {
			return 0, err
		}
		if n == 0 {
			continue
		}

		id, err := result.LastInsertId()
		if err != nil {
			return 0, err
		}
		doc.ID = id
		doc.CollectionID = collectionID
		doc.CreatedAt = now
		added++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit documents: %w", err)
	}
	return added, nil
}

func (s *SQLiteStorage) GetDocument(ctx context.Context, documentID int64) (*Document, error) {
	var d Document
	var start, end, created int64
	var hash, vector []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, collection_id, source, chunk_index, window_start, window_end, content,
		       content_hash, vector, provider, model, created_at
		FROM documents WHERE id = ?
	`, documentID).Scan(&d.ID, &d.CollectionID, &d.Source, &d.ChunkIndex, &start, &end,
		&d.Content, &hash, &vector, &d.Provider, &d.Model, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %d: %w", documentID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	d.WindowStart = time.Unix(start, 0).UTC()
	d.WindowEnd = time.Unix(end, 0).UTC()
	d.CreatedAt = time.Unix(created, 0).UTC()
	copy(d.ContentHash[:], hash)
	d.Vector = decodeVector(vector)
	return &d, nil
}

func (s *SQLiteStorage) CountChunks(ctx context.Context, collectionID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE collection_id = ?`, collectionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

// DeleteSource removes every document cut from source
func (s *SQLiteStorage) DeleteSource(ctx context.Context, collectionID int64, source string) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection_id = ? AND source = ?`, collectionID, source)
	if err != nil {
		return 0, fmt.Errorf("failed to delete documents of %s: %w", source, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Search operations

func (s *SQLiteStorage) SearchVector(ctx context.Context, collectionID int64, queryVector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	return searchVector(ctx, s.db, collectionID, queryVector, limit, filters)
}

// Status operations

func (s *SQLiteStorage) GetStatus(ctx context.Context, collectionID int64) (*CollectionStatus, error) {
	collection, err := s.getCollectionByID(ctx, s.db, collectionID)
	if err != nil {
		return nil, err
	}

	status := &CollectionStatus{Collection: collection}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT source) FROM documents WHERE collection_id = ?
	`, collectionID).Scan(&status.DocumentsCount, &status.SourcesCount)
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	version, err := SchemaVersion(ctx, s.db)
	if err != nil {
		return nil, err
	}
	status.SchemaVersion = version.String()

	status.Health = HealthStatus{
		DatabaseAccessible:  s.db.PingContext(ctx) == nil,
		EmbeddingsAvailable: status.DocumentsCount > 0,
	}
	return status, nil
}

// isUniqueViolation matches the constraint error text both drivers produce
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
