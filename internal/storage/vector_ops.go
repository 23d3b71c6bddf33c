package storage

import (
	"cmp"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"time"
)

// searchVector ranks the documents of a collection by cosine similarity to
// queryVector. Similarity is computed in Go so both SQLite drivers behave the same.
func searchVector(ctx context.Context, db *sql.DB, collectionID int64, queryVector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	query := `
		SELECT id, source, chunk_index, window_start, window_end, content, vector
		FROM documents
		WHERE collection_id = ?
	`
	args := []interface{}{collectionID}

	if filters != nil && filters.Source != "" {
		query += " AND source = ?"
		args = append(args, filters.Source)
	}
	query += " ORDER BY id"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ranked, err := scoreRows(rows, queryVector, filters)
	if err != nil {
		return nil, err
	}

	// ties keep row order so equal scores rank by insertion
	slices.SortStableFunc(ranked, func(a, b VectorResult) int {
		return cmp.Compare(b.SimilarityScore, a.SimilarityScore)
	})

	return topN(ranked, limit), nil
}

// scoreRows decodes each row and keeps those matching the query dimension
// and the relevance floor
func scoreRows(rows *sql.Rows, queryVector []float32, filters *SearchFilters) ([]VectorResult, error) {
	var ranked []VectorResult

	for rows.Next() {
		var r VectorResult
		var start, end int64
		var blob []byte
		if err := rows.Scan(&r.DocumentID, &r.Source, &r.ChunkIndex, &start, &end, &r.Content, &blob); err != nil {
			return nil, err
		}

		vector := decodeVector(blob)
		if len(vector) != len(queryVector) {
			continue
		}

		r.SimilarityScore = cosine(queryVector, vector)
		if filters != nil && filters.MinRelevance > 0 && r.SimilarityScore < filters.MinRelevance {
			continue
		}

		r.WindowStart = time.Unix(start, 0).UTC()
		r.WindowEnd = time.Unix(end, 0).UTC()
		ranked = append(ranked, r)
	}

	return ranked, rows.Err()
}

// topN truncates ranked to n; a non-positive n keeps everything
func topN(ranked []VectorResult, n int) []VectorResult {
	if n > 0 && n < len(ranked) {
		return ranked[:n]
	}
	return ranked
}

// encodeVector packs v as consecutive little-endian float32 values
func encodeVector(v []float32) []byte {
	blob := make([]byte, 0, len(v)*4)
	for _, f := range v {
		blob = binary.LittleEndian.AppendUint32(blob, math.Float32bits(f))
	}
	return blob
}

// decodeVector is the inverse of encodeVector. Trailing bytes that do not
// form a whole float are ignored.
func decodeVector(blob []byte) []float32 {
	v := make([]float32, len(blob)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return v
}

// cosine returns the cosine similarity of a and b, or 0 when the lengths
// differ or either vector is zero
func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, na, nb float64
	for i, x := range a {
		y := float64(b[i])
		dot += float64(x) * y
		na += float64(x) * float64(x)
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / math.Sqrt(na*nb)
}
