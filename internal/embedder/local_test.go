package embedder

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestLocalProvider(t *testing.T) {
	provider, err := NewLocalProvider(0, NewCache(10))
	require.NoError(t, err)
	defer provider.Close()

	ctx := context.Background()

	t.Run("provider metadata", func(t *testing.T) {
		assert.Equal(t, ProviderLocal, provider.Provider())
		assert.Equal(t, LocalDimension, provider.Dimension())
		assert.Equal(t, DefaultLocalModel, provider.Model())
	})

	t.Run("single embedding is unit length", func(t *testing.T) {
		emb, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "reunión de equipo mañana"})
		require.NoError(t, err)
		require.Len(t, emb.Vector, LocalDimension)
		assert.Equal(t, ProviderLocal, emb.Provider)
		assert.InDelta(t, 1.0, cosine(emb.Vector, emb.Vector), 1e-6)

		var sum float64
		for _, v := range emb.Vector {
			sum += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, sum, 1e-5)
	})

	t.Run("deterministic", func(t *testing.T) {
		other, err := NewLocalProvider(0, nil)
		require.NoError(t, err)

		a, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "same words"})
		require.NoError(t, err)
		b, err := other.GenerateEmbedding(ctx, EmbeddingRequest{Text: "same words"})
		require.NoError(t, err)
		assert.Equal(t, a.Vector, b.Vector)
	})

	t.Run("shared words are closer", func(t *testing.T) {
		q, _ := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "birthday cake party"})
		near, _ := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "we ordered a cake for the birthday"})
		far, _ := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "deploy the server tonight"})

		assert.Greater(t, cosine(q.Vector, near.Vector), cosine(q.Vector, far.Vector))
	})

	t.Run("case and punctuation insensitive", func(t *testing.T) {
		a, _ := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "Hola, Equipo!"})
		b, _ := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "hola equipo"})
		assert.InDelta(t, 1.0, cosine(a.Vector, b.Vector), 1e-6)
	})

	t.Run("punctuation only text", func(t *testing.T) {
		emb, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "!!! ..."})
		require.NoError(t, err)
		assert.Len(t, emb.Vector, LocalDimension)
		assert.NotEqual(t, make([]float32, LocalDimension), emb.Vector)
	})

	t.Run("batch keeps order", func(t *testing.T) {
		resp, err := provider.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"uno", "dos", "tres"}})
		require.NoError(t, err)
		require.Len(t, resp.Embeddings, 3)

		dos, _ := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "dos"})
		assert.Equal(t, dos.Vector, resp.Embeddings[1].Vector)
	})

	t.Run("validation errors", func(t *testing.T) {
		_, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: ""})
		assert.ErrorIs(t, err, ErrEmptyText)

		_, err = provider.GenerateBatch(ctx, BatchEmbeddingRequest{})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("batch honours cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := provider.GenerateBatch(cctx, BatchEmbeddingRequest{Texts: []string{"a"}})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLocalProvider_CustomDimension(t *testing.T) {
	provider, err := NewLocalProvider(64, nil)
	require.NoError(t, err)

	emb, err := provider.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "hi"})
	require.NoError(t, err)
	assert.Len(t, emb.Vector, 64)
	assert.Equal(t, 64, provider.Dimension())
}

func TestNormalizeVector(t *testing.T) {
	got := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, got[0], 1e-6)
	assert.InDelta(t, 0.8, got[1], 1e-6)

	zero := []float32{0, 0, 0}
	assert.Equal(t, zero, NormalizeVector(zero))
}

func BenchmarkLocalProvider(b *testing.B) {
	provider, err := NewLocalProvider(0, nil)
	if err != nil {
		b.Fatalf("NewLocalProvider() error = %v", err)
	}
	ctx := context.Background()
	req := EmbeddingRequest{Text: "[23/2/25, 14:28:56] David: Ok, nos vemos mañana en la reunión del equipo"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := provider.GenerateEmbedding(ctx, req); err != nil {
			b.Fatal(err)
		}
	}
}
