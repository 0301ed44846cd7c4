// Package mock provides a deterministic hash-based embedder for testing.
package mock

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/Vandarkun/datasets/embedding"
)

// Embedder generates deterministic embeddings from a text hash. Identical
// text always yields an identical unit vector, so self-similarity is 1.0,
// but unrelated texts have no meaningful semantic relationship.
type Embedder struct {
	dimensions int
}

// New creates a mock embedder with all-MiniLM-L6-v2 dimensions.
func New() *Embedder {
	return &Embedder{dimensions: 384}
}

// Embed creates a deterministic embedding from text.
func (m *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, m.dimensions)
	for i := 0; i < m.dimensions; i++ {
		// Simple LCG keyed on the text hash
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}
	return embedding.Normalize(vec), nil
}

// EmbedBatch embeds each text independently.
func (m *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedding.BatchFromSingle(ctx, m, texts)
}

// Dimensions returns the embedding size.
func (m *Embedder) Dimensions() int {
	return m.dimensions
}
