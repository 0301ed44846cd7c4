// Package embedding defines the provider interface for text embeddings and
// the unit-norm vector helpers shared across the pipeline.
//
// Providers map text to fixed-length unit-norm vectors and are deterministic
// for identical input and model. One provider instance is constructed at
// worker startup and passed explicitly to every component that embeds;
// after that it is a shared, read-only resource.
//
// Implementations:
//   - embedding/mock: deterministic hash embedder for tests
//   - embedding/onnx: all-MiniLM-L6-v2 through ONNX Runtime (build tag onnx)
//   - Cached: ristretto-backed decorator over any provider
package embedding

import (
	"context"
	"math"
)

// Provider converts text to unit-norm embedding vectors.
type Provider interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts a batch of texts, preserving order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Normalize scales vec to unit length in place and returns it. A zero
// vector is returned unchanged.
func Normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = float32(math.Sqrt(float64(norm)))
	for i, v := range vec {
		vec[i] = v / norm
	}
	return vec
}

// Dot returns the inner product of two vectors. On unit-norm vectors this
// equals cosine similarity.
func Dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// BatchFromSingle implements EmbedBatch by repeated Embed calls, for
// providers without a native batch path.
func BatchFromSingle(ctx context.Context, p Provider, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := p.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}
