package embedding

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"
)

// Cached wraps a Provider with a process-wide ristretto cache. History
// snippets and memory texts repeat across pipeline stages (pooled user
// vectors, index builds, retrieval queries), so identical inputs only hit
// the model once per process.
type Cached struct {
	inner Provider
	cache *ristretto.Cache
}

// NewCached creates a caching decorator sized for roughly maxEntries
// embeddings.
func NewCached(inner Provider, maxEntries int64) (*Cached, error) {
	if maxEntries <= 0 {
		maxEntries = 100_000
	}
	cost := int64(inner.Dimensions() * 4)
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries * cost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &Cached{inner: inner, cache: cache}, nil
}

// Embed returns the cached vector for text, embedding on miss.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	if hit, ok := c.cache.Get(text); ok {
		if vec, ok := hit.([]float32); ok {
			return vec, nil
		}
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, vec, int64(len(vec)*4))
	return vec, nil
}

// EmbedBatch embeds texts, serving cached entries and forwarding only the
// misses to the inner provider in one batch.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	for i, t := range texts {
		if hit, ok := c.cache.Get(t); ok {
			if vec, ok := hit.([]float32); ok {
				out[i] = vec
				continue
			}
		}
		missTexts = append(missTexts, t)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) > 0 {
		vecs, err := c.inner.EmbedBatch(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		for j, vec := range vecs {
			out[missIdx[j]] = vec
			c.cache.Set(missTexts[j], vec, int64(len(vec)*4))
		}
	}
	return out, nil
}

// Dimensions returns the inner provider's embedding size.
func (c *Cached) Dimensions() int {
	return c.inner.Dimensions()
}

// Wait blocks until pending cache writes are visible. Sets are applied
// asynchronously; callers that need read-your-write behavior wait first.
func (c *Cached) Wait() {
	c.cache.Wait()
}

// Close releases the cache.
func (c *Cached) Close() {
	c.cache.Close()
}
