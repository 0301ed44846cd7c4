// Package vectorindex abstracts the nearest-neighbor structure used by the
// memory, catalog, and social-graph indexes: add-all-at-build, similarity
// search, and raw-vector reconstruction by id.
//
// All vectors are unit-norm, so inner product equals cosine similarity.
// Indexes are built offline in one shot and treated as immutable shared
// resources afterwards.
package vectorindex

import (
	"context"
	"errors"
)

// Entry is one vector with its aligned metadata, supplied at build time.
type Entry struct {
	ID        string
	Content   string
	Metadata  map[string]string
	Embedding []float32
}

// Result is one similarity-search hit, highest similarity first.
type Result struct {
	ID         string
	Content    string
	Metadata   map[string]string
	Similarity float32
}

// ErrNotFound marks a reconstruction request for an id the index does not
// hold.
var ErrNotFound = errors.New("vector id not found")

// Index is the nearest-neighbor structure over a fixed vector set.
type Index interface {
	// Add inserts entries. Intended for one bulk call at build time.
	Add(ctx context.Context, entries []Entry) error

	// Search returns up to k results by descending similarity.
	Search(ctx context.Context, query []float32, k int) ([]Result, error)

	// Reconstruct returns the stored embedding for id.
	Reconstruct(ctx context.Context, id string) ([]float32, error)

	// Count returns the number of stored vectors.
	Count() int
}

// Persistent is an Index that can round-trip through a file artifact.
type Persistent interface {
	Index
	Save(path string) error
}
