// Package chromem backs vectorindex.Index with chromem-go, a pure Go
// embedded vector database with exhaustive cosine search.
package chromem

import (
	"context"
	"fmt"
	"log"
	"runtime"

	chromem "github.com/philippgille/chromem-go"

	"github.com/Vandarkun/datasets/vectorindex"
)

// Store is a chromem-go backed vector index. One collection per store.
type Store struct {
	db   *chromem.DB
	col  *chromem.Collection
	name string
}

// New creates an empty in-memory store with the given collection name.
func New(name string) (*Store, error) {
	if name == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	db := chromem.NewDB()
	col, err := db.CreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &Store{db: db, col: col, name: name}, nil
}

// Load reads a store previously written by Save.
func Load(path, name string) (*Store, error) {
	db := chromem.NewDB()
	if err := db.ImportFromFile(path, ""); err != nil {
		return nil, fmt.Errorf("import index %s: %w", path, err)
	}
	col := db.GetCollection(name, nil)
	if col == nil {
		return nil, fmt.Errorf("import index %s: collection %q missing", path, name)
	}
	log.Printf("[CHROMEM] Loaded collection %q (%d vectors) from %s", name, col.Count(), path)
	return &Store{db: db, col: col, name: name}, nil
}

// Save writes the store to a compressed file artifact.
func (s *Store) Save(path string) error {
	if err := s.db.ExportToFile(path, true, ""); err != nil {
		return fmt.Errorf("export index: %w", err)
	}
	log.Printf("[CHROMEM] Saved collection %q (%d vectors) to %s", s.name, s.col.Count(), path)
	return nil
}

// Add inserts entries in one bulk call.
func (s *Store) Add(ctx context.Context, entries []vectorindex.Entry) error {
	docs := make([]chromem.Document, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, chromem.Document{
			ID:        e.ID,
			Content:   e.Content,
			Metadata:  e.Metadata,
			Embedding: e.Embedding,
		})
	}
	if len(docs) == 0 {
		return nil
	}
	if err := s.col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	return nil
}

// Search returns up to k results by descending similarity. k is clamped to
// the collection size; an empty collection yields no results.
func (s *Store) Search(ctx context.Context, query []float32, k int) ([]vectorindex.Result, error) {
	count := s.col.Count()
	if count == 0 || k <= 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}
	hits, err := s.col.QueryEmbedding(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}
	results := make([]vectorindex.Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, vectorindex.Result{
			ID:         h.ID,
			Content:    h.Content,
			Metadata:   h.Metadata,
			Similarity: h.Similarity,
		})
	}
	return results, nil
}

// Reconstruct returns the stored embedding for id.
func (s *Store) Reconstruct(ctx context.Context, id string) ([]float32, error) {
	doc, err := s.col.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", vectorindex.ErrNotFound, id)
	}
	return doc.Embedding, nil
}

// Count returns the number of stored vectors.
func (s *Store) Count() int {
	return s.col.Count()
}
