package chromem

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Vandarkun/datasets/vectorindex"
)

func entries() []vectorindex.Entry {
	return []vectorindex.Entry{
		{ID: "e0", Content: "north", Metadata: map[string]string{"k": "a"}, Embedding: []float32{1, 0, 0}},
		{ID: "e1", Content: "mostly north", Metadata: map[string]string{"k": "b"}, Embedding: []float32{0.8, 0.6, 0}},
		{ID: "e2", Content: "east", Metadata: map[string]string{"k": "c"}, Embedding: []float32{0, 1, 0}},
	}
}

func TestAddSearchReconstruct(t *testing.T) {
	s, err := New("test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := s.Add(ctx, entries()); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if s.Count() != 3 {
		t.Fatalf("Count = %d, want 3", s.Count())
	}

	hits, err := s.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}
	if hits[0].ID != "e0" {
		t.Errorf("top hit = %s, want e0", hits[0].ID)
	}
	if hits[0].Similarity < hits[1].Similarity {
		t.Error("hits not in descending similarity order")
	}
	if hits[0].Metadata["k"] != "a" {
		t.Errorf("metadata lost: %v", hits[0].Metadata)
	}

	vec, err := s.Reconstruct(ctx, "e2")
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if len(vec) != 3 || vec[1] != 1 {
		t.Errorf("reconstructed = %v", vec)
	}

	if _, err := s.Reconstruct(ctx, "missing"); !errors.Is(err, vectorindex.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSearchClampsK(t *testing.T) {
	s, err := New("clamp")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := s.Add(ctx, entries()[:1]); err != nil {
		t.Fatalf("Add: %v", err)
	}
	hits, err := s.Search(ctx, []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("Search with k beyond size: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("hits = %d, want 1", len(hits))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, err := New("persist")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := s.Add(ctx, entries()); err != nil {
		t.Fatalf("Add: %v", err)
	}

	path := filepath.Join(t.TempDir(), "store.db")
	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path, "persist")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Count() != 3 {
		t.Fatalf("loaded count = %d, want 3", loaded.Count())
	}
	hits, err := loaded.Search(ctx, []float32{0, 1, 0}, 1)
	if err != nil {
		t.Fatalf("Search after load: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "e2" {
		t.Fatalf("hits = %+v, want e2", hits)
	}
}

func TestLoadMissingCollection(t *testing.T) {
	s, err := New("here")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Add(context.Background(), entries()[:1]); err != nil {
		t.Fatalf("Add: %v", err)
	}
	path := filepath.Join(t.TempDir(), "store.db")
	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := Load(path, "elsewhere"); err == nil {
		t.Fatal("expected error loading a collection that was never saved")
	}
}
