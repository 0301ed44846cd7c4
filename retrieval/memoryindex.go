// Package retrieval provides the online evidence lookups used during
// dialogue: the global memory index partitioned by owning user, and the
// item catalog searched for recommendations.
package retrieval

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/Vandarkun/datasets/core"
	"github.com/Vandarkun/datasets/embedding"
	"github.com/Vandarkun/datasets/vectorindex"
	"github.com/Vandarkun/datasets/vectorindex/chromem"
)

// Typed failure states of index loading.
var (
	// ErrIndexUnavailable marks lookups against an index that never loaded.
	ErrIndexUnavailable = errors.New("memory index unavailable")

	// ErrMetadataMismatch marks a metadata list that does not align
	// positionally with the vector index.
	ErrMetadataMismatch = errors.New("index/metadata mismatch")
)

// MemoryEntry is the metadata side of one global memory index position.
type MemoryEntry struct {
	OwnerUserID string  `json:"owner_user_id"`
	ItemTitle   string  `json:"movie_title"`
	Rating      float64 `json:"rating"`
	MemoryText  string  `json:"memory_text"`
}

const memoryCollection = "memories"

// memoryID is the positional vector id for entry i.
func memoryID(i int) string {
	return "mem-" + strconv.Itoa(i)
}

// MemoryIndex pairs the vector index with its positionally aligned
// metadata list.
type MemoryIndex struct {
	Index   vectorindex.Index
	Entries []MemoryEntry
}

// BuildMemoryIndex embeds every memory of every profile into one global
// index. Entry order follows profile order, memory order within profile.
func BuildMemoryIndex(ctx context.Context, profiles []*core.UserProfile, embedder embedding.Provider) (*MemoryIndex, error) {
	var entries []MemoryEntry
	var texts []string
	for _, p := range profiles {
		for _, m := range p.KeyMemories {
			entries = append(entries, MemoryEntry{
				OwnerUserID: p.UserID,
				ItemTitle:   m.ItemTitle,
				Rating:      m.Rating,
				MemoryText:  m.MemoryText,
			})
			texts = append(texts, m.ItemTitle+": "+m.MemoryText)
		}
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no memories across %d profiles", len(profiles))
	}

	vecs, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed memories: %w", err)
	}

	store, err := chromem.New(memoryCollection)
	if err != nil {
		return nil, err
	}
	idxEntries := make([]vectorindex.Entry, len(entries))
	for i, e := range entries {
		idxEntries[i] = vectorindex.Entry{
			ID:      memoryID(i),
			Content: texts[i],
			Metadata: map[string]string{
				"owner_user_id": e.OwnerUserID,
				"movie_title":   e.ItemTitle,
			},
			Embedding: vecs[i],
		}
	}
	if err := store.Add(ctx, idxEntries); err != nil {
		return nil, err
	}
	log.Printf("[RETRIEVAL] Built memory index: %d memories from %d profiles", len(entries), len(profiles))
	return &MemoryIndex{Index: store, Entries: entries}, nil
}

// Save writes the paired (vector-index, metadata-list) artifact.
func (m *MemoryIndex) Save(indexPath, metaPath string) error {
	persistent, ok := m.Index.(vectorindex.Persistent)
	if !ok {
		return fmt.Errorf("index backend is not persistent")
	}
	if err := persistent.Save(indexPath); err != nil {
		return err
	}
	f, err := os.Create(metaPath)
	if err != nil {
		return fmt.Errorf("create metadata file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, e := range m.Entries {
		line, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	return w.Flush()
}

// LoadMemoryIndex loads the paired artifact, failing fast when metadata and
// index disagree: every metadata position must reconstruct, and counts must
// match exactly, so evidence is never silently misattributed.
func LoadMemoryIndex(ctx context.Context, indexPath, metaPath string) (*MemoryIndex, error) {
	store, err := chromem.Load(indexPath, memoryCollection)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	f, err := os.Open(metaPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	defer f.Close()

	var entries []MemoryEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e MemoryEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("%w: bad metadata line %d: %v", ErrMetadataMismatch, len(entries)+1, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	if store.Count() != len(entries) {
		return nil, fmt.Errorf("%w: index has %d vectors, metadata has %d entries",
			ErrMetadataMismatch, store.Count(), len(entries))
	}
	for i := range entries {
		if _, err := store.Reconstruct(ctx, memoryID(i)); err != nil {
			return nil, fmt.Errorf("%w: position %d missing from index", ErrMetadataMismatch, i)
		}
	}
	log.Printf("[RETRIEVAL] Loaded memory index: %d entries", len(entries))
	return &MemoryIndex{Index: store, Entries: entries}, nil
}
