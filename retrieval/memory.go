package retrieval

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/Vandarkun/datasets/embedding"
)

// Config holds memory retrieval settings.
type Config struct {
	// TopK memories per section.
	TopK int

	// MinSimilarity drops weak matches.
	MinSimilarity float64
}

// DefaultConfig returns the retrieval defaults.
var DefaultConfig = &Config{
	TopK:          3,
	MinSimilarity: 0.25,
}

// MemoryRetriever answers evidence lookups against the global memory index,
// partitioned by owning user.
type MemoryRetriever struct {
	index    *MemoryIndex
	embedder embedding.Provider
	byOwner  map[string][]int
	cfg      *Config
}

// NewMemoryRetriever builds the owner reverse index once at load time.
// A nil index produces a retriever whose lookups report the unavailable
// state rather than crashing.
func NewMemoryRetriever(index *MemoryIndex, embedder embedding.Provider, cfg *Config) *MemoryRetriever {
	if cfg == nil {
		cfg = DefaultConfig
	}
	r := &MemoryRetriever{index: index, embedder: embedder, cfg: cfg}
	if index != nil {
		r.byOwner = make(map[string][]int)
		for i, e := range index.Entries {
			r.byOwner[e.OwnerUserID] = append(r.byOwner[e.OwnerUserID], i)
		}
	}
	return r
}

// ScoredMemory is one ranked evidence hit.
type ScoredMemory struct {
	Entry      MemoryEntry
	Similarity float64
}

// RelatedState describes the related-users section of a lookup.
type RelatedState int

const (
	// RelatedDisabled: expansion turned off by configuration.
	RelatedDisabled RelatedState = iota

	// RelatedEmpty: expansion enabled but nothing cleared the threshold.
	RelatedEmpty

	// RelatedFound: at least one related-user memory matched.
	RelatedFound
)

// Evidence is the partitioned result of one lookup. Self and related
// sections are computed, thresholded, and ranked independently; a related
// hit never substitutes for an empty self section.
type Evidence struct {
	Self    []ScoredMemory
	Related []ScoredMemory
	State   RelatedState
}

// Lookup embeds the query once and ranks the caller's own memories and,
// when enabled, those of related users. Returns ErrIndexUnavailable when
// the backing index never loaded.
func (r *MemoryRetriever) Lookup(ctx context.Context, query, userID string, relatedIDs []string, relatedEnabled bool) (*Evidence, error) {
	if r.index == nil {
		return nil, ErrIndexUnavailable
	}

	qvec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	self, err := r.rank(ctx, qvec, []string{userID})
	if err != nil {
		return nil, err
	}

	ev := &Evidence{Self: self, State: RelatedDisabled}
	if relatedEnabled {
		related, err := r.rank(ctx, qvec, relatedIDs)
		if err != nil {
			return nil, err
		}
		ev.Related = related
		if len(related) > 0 {
			ev.State = RelatedFound
		} else {
			ev.State = RelatedEmpty
		}
	}
	log.Printf("[RETRIEVAL] Lookup for %s: %d self, %d related (query %q)",
		userID, len(ev.Self), len(ev.Related), truncate(query, 50))
	return ev, nil
}

// rank scores every memory owned by the given users against the query
// vector, reconstructing stored embeddings from the index.
func (r *MemoryRetriever) rank(ctx context.Context, qvec []float32, owners []string) ([]ScoredMemory, error) {
	var hits []ScoredMemory
	for _, owner := range owners {
		for _, pos := range r.byOwner[owner] {
			vec, err := r.index.Index.Reconstruct(ctx, memoryID(pos))
			if err != nil {
				return nil, fmt.Errorf("reconstruct position %d: %w", pos, err)
			}
			sim := float64(embedding.Dot(qvec, vec))
			if sim < r.cfg.MinSimilarity {
				continue
			}
			hits = append(hits, ScoredMemory{Entry: r.index.Entries[pos], Similarity: sim})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})
	if len(hits) > r.cfg.TopK {
		hits = hits[:r.cfg.TopK]
	}
	return hits, nil
}

// Format renders the evidence with explicit section labels. Empty sections
// say so instead of disappearing, so "no relevant memories" is always
// distinguishable from "index unavailable" (which surfaces as an error
// before formatting).
func (e *Evidence) Format() string {
	var sb strings.Builder

	sb.WriteString("### Your own memories\n")
	if len(e.Self) == 0 {
		sb.WriteString("No relevant memories. Rely on general aesthetic preferences.\n")
	} else {
		for _, m := range e.Self {
			fmt.Fprintf(&sb, "Film: %s | Rating: %.1f | Review: %s\n",
				m.Entry.ItemTitle, m.Entry.Rating, m.Entry.MemoryText)
		}
	}

	sb.WriteString("### Memories from similar viewers\n")
	switch e.State {
	case RelatedDisabled:
		sb.WriteString("Disabled by config.\n")
	case RelatedEmpty:
		sb.WriteString("No relevant memories.\n")
	default:
		for _, m := range e.Related {
			fmt.Fprintf(&sb, "Film: %s | Rating: %.1f | Review: %s\n",
				m.Entry.ItemTitle, m.Entry.Rating, m.Entry.MemoryText)
		}
	}
	return sb.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
