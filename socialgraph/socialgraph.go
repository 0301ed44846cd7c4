// Package socialgraph computes one taste embedding per user by rating-
// weighted pooling of their full history, then derives a k-nearest-neighbor
// adjacency list over all users.
package socialgraph

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/Vandarkun/datasets/core"
	"github.com/Vandarkun/datasets/embedding"
	"github.com/Vandarkun/datasets/vectorindex"
	"github.com/Vandarkun/datasets/vectorindex/chromem"
)

// Config holds the neighbor-search settings.
type Config struct {
	// TopK is the number of neighbors kept per user.
	TopK int

	// MinReviews excludes thin users from the index entirely, not just
	// from neighbor results.
	MinReviews int

	// MinSimilarity drops weak edges.
	MinSimilarity float64

	// MaxSharedGenres caps the shared-genre list reported per edge.
	MaxSharedGenres int
}

// DefaultConfig returns the neighbor-search defaults.
var DefaultConfig = &Config{
	TopK:            5,
	MinReviews:      8,
	MinSimilarity:   0.25,
	MaxSharedGenres: 5,
}

// Builder computes the neighbor graph.
type Builder struct {
	embedder embedding.Provider
	cfg      *Config
}

// NewBuilder creates a social graph builder.
func NewBuilder(embedder embedding.Provider, cfg *Config) *Builder {
	if cfg == nil {
		cfg = DefaultConfig
	}
	return &Builder{embedder: embedder, cfg: cfg}
}

type userVector struct {
	userID      string
	genres      map[string]bool
	reviewCount int
	vec         []float32
}

// Build returns a neighbor record per indexed user, edges sorted strictly
// descending by similarity. Users below MinReviews are absent from both
// sides of the graph.
func (b *Builder) Build(ctx context.Context, users []core.UserHistory) ([]core.NeighborRecord, error) {
	vectors := make([]userVector, 0, len(users))
	for i := range users {
		u := &users[i]
		if len(u.Interactions) < b.cfg.MinReviews {
			continue
		}
		uv, err := b.poolUser(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("pool user %s: %w", u.UserID, err)
		}
		vectors = append(vectors, *uv)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no users met the minimum of %d reviews", b.cfg.MinReviews)
	}
	log.Printf("[GRAPH] Pooled %d user vectors (min reviews %d)", len(vectors), b.cfg.MinReviews)

	index, err := chromem.New("users")
	if err != nil {
		return nil, err
	}
	entries := make([]vectorindex.Entry, len(vectors))
	for i, uv := range vectors {
		entries[i] = vectorindex.Entry{
			ID:        uv.userID,
			Metadata:  map[string]string{"user_id": uv.userID},
			Embedding: uv.vec,
		}
	}
	if err := index.Add(ctx, entries); err != nil {
		return nil, err
	}

	records := make([]core.NeighborRecord, 0, len(vectors))
	byID := make(map[string]*userVector, len(vectors))
	for i := range vectors {
		byID[vectors[i].userID] = &vectors[i]
	}

	for i := range vectors {
		uv := &vectors[i]
		// One extra result accounts for the user's own vector, which always
		// matches itself with similarity 1.0.
		hits, err := index.Search(ctx, uv.vec, b.cfg.TopK+1)
		if err != nil {
			return nil, fmt.Errorf("neighbor search for %s: %w", uv.userID, err)
		}

		neighbors := make([]core.NeighborEdge, 0, b.cfg.TopK)
		for _, h := range hits {
			if h.ID == uv.userID {
				continue
			}
			if float64(h.Similarity) < b.cfg.MinSimilarity {
				continue
			}
			n := byID[h.ID]
			shared := sharedGenres(uv.genres, n.genres)
			count := len(shared)
			if count > b.cfg.MaxSharedGenres {
				shared = shared[:b.cfg.MaxSharedGenres]
			}
			neighbors = append(neighbors, core.NeighborEdge{
				UserID:              n.userID,
				Score:               float64(h.Similarity),
				SharedGenres:        shared,
				SharedGenreCount:    count,
				NeighborReviewCount: n.reviewCount,
			})
			if len(neighbors) >= b.cfg.TopK {
				break
			}
		}
		records = append(records, core.NeighborRecord{UserID: uv.userID, Neighbors: neighbors})
	}
	return records, nil
}

// poolUser embeds each interaction snippet and pools them with rating
// weights, renormalizing to unit length. A degenerate (zero) weighted sum
// falls back to the unweighted mean, which covers users whose extreme-
// rating weights cancel out.
func (b *Builder) poolUser(ctx context.Context, u *core.UserHistory) (*userVector, error) {
	interactions := make([]core.InteractionRecord, len(u.Interactions))
	copy(interactions, u.Interactions)
	sort.SliceStable(interactions, func(i, j int) bool {
		return interactions[i].Timestamp > interactions[j].Timestamp
	})

	snippets := make([]string, 0, len(interactions))
	weights := make([]float64, 0, len(interactions))
	genres := make(map[string]bool)
	for i := range interactions {
		text, weight, gs := composeSnippet(&interactions[i])
		snippets = append(snippets, text)
		weights = append(weights, weight)
		for _, g := range gs {
			if g != "" {
				genres[g] = true
			}
		}
	}

	vecs, err := b.embedder.EmbedBatch(ctx, snippets)
	if err != nil {
		return nil, err
	}

	dims := b.embedder.Dimensions()
	pooled := make([]float32, dims)
	for i, vec := range vecs {
		w := float32(weights[i])
		for j := range vec {
			pooled[j] += vec[j] * w
		}
	}
	if isZero(pooled) {
		for _, vec := range vecs {
			for j := range vec {
				pooled[j] += vec[j]
			}
		}
		inv := 1 / float32(len(vecs))
		for j := range pooled {
			pooled[j] *= inv
		}
	}
	embedding.Normalize(pooled)

	return &userVector{
		userID:      u.UserID,
		genres:      genres,
		reviewCount: len(u.Interactions),
		vec:         pooled,
	}, nil
}

// composeSnippet renders one interaction as embeddable text with its
// rating-derived pooling weight clamped to [0.3, 1.5].
func composeSnippet(r *core.InteractionRecord) (string, float64, []string) {
	review := r.ReviewText
	if review == "" {
		review = r.Summary
	}
	weight := 0.5 + r.Rating/5.0
	if weight < 0.3 {
		weight = 0.3
	}
	if weight > 1.5 {
		weight = 1.5
	}
	text := fmt.Sprintf("%s. Genres: %s. Rating: %.1f/5. Summary: %s. Review: %s",
		r.Meta.Title, strings.Join(r.Meta.Genres, ", "), r.Rating, r.Summary, review)
	return text, weight, r.Meta.Genres
}

func sharedGenres(a, b map[string]bool) []string {
	var shared []string
	for g := range a {
		if b[g] {
			shared = append(shared, g)
		}
	}
	sort.Strings(shared)
	return shared
}

func isZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}
