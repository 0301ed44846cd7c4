// Package profile builds persona profiles from sampled interaction history
// through a three-step completion chain: evidence memories, reflections,
// and dialogue style.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/Vandarkun/datasets/core"
	"github.com/Vandarkun/datasets/llm"
	"github.com/Vandarkun/datasets/sampler"
)

// ErrNoEvidence marks a user whose history yielded no usable samples or no
// extracted memories. No profile is produced for such users.
var ErrNoEvidence = errors.New("no usable evidence for profile")

// Config holds profile builder settings.
type Config struct {
	// Temperature for the extraction calls. Low, for stable structure.
	Temperature float64
}

// DefaultConfig returns the builder defaults.
var DefaultConfig = &Config{
	Temperature: 0.1,
}

// Builder orchestrates the completion chain per user.
type Builder struct {
	client    llm.Client
	neighbors map[string][]string
	cfg       *Config
}

// NewBuilder creates a profile builder. neighbors may be nil when
// related-user expansion is disabled.
func NewBuilder(client llm.Client, neighbors map[string][]string, cfg *Config) *Builder {
	if cfg == nil {
		cfg = DefaultConfig
	}
	return &Builder{client: client, neighbors: neighbors, cfg: cfg}
}

// Build produces the persona profile for one user, or ErrNoEvidence when
// the history has nothing to build on. Any completion failure in the chain
// fails the whole profile; partial profiles are never produced.
func (b *Builder) Build(ctx context.Context, user *core.UserHistory) (*core.UserProfile, error) {
	sampled := sampler.Sample(user.Interactions)
	if len(sampled) == 0 {
		return nil, fmt.Errorf("%w: user %s", ErrNoEvidence, user.UserID)
	}

	evidence := formatEvidence(sampled)
	dateRange := fmt.Sprintf("%s to %s", sampled[0].Date(), sampled[len(sampled)-1].Date())

	memories, err := b.extractMemories(ctx, evidence)
	if err != nil {
		return nil, fmt.Errorf("extract memories for %s: %w", user.UserID, err)
	}
	if len(memories) == 0 {
		return nil, fmt.Errorf("%w: user %s produced no memories", ErrNoEvidence, user.UserID)
	}

	reflections, err := b.synthesizeReflections(ctx, evidence, memories, dateRange)
	if err != nil {
		return nil, fmt.Errorf("synthesize reflections for %s: %w", user.UserID, err)
	}

	style, err := b.analyzeStyle(ctx, evidence)
	if err != nil {
		return nil, fmt.Errorf("analyze style for %s: %w", user.UserID, err)
	}

	p := &core.UserProfile{
		UserID: user.UserID,
		MetaStats: core.MetaStats{
			TotalReviews: len(user.Interactions),
			Sampled:      len(sampled),
			TimeSpan:     dateRange,
		},
		KeyMemories:   memories,
		Reflections:   *reflections,
		DialogueStyle: *style,
		RelatedUsers:  b.neighbors[user.UserID],
	}
	p.Normalize()
	log.Printf("[PROFILE] Built profile for %s (%d memories, span %s)", user.UserID, len(memories), dateRange)
	return p, nil
}

// formatEvidence renders sampled records into the context blob all three
// chain steps consume.
func formatEvidence(sampled []core.InteractionRecord) string {
	var sb strings.Builder
	for _, r := range sampled {
		fmt.Fprintf(&sb, "--- Date: %s ---\n", r.Date())
		fmt.Fprintf(&sb, "Movie: %s (%s)\n", r.Meta.Title, r.Meta.ReleaseYear)
		fmt.Fprintf(&sb, "Director: %s\n", strings.Join(r.Meta.Director, ", "))
		fmt.Fprintf(&sb, "Rating: %.1f/5.0\n", r.Rating)
		fmt.Fprintf(&sb, "Review: %s\n\n", r.ReviewText)
	}
	return sb.String()
}

func (b *Builder) extractMemories(ctx context.Context, evidence string) ([]core.MemoryItem, error) {
	system := llm.WithSchema(
		"Analyze reviews. Extract concise key memories. Focus on WHY they liked/disliked specific movies.",
		memoryListSchema)
	raw, err := b.client.Complete(ctx, &llm.Request{
		System:      system,
		Messages:    []llm.Message{{Role: "user", Content: evidence}},
		Temperature: b.cfg.Temperature,
		WantJSON:    true,
	})
	if err != nil {
		return nil, err
	}
	var decoded memoryList
	if err := llm.DecodeJSON(raw, &decoded); err != nil {
		return nil, err
	}
	return decoded.Memories, nil
}

func (b *Builder) synthesizeReflections(ctx context.Context, evidence string, memories []core.MemoryItem, dateRange string) (*core.Reflections, error) {
	var summary strings.Builder
	for _, m := range memories {
		fmt.Fprintf(&summary, "- %s: %s\n", m.ItemTitle, m.MemoryText)
	}

	system := llm.WithSchema(fmt.Sprintf(`You are a psychologist profiling a movie viewer based on their review history (%s).

Summarized Memories:
%s
Task:
1. **Identify Taste Evolution**: Did their taste change over the years? (e.g. Action -> Family).
2. **Identify Stable Core**: What stayed the same?
3. **Reflect on Context**: Infer life changes based on the timeline.`, dateRange, summary.String()),
		reflectionsSchema)

	raw, err := b.client.Complete(ctx, &llm.Request{
		System:      system,
		Messages:    []llm.Message{{Role: "user", Content: evidence}},
		Temperature: b.cfg.Temperature,
		WantJSON:    true,
	})
	if err != nil {
		return nil, err
	}
	var decoded reflectionsResponse
	if err := llm.DecodeJSON(raw, &decoded); err != nil {
		return nil, err
	}
	return &core.Reflections{
		AestheticPreferences: decoded.AestheticPreferences,
		SpectatorPersona:     decoded.SpectatorPersona,
		DecisionLogic:        decoded.DecisionLogic,
		TasteEvolution:       decoded.TasteEvolution,
		Contradictions:       decoded.Contradictions,
	}, nil
}

func (b *Builder) analyzeStyle(ctx context.Context, evidence string) (*core.DialogueStyle, error) {
	system := llm.WithSchema(
		"Analyze the writing style (tone, verbosity, keywords) to help a chatbot mimic this user.",
		styleSchema)
	raw, err := b.client.Complete(ctx, &llm.Request{
		System:      system,
		Messages:    []llm.Message{{Role: "user", Content: evidence}},
		Temperature: b.cfg.Temperature,
		WantJSON:    true,
	})
	if err != nil {
		return nil, err
	}
	var decoded styleResponse
	if err := llm.DecodeJSON(raw, &decoded); err != nil {
		return nil, err
	}
	return &core.DialogueStyle{
		Tone:            decoded.Tone,
		Verbosity:       decoded.Verbosity,
		CommonKeywords:  decoded.CommonKeywords,
		ReviewStructure: decoded.ReviewStructure,
	}, nil
}
