package profile

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Vandarkun/datasets/core"
	"github.com/Vandarkun/datasets/llm/stub"
)

const (
	memoriesReply = `{"memories": [
		{"movie_title": "Solaris", "rating": 5, "memory_text": "loved the hypnotic pacing"},
		{"movie_title": "Transformers", "rating": 1, "memory_text": "found it loud and hollow"}
	]}`
	reflectionsReply = `{
		"aesthetic_preferences": ["slow cinema", "ambiguity"],
		"spectator_persona": "Contemplative Cinephile",
		"decision_logic": "Picks by director, avoids blockbusters",
		"taste_evolution": "Drifted from sci-fi spectacle to art house",
		"contradictions": "Secretly enjoys heist movies"
	}`
	styleReply = `{
		"tone": "measured",
		"verbosity": "long-form",
		"common_keywords": ["pacing", "atmosphere"],
		"review_structure": "context first, verdict last"
	}`
)

// chainStub scripts the three-step chain by matching each step's system
// prompt.
func chainStub() *stub.Client {
	return stub.New("",
		stub.Rule{Match: "Extract concise key memories", Reply: memoriesReply},
		stub.Rule{Match: "You are a psychologist", Reply: reflectionsReply},
		stub.Rule{Match: "Analyze the writing style", Reply: styleReply},
	)
}

func reviewedHistory(userID string, n int) *core.UserHistory {
	h := &core.UserHistory{UserID: userID, ReviewCount: n}
	for i := 0; i < n; i++ {
		h.Interactions = append(h.Interactions, core.InteractionRecord{
			Timestamp:  int64(i) * 86400,
			Rating:     float64(1 + i%5),
			ReviewText: strings.Repeat("thoughtful words ", 5),
			ItemID:     string(rune('a' + i)),
			Meta:       core.ItemMeta{Title: "Film"},
		})
	}
	return h
}

func TestBuildProfile(t *testing.T) {
	neighbors := map[string][]string{"u1": {"u7", "u9"}}
	b := NewBuilder(chainStub(), neighbors, nil)

	p, err := b.Build(context.Background(), reviewedHistory("u1", 10))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if p.UserID != "u1" {
		t.Errorf("user id = %q", p.UserID)
	}
	if len(p.KeyMemories) != 2 || p.KeyMemories[0].ItemTitle != "Solaris" {
		t.Errorf("memories = %+v", p.KeyMemories)
	}
	if p.Reflections.SpectatorPersona != "Contemplative Cinephile" {
		t.Errorf("persona = %q", p.Reflections.SpectatorPersona)
	}
	if p.DialogueStyle.Tone != "measured" {
		t.Errorf("tone = %q", p.DialogueStyle.Tone)
	}
	if len(p.RelatedUsers) != 2 {
		t.Errorf("related users = %v, want the neighbor map entry", p.RelatedUsers)
	}
	if p.MetaStats.TotalReviews != 10 {
		t.Errorf("total reviews = %d, want 10", p.MetaStats.TotalReviews)
	}
	if p.MetaStats.Sampled == 0 || p.MetaStats.Sampled > 10 {
		t.Errorf("sampled = %d", p.MetaStats.Sampled)
	}
	if p.MetaStats.TimeSpan == "" {
		t.Error("time span empty")
	}
}

func TestBuildNoEvidence(t *testing.T) {
	b := NewBuilder(chainStub(), nil, nil)

	// All reviews too short to survive sampling.
	h := &core.UserHistory{UserID: "u2", Interactions: []core.InteractionRecord{
		{Timestamp: 1, Rating: 5, ReviewText: "meh"},
	}}
	if _, err := b.Build(context.Background(), h); !errors.Is(err, ErrNoEvidence) {
		t.Fatalf("err = %v, want ErrNoEvidence", err)
	}
}

func TestBuildEmptyMemoriesIsNoEvidence(t *testing.T) {
	client := stub.New("",
		stub.Rule{Match: "Extract concise key memories", Reply: `{"memories": []}`},
	)
	b := NewBuilder(client, nil, nil)
	if _, err := b.Build(context.Background(), reviewedHistory("u3", 10)); !errors.Is(err, ErrNoEvidence) {
		t.Fatalf("err = %v, want ErrNoEvidence", err)
	}
}

func TestBuildChainStepFailureIsFatal(t *testing.T) {
	// Memories succeed but reflections return garbage; no partial
	// profile may come out.
	client := stub.New("not json at all",
		stub.Rule{Match: "Extract concise key memories", Reply: memoriesReply},
	)
	b := NewBuilder(client, nil, nil)
	if p, err := b.Build(context.Background(), reviewedHistory("u4", 10)); err == nil {
		t.Fatalf("expected error, got profile %+v", p)
	}
}

func TestBuildAllIsolatesFailures(t *testing.T) {
	boom := errors.New("backend down")
	client := stub.New("",
		stub.Rule{Match: "FAILING-REVIEW-MARKER", Err: boom},
		stub.Rule{Match: "Extract concise key memories", Reply: memoriesReply},
		stub.Rule{Match: "You are a psychologist", Reply: reflectionsReply},
		stub.Rule{Match: "Analyze the writing style", Reply: styleReply},
	)
	b := NewBuilder(client, nil, nil)

	bad := reviewedHistory("bad", 10)
	for i := range bad.Interactions {
		bad.Interactions[i].ReviewText = "FAILING-REVIEW-MARKER " + strings.Repeat("x", 30)
	}
	users := []core.UserHistory{*reviewedHistory("a", 10), *bad, *reviewedHistory("b", 10)}

	profiles, failures := b.BuildAll(context.Background(), users, 2)
	if len(profiles) != 2 {
		t.Fatalf("profiles = %d, want 2", len(profiles))
	}
	if profiles[0].UserID != "a" || profiles[1].UserID != "b" {
		t.Errorf("submission order not preserved: %s, %s", profiles[0].UserID, profiles[1].UserID)
	}
	if len(failures) != 1 || failures[0].UserID != "bad" {
		t.Fatalf("failures = %+v, want one for user bad", failures)
	}
	if !errors.Is(failures[0].Err, boom) {
		t.Errorf("failure cause = %v, want wrapped backend error", failures[0].Err)
	}
}
