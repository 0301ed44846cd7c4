package dialogue

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Vandarkun/datasets/core"
	"github.com/Vandarkun/datasets/llm/stub"
)

func testProfile(userID string) *core.UserProfile {
	p := &core.UserProfile{
		UserID: userID,
		Reflections: core.Reflections{
			SpectatorPersona:     "A patient viewer who favors slow character studies.",
			AestheticPreferences: []string{"long takes", "ambiguous endings"},
		},
		DialogueStyle: core.DialogueStyle{
			Tone:      "dry",
			Verbosity: "terse",
		},
	}
	p.Normalize()
	return p
}

// passAllJudge answers every structured verdict positively and classifies
// every intent as the given label.
func passAllJudge(intent string) *stub.Client {
	return stub.New(
		`{"consistent": true, "coherent": true, "acceptable": true, "feedback": ""}`,
		stub.Rule{Match: "classify the viewer", Reply: intent},
	)
}

func TestStrategySelection(t *testing.T) {
	cases := []struct {
		turn, rejections int
		want             Strategy
	}{
		{1, 0, StrategyCasual},
		{2, 0, StrategyCritical},
		{3, 1, StrategyCritical},
		{4, 2, StrategyAccepting},
		{5, 3, StrategyAccepting},
	}
	for _, tc := range cases {
		s := &Session{TurnCount: tc.turn, RejectionCount: tc.rejections}
		if got := strategyFor(s, 2); got != tc.want {
			t.Errorf("turn=%d rejections=%d: got %s, want %s", tc.turn, tc.rejections, got, tc.want)
		}
	}
}

func TestStrategyNeverCriticalAtCap(t *testing.T) {
	// An INQUIRY at the cap leaves the counter untouched; the next
	// strategy must still be accepting.
	s := &Session{TurnCount: 5, RejectionCount: 2}
	if got := strategyFor(s, 2); got != StrategyAccepting {
		t.Fatalf("got %s, want accepting", got)
	}
}

func TestParseIntent(t *testing.T) {
	cases := []struct {
		raw  string
		want Intent
	}{
		{"ACCEPT", IntentAccept},
		{"REJECT", IntentReject},
		{"INQUIRY", IntentInquiry},
		{"The viewer clearly accepts the recommendation.", IntentAccept},
		{"rejected, they want something else", IntentReject},
		{"hard to say", IntentInquiry},
		{"", IntentInquiry},
	}
	for _, tc := range cases {
		if got := parseIntent(tc.raw); got != tc.want {
			t.Errorf("parseIntent(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

func TestRunAcceptFirstTurn(t *testing.T) {
	seeker := stub.New("Sounds perfect, I'll watch it tonight!")
	provider := stub.New("unused")
	judge := passAllJudge("ACCEPT")

	cfg := DefaultConfig()
	cfg.MaxTotalTurns = 3
	c := NewController(seeker, provider, judge, nil, nil, cfg)

	rec, err := c.Run(context.Background(), testProfile("u1"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !rec.Finished {
		t.Error("expected finished=true")
	}
	if rec.Termination != core.TerminationAccepted {
		t.Errorf("termination = %q, want %q", rec.Termination, core.TerminationAccepted)
	}
	if rec.Turns != 1 {
		t.Errorf("turns = %d, want 1", rec.Turns)
	}
	if rec.FinalRejectionCount != 0 {
		t.Errorf("rejections = %d, want 0", rec.FinalRejectionCount)
	}
	// Opening greeting plus one seeker message.
	if len(rec.Dialogue) != 2 {
		t.Fatalf("transcript length = %d, want 2", len(rec.Dialogue))
	}
	if rec.Dialogue[0].Role != core.RoleProvider || rec.Dialogue[0].Content != OpeningMessage {
		t.Errorf("transcript does not open with the greeting: %+v", rec.Dialogue[0])
	}
	if rec.Dialogue[1].Role != core.RoleSeeker {
		t.Errorf("second turn role = %q, want %q", rec.Dialogue[1].Role, core.RoleSeeker)
	}
}

func TestRunHitsTurnLimit(t *testing.T) {
	seeker := stub.New("No, not feeling that one.")
	provider := stub.New("Then how about something different?")
	judge := passAllJudge("REJECT")

	cfg := DefaultConfig()
	cfg.MaxTotalTurns = 3
	c := NewController(seeker, provider, judge, nil, nil, cfg)

	rec, err := c.Run(context.Background(), testProfile("u2"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.Finished {
		t.Error("expected finished=false on the turn-limit path")
	}
	if rec.Termination != core.TerminationMaxTurns {
		t.Errorf("termination = %q, want %q", rec.Termination, core.TerminationMaxTurns)
	}
	if rec.Turns != 3 {
		t.Errorf("turns = %d, want exactly 3", rec.Turns)
	}
	if rec.FinalRejectionCount != 3 {
		t.Errorf("rejections = %d, want 3", rec.FinalRejectionCount)
	}
	// Greeting + 3 seeker turns + 2 provider turns (no reply after the
	// final seeker turn).
	if len(rec.Dialogue) != 6 {
		t.Errorf("transcript length = %d, want 6", len(rec.Dialogue))
	}
}

func TestReviewGateRetriesWithFeedback(t *testing.T) {
	seeker := stub.New("bad draft",
		stub.Rule{Match: "Revision notes", Reply: "revised reply"},
	)
	judge := stub.New(
		`{"consistent": true, "coherent": true, "acceptable": true}`,
		stub.Rule{Match: "bad draft", Reply: `{"consistent": false, "feedback": "sound more reserved"}`},
	)

	cfg := DefaultConfig()
	c := NewController(seeker, stub.New(""), judge, nil, nil, cfg)
	s := NewSession(testProfile("u3"))
	s.TurnCount = 1

	out, err := c.runGate(context.Background(), s, "seeker", func(ctx context.Context, feedback []string) (string, error) {
		return c.generateSeeker(ctx, s, OpeningMessage, StrategyCasual, "No relevant memories.", feedback)
	}, []check{&profileConsistencyCheck{}, &coherenceCheck{}})
	if err != nil {
		t.Fatalf("runGate: %v", err)
	}
	if out != "revised reply" {
		t.Errorf("got %q, want the regenerated draft", out)
	}

	var revised int
	for _, call := range seeker.Calls() {
		if strings.Contains(call, "sound more reserved") {
			revised++
		}
	}
	if revised != 1 {
		t.Errorf("feedback appeared in %d generation calls, want 1", revised)
	}
}

func TestReviewGateExhaustionKeepsLastDraft(t *testing.T) {
	seeker := stub.New("stubborn draft")
	judge := stub.New(`{"consistent": false, "feedback": "never good enough"}`)

	cfg := DefaultConfig()
	cfg.ReviewRetries = 2
	c := NewController(seeker, stub.New(""), judge, nil, nil, cfg)
	s := NewSession(testProfile("u4"))
	s.TurnCount = 1

	out, err := c.runGate(context.Background(), s, "seeker", func(ctx context.Context, feedback []string) (string, error) {
		return c.generateSeeker(ctx, s, OpeningMessage, StrategyCasual, "No relevant memories.", feedback)
	}, []check{&profileConsistencyCheck{}})
	if err != nil {
		t.Fatalf("runGate: %v", err)
	}
	if out != "stubborn draft" {
		t.Errorf("got %q, want the last draft despite failing review", out)
	}
	if n := len(seeker.Calls()); n != 3 {
		t.Errorf("generation attempts = %d, want 3 (initial + 2 retries)", n)
	}
}

func TestJudgeErrorPassesThrough(t *testing.T) {
	seeker := stub.New("fine draft")
	judge := stub.New("", stub.Rule{Match: "Judge whether", Err: errors.New("judge down")})

	c := NewController(seeker, stub.New(""), judge, nil, nil, DefaultConfig())
	s := NewSession(testProfile("u5"))
	s.TurnCount = 1

	out, err := c.runGate(context.Background(), s, "seeker", func(ctx context.Context, feedback []string) (string, error) {
		return c.generateSeeker(ctx, s, OpeningMessage, StrategyCasual, "No relevant memories.", feedback)
	}, []check{&profileConsistencyCheck{}, &coherenceCheck{}})
	if err != nil {
		t.Fatalf("runGate: %v", err)
	}
	if out != "fine draft" {
		t.Errorf("got %q, want first draft when judges are unreachable", out)
	}
	if n := len(seeker.Calls()); n != 1 {
		t.Errorf("generation attempts = %d, want 1", n)
	}
}

func TestStructuralFormatCheck(t *testing.T) {
	cases := []struct {
		name      string
		candidate string
		ok        bool
	}{
		{"plain prose", "You might enjoy Heat, it has the patient pacing you like.", true},
		{"bullet list", "Here are some options:\n- Heat\n- Ronin", false},
		{"numbered list", "1. Heat\n2. Ronin\n3. Collateral", false},
		{"header", "## My recommendation\nHeat.", false},
		{"hyphenated prose", "It is a slow-burn thriller, not an action piece.", true},
	}
	var chk structuralFormatCheck
	for _, tc := range cases {
		ok, _ := chk.evaluate(context.Background(), nil, nil, tc.candidate)
		if ok != tc.ok {
			t.Errorf("%s: ok=%v, want %v", tc.name, ok, tc.ok)
		}
	}
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	seeker := stub.New("Sounds perfect, I'll take it!",
		stub.Rule{Match: "BROKEN-PERSONA", Err: errors.New("backend rejected prompt")},
	)
	provider := stub.New("unused")
	judge := passAllJudge("ACCEPT")

	cfg := DefaultConfig()
	cfg.MaxTotalTurns = 3
	c := NewController(seeker, provider, judge, nil, nil, cfg)

	broken := testProfile("bad")
	broken.Reflections.SpectatorPersona = "BROKEN-PERSONA"
	profiles := []*core.UserProfile{testProfile("a"), broken, testProfile("b")}

	records, failures := RunBatch(context.Background(), c, profiles, 2)
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].UserID != "a" || records[1].UserID != "b" {
		t.Errorf("submission order not preserved: %s, %s", records[0].UserID, records[1].UserID)
	}
	if len(failures) != 1 || failures[0].UserID != "bad" {
		t.Fatalf("failures = %+v, want one for user bad", failures)
	}
}
