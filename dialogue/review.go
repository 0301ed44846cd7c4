package dialogue

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/Vandarkun/datasets/llm"
)

// check is one review criterion applied to a generated turn. A check that
// cannot run (judge call failed, malformed verdict) must report pass so a
// broken judge never blocks the dialogue.
type check interface {
	name() string
	evaluate(ctx context.Context, c *Controller, s *Session, candidate string) (ok bool, feedback string)
}

// runGate generates a turn and re-generates up to ReviewRetries times
// while any check fails, feeding the accumulated feedback back into
// generation. When retries are exhausted the last candidate is used
// as-is; review never discards a turn outright.
func (c *Controller) runGate(ctx context.Context, s *Session, side string, generate func(ctx context.Context, feedback []string) (string, error), checks []check) (string, error) {
	var feedback []string
	var candidate string

	for attempt := 0; attempt <= c.cfg.ReviewRetries; attempt++ {
		out, err := generate(ctx, feedback)
		if err != nil {
			return "", fmt.Errorf("%s generation: %w", side, err)
		}
		candidate = strings.TrimSpace(out)

		var failures []string
		for _, ch := range checks {
			ok, fb := ch.evaluate(ctx, c, s, candidate)
			if !ok {
				if fb == "" {
					fb = ch.name() + " check failed"
				}
				failures = append(failures, fb)
			}
		}
		if len(failures) == 0 {
			return candidate, nil
		}
		log.Printf("[REVIEW] session %s %s attempt %d/%d rejected: %s",
			s.ID, side, attempt+1, c.cfg.ReviewRetries+1, strings.Join(failures, "; "))
		feedback = failures
	}

	log.Printf("[REVIEW] session %s %s retries exhausted, keeping last candidate", s.ID, side)
	return candidate, nil
}

// judgeBool runs a yes/no judge call and decodes its verdict. Any failure
// returns ok=true: judges only ever veto, never block.
func (c *Controller) judgeBool(ctx context.Context, s *Session, system, input, field string) (ok bool, feedback string) {
	schema := llm.SchemaText(llm.ObjectSchema(map[string]interface{}{
		field:      llm.BooleanProperty("the verdict"),
		"feedback": llm.StringProperty("One concrete sentence on what to fix; empty when the verdict is true"),
	}, field))

	raw, err := c.judgeClient.Complete(ctx, &llm.Request{
		System:      llm.WithSchema(system, schema),
		Messages:    []llm.Message{{Role: "user", Content: input}},
		Temperature: c.cfg.JudgeTemperature,
		WantJSON:    true,
	})
	if err != nil {
		log.Printf("[REVIEW] session %s judge call failed, passing: %v", s.ID, err)
		return true, ""
	}

	var verdict map[string]interface{}
	if err := llm.DecodeJSON(raw, &verdict); err != nil {
		log.Printf("[REVIEW] session %s judge verdict malformed, passing: %v", s.ID, err)
		return true, ""
	}
	pass, isBool := verdict[field].(bool)
	if !isBool {
		return true, ""
	}
	fb, _ := verdict["feedback"].(string)
	return pass, fb
}

// profileConsistencyCheck asks the judge whether the seeker's draft could
// plausibly have been written by the profiled viewer.
type profileConsistencyCheck struct{}

func (profileConsistencyCheck) name() string { return "profile consistency" }

func (profileConsistencyCheck) evaluate(ctx context.Context, c *Controller, s *Session, candidate string) (bool, string) {
	p := s.Profile
	var b strings.Builder
	b.WriteString("Viewer persona: " + p.Reflections.SpectatorPersona + "\n")
	if len(p.Reflections.AestheticPreferences) > 0 {
		b.WriteString("Preferences: " + strings.Join(p.Reflections.AestheticPreferences, "; ") + "\n")
	}
	fmt.Fprintf(&b, "Tone: %s. Verbosity: %s.\n", p.DialogueStyle.Tone, p.DialogueStyle.Verbosity)
	b.WriteString("\nDraft message:\n" + candidate)

	return c.judgeBool(ctx, s,
		"Judge whether this draft message is consistent with the viewer persona described: same tastes, same tone, no preferences the persona would not hold.",
		b.String(), "consistent")
}

// coherenceCheck asks the judge whether the draft follows from the recent
// conversation.
type coherenceCheck struct{}

func (coherenceCheck) name() string { return "coherence" }

const coherenceWindow = 4

func (coherenceCheck) evaluate(ctx context.Context, c *Controller, s *Session, candidate string) (bool, string) {
	var b strings.Builder
	b.WriteString("Recent conversation:\n")
	for _, t := range s.recentTurns(coherenceWindow) {
		b.WriteString(t.Role + ": " + t.Content + "\n")
	}
	b.WriteString("\nDraft reply:\n" + candidate)

	return c.judgeBool(ctx, s,
		"Judge whether the draft reply coherently continues the recent conversation: it addresses what was just said and contradicts nothing established earlier.",
		b.String(), "coherent")
}

// structuralFormatCheck is the provider's local format gate. It is
// deterministic and runs without any model call: no list markers, no
// markdown headers, no enumerated multi-recommendation output.
type structuralFormatCheck struct{}

func (structuralFormatCheck) name() string { return "structural format" }

var (
	listMarkerRe = regexp.MustCompile(`(?m)^\s*(?:[-*•]|\d+[.)])\s+`)
	headerRe     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
)

func (structuralFormatCheck) evaluate(_ context.Context, _ *Controller, _ *Session, candidate string) (bool, string) {
	if headerRe.MatchString(candidate) {
		return false, "drop the section headers, answer in plain conversational prose"
	}
	markers := listMarkerRe.FindAllString(candidate, -1)
	if len(markers) > 0 {
		if len(markers) > 1 {
			return false, "you listed several options, recommend exactly one movie in plain prose"
		}
		return false, "drop the list formatting, answer in plain conversational prose"
	}
	return true, ""
}

// recommendationQualityCheck asks the judge whether the provider's draft
// is a single relevant recommendation that respects the viewer's stated
// objections.
type recommendationQualityCheck struct{}

func (recommendationQualityCheck) name() string { return "recommendation quality" }

func (recommendationQualityCheck) evaluate(ctx context.Context, c *Controller, s *Session, candidate string) (bool, string) {
	var b strings.Builder
	b.WriteString("Recent conversation:\n")
	for _, t := range s.recentTurns(coherenceWindow) {
		b.WriteString(t.Role + ": " + t.Content + "\n")
	}
	b.WriteString("\nDraft recommendation:\n" + candidate)

	return c.judgeBool(ctx, s,
		"Judge whether the draft recommends exactly one movie, relevant to what the viewer asked for, without repeating a title already suggested and without ignoring an objection the viewer raised.",
		b.String(), "acceptable")
}
