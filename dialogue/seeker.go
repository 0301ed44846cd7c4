package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/Vandarkun/datasets/core"
	"github.com/Vandarkun/datasets/llm"
	"github.com/Vandarkun/datasets/retrieval"
)

// queryPlan is the seeker's typed retrieval decision, produced by a
// dedicated completion call before generation.
type queryPlan struct {
	Query string `json:"query"`
}

func (p *queryPlan) Validate() error {
	if strings.TrimSpace(p.Query) == "" {
		return errors.New("empty query")
	}
	return nil
}

var queryPlanSchema = llm.SchemaText(llm.ObjectSchema(map[string]interface{}{
	"query": llm.StringProperty("Short search query over the viewer's movie memories, phrased from the assistant's last message"),
}, "query"))

// seekerTurn runs the seeker's full gated generation: plan one memory
// query, retrieve evidence once, then generate through the review gate.
func (c *Controller) seekerTurn(ctx context.Context, s *Session, providerMsg string, strategy Strategy) (string, error) {
	evidence := c.seekerEvidence(ctx, s, providerMsg)

	generate := func(ctx context.Context, feedback []string) (string, error) {
		return c.generateSeeker(ctx, s, providerMsg, strategy, evidence, feedback)
	}

	checks := []check{
		&profileConsistencyCheck{},
		&coherenceCheck{},
	}
	return c.runGate(ctx, s, "seeker", generate, checks)
}

// seekerEvidence plans and executes at most maxRetrievalCallsPerTurn
// memory lookups. Any failure along the way degrades to an explicit
// unavailable label so generation proceeds without memories.
func (c *Controller) seekerEvidence(ctx context.Context, s *Session, providerMsg string) string {
	if c.memories == nil {
		return "Memory retrieval unavailable."
	}

	query := providerMsg
	plan, err := c.planQuery(ctx, s, providerMsg)
	if err != nil {
		log.Printf("[DIALOGUE] session %s query plan failed, using raw message: %v", s.ID, err)
	} else {
		query = plan.Query
	}

	var related []string
	if c.cfg.RelatedMemories {
		related = s.Profile.RelatedUsers
	}
	ev, err := c.memories.Lookup(ctx, query, s.Profile.UserID, related, c.cfg.RelatedMemories)
	if err != nil {
		if errors.Is(err, retrieval.ErrIndexUnavailable) {
			return "Memory retrieval unavailable."
		}
		log.Printf("[DIALOGUE] session %s memory lookup failed: %v", s.ID, err)
		return "Memory retrieval unavailable."
	}
	return ev.Format()
}

func (c *Controller) planQuery(ctx context.Context, s *Session, providerMsg string) (*queryPlan, error) {
	system := llm.WithSchema(
		"You translate the movie assistant's last message into one short query for searching the viewer's personal movie memories.",
		queryPlanSchema)
	raw, err := c.seekerClient.Complete(ctx, &llm.Request{
		System: system,
		Messages: []llm.Message{
			{Role: "user", Content: "Assistant said: " + providerMsg},
		},
		Temperature: c.cfg.JudgeTemperature,
		WantJSON:    true,
	})
	if err != nil {
		return nil, err
	}
	var plan queryPlan
	if err := llm.DecodeJSON(raw, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (c *Controller) generateSeeker(ctx context.Context, s *Session, providerMsg string, strategy Strategy, evidence string, feedback []string) (string, error) {
	system := seekerSystemPrompt(s.Profile, strategy, evidence)

	msgs := historyAs(s.Turns, core.RoleSeeker)
	if len(msgs) == 0 || msgs[len(msgs)-1].Role != "user" {
		msgs = append(msgs, llm.Message{Role: "user", Content: providerMsg})
	}
	if len(feedback) > 0 {
		last := &msgs[len(msgs)-1]
		last.Content += "\n\n[Revision notes from your previous draft, address them without mentioning them:\n- " +
			strings.Join(feedback, "\n- ") + "]"
	}

	return c.seekerClient.Complete(ctx, &llm.Request{
		System:      system,
		Messages:    msgs,
		Temperature: c.cfg.SeekerTemperature,
	})
}

func seekerSystemPrompt(p *core.UserProfile, strategy Strategy, evidence string) string {
	var b strings.Builder
	b.WriteString("You are role-playing a real movie viewer talking to a movie recommendation assistant. Stay fully in character. Never reveal you are an AI or that this is a simulation.\n\n")

	b.WriteString("## Who you are\n")
	b.WriteString(p.Reflections.SpectatorPersona)
	b.WriteString("\n\n")

	if len(p.Reflections.AestheticPreferences) > 0 {
		b.WriteString("Aesthetic preferences: " + strings.Join(p.Reflections.AestheticPreferences, "; ") + "\n")
	}
	if p.Reflections.DecisionLogic != "" {
		b.WriteString("How you decide what to watch: " + p.Reflections.DecisionLogic + "\n")
	}
	if p.Reflections.TasteEvolution != "" {
		b.WriteString("How your taste has changed: " + p.Reflections.TasteEvolution + "\n")
	}
	if p.Reflections.Contradictions != "" {
		b.WriteString("Contradictions in your taste: " + p.Reflections.Contradictions + "\n")
	}

	b.WriteString("\n## How you talk\n")
	fmt.Fprintf(&b, "Tone: %s. Verbosity: %s.\n", p.DialogueStyle.Tone, p.DialogueStyle.Verbosity)
	if len(p.DialogueStyle.CommonKeywords) > 0 {
		b.WriteString("Words you tend to use: " + strings.Join(p.DialogueStyle.CommonKeywords, ", ") + "\n")
	}
	if p.DialogueStyle.ReviewStructure != "" {
		b.WriteString("Typical structure of your opinions: " + p.DialogueStyle.ReviewStructure + "\n")
	}

	b.WriteString("\n## Relevant memories\n")
	b.WriteString(evidence)
	b.WriteString("\n\n## This turn\n")
	b.WriteString(strategyInstruction(strategy))
	b.WriteString("\nReply with one short conversational message, in character, first person. No lists, no headers.")
	return b.String()
}

func strategyInstruction(s Strategy) string {
	switch s {
	case StrategyCasual:
		return "The conversation is just starting. Respond casually and openly. Mention what kind of mood you are in or what you might feel like watching, without committing to anything."
	case StrategyCritical:
		return "Be skeptical and demanding. If the assistant recommended a movie, find a concrete flaw from your own taste and memories and push back, or ask a probing question. Do not accept yet."
	case StrategyAccepting:
		return "You have pushed back enough. If the assistant's recommendation is at all plausible for your taste, accept it enthusiastically and say you will watch it."
	default:
		return "Respond naturally in character."
	}
}

// historyAs maps the transcript into completion messages from the
// perspective of selfRole: its own turns become "assistant", the other
// side's "user".
func historyAs(turns []core.Turn, selfRole string) []llm.Message {
	msgs := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Role == selfRole {
			role = "assistant"
		}
		msgs = append(msgs, llm.Message{Role: role, Content: t.Content})
	}
	return msgs
}
