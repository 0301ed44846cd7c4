package dialogue

import (
	"context"
	"log"
	"strings"

	"github.com/Vandarkun/datasets/core"
	"github.com/Vandarkun/datasets/llm"
	"github.com/Vandarkun/datasets/retrieval"
)

// searchPlan is the provider's typed catalog-search decision. Every title
// it has already recommended in this session travels in ExcludeTitles so
// the catalog never returns a repeat.
type searchPlan struct {
	Keywords      string   `json:"keywords"`
	ExcludeTitles []string `json:"exclude_titles"`
}

func (p *searchPlan) Validate() error {
	if strings.TrimSpace(p.Keywords) == "" {
		return llm.ErrMalformedOutput
	}
	return nil
}

var searchPlanSchema = llm.SchemaText(llm.ObjectSchema(map[string]interface{}{
	"keywords":       llm.StringProperty("Search keywords capturing what the viewer wants right now (genres, mood, themes)"),
	"exclude_titles": llm.ArrayProperty("Exact titles already recommended in this conversation", llm.StringProperty("movie title")),
}, "keywords"))

// providerTurn plans one catalog search, runs it, and generates the
// recommendation through the provider review gate.
func (c *Controller) providerTurn(ctx context.Context, s *Session, seekerMsg string) (string, error) {
	evidence := c.providerEvidence(ctx, s, seekerMsg)

	generate := func(ctx context.Context, feedback []string) (string, error) {
		return c.generateProvider(ctx, s, seekerMsg, evidence, feedback)
	}

	var checks []check
	if c.cfg.ProviderReview {
		checks = []check{
			&structuralFormatCheck{},
			&recommendationQualityCheck{},
		}
	}
	return c.runGate(ctx, s, "provider", generate, checks)
}

// providerEvidence runs at most maxRetrievalCallsPerTurn catalog searches.
// Plan failure falls back to the seeker's raw message as keywords; search
// failure or exhaustion degrades to an explicit no-match label.
func (c *Controller) providerEvidence(ctx context.Context, s *Session, seekerMsg string) string {
	if c.catalog == nil {
		return "Catalog search unavailable. Recommend from general knowledge."
	}

	keywords := seekerMsg
	var exclude []string
	plan, err := c.planSearch(ctx, s, seekerMsg)
	if err != nil {
		log.Printf("[DIALOGUE] session %s search plan failed, using raw message: %v", s.ID, err)
	} else {
		keywords = plan.Keywords
		exclude = plan.ExcludeTitles
	}

	item, err := c.catalog.Search(ctx, keywords, exclude)
	if err != nil {
		log.Printf("[DIALOGUE] session %s catalog search failed: %v", s.ID, err)
		return "Catalog search unavailable. Recommend from general knowledge."
	}
	if item == nil {
		return "No new catalog match for this request. Recommend from general knowledge, avoiding titles already suggested."
	}
	return retrieval.FormatMatch(item)
}

func (c *Controller) planSearch(ctx context.Context, s *Session, seekerMsg string) (*searchPlan, error) {
	system := llm.WithSchema(
		"You turn the viewer's last message into catalog search keywords for a movie recommender. List every title already recommended in the conversation so it is not repeated.",
		searchPlanSchema)

	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	for _, t := range s.Turns {
		speaker := "Assistant"
		if t.Role == core.RoleSeeker {
			speaker = "Viewer"
		}
		b.WriteString(speaker + ": " + t.Content + "\n")
	}
	b.WriteString("Viewer: " + seekerMsg + "\n")

	raw, err := c.providerClient.Complete(ctx, &llm.Request{
		System:      system,
		Messages:    []llm.Message{{Role: "user", Content: b.String()}},
		Temperature: c.cfg.JudgeTemperature,
		WantJSON:    true,
	})
	if err != nil {
		return nil, err
	}
	var plan searchPlan
	if err := llm.DecodeJSON(raw, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (c *Controller) generateProvider(ctx context.Context, s *Session, seekerMsg string, evidence string, feedback []string) (string, error) {
	system := providerSystemPrompt(evidence)

	msgs := historyAs(s.Turns, core.RoleProvider)
	if len(msgs) == 0 || msgs[len(msgs)-1].Role != "user" {
		msgs = append(msgs, llm.Message{Role: "user", Content: seekerMsg})
	}
	if len(feedback) > 0 {
		last := &msgs[len(msgs)-1]
		last.Content += "\n\n[Revision notes from your previous draft, address them without mentioning them:\n- " +
			strings.Join(feedback, "\n- ") + "]"
	}

	return c.providerClient.Complete(ctx, &llm.Request{
		System:      system,
		Messages:    msgs,
		Temperature: c.cfg.ProviderTemperature,
	})
}

func providerSystemPrompt(evidence string) string {
	var b strings.Builder
	b.WriteString("You are a friendly movie recommendation assistant talking to one viewer.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Recommend exactly ONE movie per message, woven into natural conversation.\n")
	b.WriteString("- Never output lists, bullet points, numbered items, or section headers.\n")
	b.WriteString("- Never repeat a title you already suggested in this conversation.\n")
	b.WriteString("- If the viewer pushed back, acknowledge their objection concretely before pivoting.\n")
	b.WriteString("- Keep each message to a few sentences.\n\n")
	b.WriteString("## Catalog result for this turn\n")
	b.WriteString(evidence)
	b.WriteString("\nIf the catalog result fits the viewer's request, recommend it. If it clearly does not fit, recommend a better title from general knowledge instead.")
	return b.String()
}
