package profile

import (
	"fmt"

	"github.com/Vandarkun/datasets/core"
	"github.com/Vandarkun/datasets/llm"
)

// Typed response shapes for the three chain steps, with the decode-and-
// validate step standing in for runtime schema validation.

type memoryList struct {
	Memories []core.MemoryItem `json:"memories"`
}

func (m *memoryList) Validate() error {
	for i, mem := range m.Memories {
		if mem.ItemTitle == "" {
			return fmt.Errorf("memory %d missing movie_title", i)
		}
		if mem.MemoryText == "" {
			return fmt.Errorf("memory %d missing memory_text", i)
		}
	}
	return nil
}

type reflectionsResponse struct {
	AestheticPreferences []string `json:"aesthetic_preferences"`
	SpectatorPersona     string   `json:"spectator_persona"`
	DecisionLogic        string   `json:"decision_logic"`
	TasteEvolution       string   `json:"taste_evolution"`
	Contradictions       string   `json:"contradictions"`
}

func (r *reflectionsResponse) Validate() error {
	if r.SpectatorPersona == "" {
		return fmt.Errorf("missing spectator_persona")
	}
	if len(r.AestheticPreferences) == 0 {
		return fmt.Errorf("missing aesthetic_preferences")
	}
	return nil
}

type styleResponse struct {
	Tone            string   `json:"tone"`
	Verbosity       string   `json:"verbosity"`
	CommonKeywords  []string `json:"common_keywords"`
	ReviewStructure string   `json:"review_structure"`
}

func (s *styleResponse) Validate() error {
	if s.Tone == "" {
		return fmt.Errorf("missing tone")
	}
	return nil
}

var memoryListSchema = llm.SchemaText(llm.ObjectSchema(map[string]interface{}{
	"memories": llm.ArrayProperty("Key memories extracted from the reviews",
		llm.ObjectSchema(map[string]interface{}{
			"movie_title": llm.StringProperty("Exact movie title"),
			"rating":      llm.NumberProperty("The user's rating out of 5"),
			"memory_text": llm.StringProperty("A concise summary of their specific opinion/feeling."),
		}, "movie_title", "rating", "memory_text")),
}, "memories"))

var reflectionsSchema = llm.SchemaText(llm.ObjectSchema(map[string]interface{}{
	"aesthetic_preferences": llm.ArrayProperty("What elements do they love/hate?", llm.StringProperty("one preference")),
	"spectator_persona":     llm.StringProperty("Label like 'Critical Historian' or 'Popcorn Fan'"),
	"decision_logic":        llm.StringProperty("Why they choose movies?"),
	"taste_evolution":       llm.StringProperty("How their taste changed over time. e.g. 'Started loving Horror but shifted to Family films in 2014'."),
	"contradictions":        llm.StringProperty("Any conflicting tastes?"),
}, "aesthetic_preferences", "spectator_persona", "decision_logic", "taste_evolution"))

var styleSchema = llm.SchemaText(llm.ObjectSchema(map[string]interface{}{
	"tone":             llm.StringProperty("Overall tone of the user's writing"),
	"verbosity":        llm.StringProperty("How wordy the user is"),
	"common_keywords":  llm.ArrayProperty("Words the user repeats", llm.StringProperty("keyword")),
	"review_structure": llm.StringProperty("Structural pattern of their reviews"),
}, "tone", "verbosity", "common_keywords", "review_structure"))
