package core

import (
	"encoding/json"
	"fmt"
	"os"
)

// MemoryItem is one attributed evidence memory derived from a sampled
// review. Immutable once produced; owned by exactly one UserProfile.
type MemoryItem struct {
	ItemTitle  string  `json:"movie_title"`
	Rating     float64 `json:"rating"`
	MemoryText string  `json:"memory_text"`
}

// Reflections is the synthesized persona layer of a profile.
type Reflections struct {
	AestheticPreferences []string `json:"aesthetic_preferences"`
	SpectatorPersona     string   `json:"spectator_persona"`
	DecisionLogic        string   `json:"decision_logic"`
	TasteEvolution       string   `json:"taste_evolution"`
	Contradictions       string   `json:"contradictions,omitempty"`
}

// DialogueStyle captures how the user writes, so a seeker simulation can
// mimic them.
type DialogueStyle struct {
	Tone            string   `json:"tone"`
	Verbosity       string   `json:"verbosity"`
	CommonKeywords  []string `json:"common_keywords"`
	ReviewStructure string   `json:"review_structure"`
}

// MetaStats summarizes the evidence a profile was built from.
type MetaStats struct {
	TotalReviews int    `json:"total_reviews"`
	Sampled      int    `json:"sampled"`
	TimeSpan     string `json:"time_span"`
}

// UserProfile is the complete persona profile for one user. Created once by
// the profile builder and treated as read-only afterwards.
type UserProfile struct {
	UserID        string        `json:"user_id"`
	MetaStats     MetaStats     `json:"meta_stats"`
	KeyMemories   []MemoryItem  `json:"key_memories"`
	Reflections   Reflections   `json:"reflections"`
	DialogueStyle DialogueStyle `json:"dialogue_style"`
	RelatedUsers  []string      `json:"related_users"`
}

// Normalize replaces nil slices with empty ones so every field is present
// with a usable default after JSON decoding.
func (p *UserProfile) Normalize() {
	if p.KeyMemories == nil {
		p.KeyMemories = []MemoryItem{}
	}
	if p.Reflections.AestheticPreferences == nil {
		p.Reflections.AestheticPreferences = []string{}
	}
	if p.DialogueStyle.CommonKeywords == nil {
		p.DialogueStyle.CommonKeywords = []string{}
	}
	if p.RelatedUsers == nil {
		p.RelatedUsers = []string{}
	}
}

// SaveProfiles writes profiles as a JSON list, the round-trip format
// consumed by index building and dialogue runs.
func SaveProfiles(path string, profiles []*UserProfile) error {
	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal profiles: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write profiles: %w", err)
	}
	return nil
}

// LoadProfiles reads a profile list written by SaveProfiles. Every loaded
// profile is normalized.
func LoadProfiles(path string) ([]*UserProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	var profiles []*UserProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	for _, p := range profiles {
		p.Normalize()
	}
	return profiles, nil
}

// LoadProfile reads a single-profile JSON file (either a bare object or a
// one-element list).
func LoadProfile(path string) (*UserProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var p UserProfile
	if err := json.Unmarshal(data, &p); err == nil && p.UserID != "" {
		p.Normalize()
		return &p, nil
	}
	var list []*UserProfile
	if err := json.Unmarshal(data, &list); err != nil || len(list) == 0 {
		return nil, fmt.Errorf("parse profile %s: not an object or non-empty list", path)
	}
	list[0].Normalize()
	return list[0], nil
}
