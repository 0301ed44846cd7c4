package core

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadHistoriesSkipsBadLines(t *testing.T) {
	content := `{"user_id": "u1", "review_count": 1, "interaction_history": [{"timestamp": 100, "rating": 4.0, "review_text": "good", "asin": "a1", "movie_meta": {"title": "Heat"}}]}
not json
{"review_count": 2}

{"user_id": "u2", "review_count": 0, "interaction_history": []}
`
	users, err := LoadHistories(writeFile(t, "h.jsonl", content))
	if err != nil {
		t.Fatalf("LoadHistories: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("users = %d, want 2 (bad lines skipped)", len(users))
	}
	if users[0].UserID != "u1" || users[1].UserID != "u2" {
		t.Errorf("got %s, %s", users[0].UserID, users[1].UserID)
	}
	if users[0].Interactions[0].Meta.Title != "Heat" {
		t.Errorf("nested meta lost: %+v", users[0].Interactions[0])
	}
}

func TestInteractionDate(t *testing.T) {
	r := InteractionRecord{DateStr: "2014-03-01", Timestamp: 0}
	if got := r.Date(); got != "2014-03-01" {
		t.Errorf("Date() = %q, want preformatted string", got)
	}
	r = InteractionRecord{Timestamp: 1393632000}
	if got := r.Date(); got != "2014-03-01" {
		t.Errorf("Date() = %q, want 2014-03-01", got)
	}
	r = InteractionRecord{}
	if got := r.Date(); got != "Unknown Date" {
		t.Errorf("Date() = %q", got)
	}
}

func TestProfilesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.json")
	in := []*UserProfile{
		{
			UserID:      "u1",
			MetaStats:   MetaStats{TotalReviews: 42, Sampled: 7, TimeSpan: "2010-01-01 to 2015-06-01"},
			KeyMemories: []MemoryItem{{ItemTitle: "Heat", Rating: 5, MemoryText: "the diner scene"}},
			Reflections: Reflections{
				SpectatorPersona:     "Crime aficionado",
				AestheticPreferences: []string{"tension"},
			},
			DialogueStyle: DialogueStyle{Tone: "blunt", Verbosity: "short"},
			RelatedUsers:  []string{"u2"},
		},
		{UserID: "u2"},
	}
	if err := SaveProfiles(path, in); err != nil {
		t.Fatalf("SaveProfiles: %v", err)
	}

	out, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("profiles = %d, want 2", len(out))
	}
	if !reflect.DeepEqual(out[0].KeyMemories, in[0].KeyMemories) {
		t.Errorf("memories differ: %+v", out[0].KeyMemories)
	}
	// Normalize fills every nil slice on load.
	if out[1].KeyMemories == nil || out[1].RelatedUsers == nil {
		t.Error("loaded profile has nil slices after Normalize")
	}
}

func TestLoadProfileSingleOrList(t *testing.T) {
	obj := writeFile(t, "one.json", `{"user_id": "solo"}`)
	p, err := LoadProfile(obj)
	if err != nil || p.UserID != "solo" {
		t.Fatalf("bare object: %v, %+v", err, p)
	}

	list := writeFile(t, "list.json", `[{"user_id": "first"}, {"user_id": "second"}]`)
	p, err = LoadProfile(list)
	if err != nil || p.UserID != "first" {
		t.Fatalf("list: %v, %+v", err, p)
	}

	empty := writeFile(t, "empty.json", `[]`)
	if _, err := LoadProfile(empty); err == nil {
		t.Fatal("expected error for empty list")
	}
}

func TestNeighborsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "neighbors.jsonl")
	records := []NeighborRecord{
		{UserID: "u1", Neighbors: []NeighborEdge{
			{UserID: "u2", Score: 0.9, SharedGenres: []string{"Crime"}, SharedGenreCount: 1, NeighborReviewCount: 12},
			{UserID: "u3", Score: 0.5},
		}},
		{UserID: "u4", Neighbors: nil},
	}
	if err := SaveNeighbors(path, records); err != nil {
		t.Fatalf("SaveNeighbors: %v", err)
	}

	m := LoadNeighborMap(path)
	if !reflect.DeepEqual(m["u1"], []string{"u2", "u3"}) {
		t.Errorf("u1 neighbors = %v", m["u1"])
	}
	if got, ok := m["u4"]; !ok || len(got) != 0 {
		t.Errorf("u4 = %v, %v; want present and empty", got, ok)
	}
}

func TestLoadNeighborMapMissingFile(t *testing.T) {
	m := LoadNeighborMap(filepath.Join(t.TempDir(), "nope.jsonl"))
	if len(m) != 0 {
		t.Fatalf("got %v, want empty map", m)
	}
}

func TestSaveDialogues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dialogues.jsonl")
	records := []*DialogueRecord{
		{
			UserID:      "u1",
			Turns:       2,
			Finished:    true,
			Termination: TerminationAccepted,
			Dialogue: []Turn{
				{Role: RoleProvider, Content: "hello"},
				{Role: RoleSeeker, Content: "sure"},
			},
		},
		nil, // skipped, not written
		{UserID: "u2", Termination: TerminationMaxTurns},
	}
	if err := SaveDialogues(path, records); err != nil {
		t.Fatalf("SaveDialogues: %v", err)
	}

	users, err := countLines(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if users != 2 {
		t.Fatalf("lines = %d, want 2", users)
	}
}

func countLines(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, b := range data {
		if b == '\n' {
			n++
		}
	}
	return n, nil
}
