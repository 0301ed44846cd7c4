package core

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// Turn is one utterance of a dialogue transcript.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Dialogue roles and termination labels.
const (
	RoleSeeker   = "user"
	RoleProvider = "system"

	TerminationAccepted = "accepted"
	TerminationMaxTurns = "max_turns"
)

// DialogueRecord is the flat per-session output artifact.
type DialogueRecord struct {
	UserID              string    `json:"user_id"`
	MetaStats           MetaStats `json:"meta_stats"`
	FinalRejectionCount int       `json:"final_rejection_count"`
	Turns               int       `json:"turns"`
	Finished            bool      `json:"finished"`
	Termination         string    `json:"termination"`
	Dialogue            []Turn    `json:"dialogue"`
}

// SaveDialogues writes dialogue records as JSON lines in submission order.
func SaveDialogues(path string, records []*DialogueRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dialogues file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, rec := range records {
		if rec == nil {
			continue
		}
		line, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal dialogue for %s: %w", rec.UserID, err)
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	return w.Flush()
}
