package core

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
)

// NeighborEdge links a user to one similar user. Edges are asymmetric:
// top-k truncation means B can be among A's neighbors without the reverse
// holding. SharedGenres is an explainability artifact only and never
// participates in edge ordering.
type NeighborEdge struct {
	UserID              string   `json:"user_id"`
	Score               float64  `json:"score"`
	SharedGenres        []string `json:"shared_genres"`
	SharedGenreCount    int      `json:"shared_genre_count"`
	NeighborReviewCount int      `json:"neighbor_review_count"`
}

// NeighborRecord is one JSON-lines record of the neighbor graph artifact.
type NeighborRecord struct {
	UserID    string         `json:"user_id"`
	Neighbors []NeighborEdge `json:"neighbors"`
}

// SaveNeighbors writes the neighbor graph as JSON lines, one user per line.
func SaveNeighbors(path string, records []NeighborRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create neighbors file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, rec := range records {
		line, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal neighbors for %s: %w", rec.UserID, err)
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write neighbors: %w", err)
	}
	log.Printf("[GRAPH] Saved neighbor graph for %d users to %s", len(records), path)
	return nil
}

// LoadNeighborMap reads a neighbor graph file into a user_id -> neighbor
// ids lookup. A missing path or unreadable line yields an empty mapping for
// the affected users rather than an error; related-user expansion simply
// defaults to none.
func LoadNeighborMap(path string) map[string][]string {
	mapping := make(map[string][]string)
	if path == "" {
		return mapping
	}
	f, err := os.Open(path)
	if err != nil {
		log.Printf("[GRAPH] Neighbor file unavailable (%v), related users disabled", err)
		return mapping
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec NeighborRecord
		if err := json.Unmarshal(line, &rec); err != nil || rec.UserID == "" {
			continue
		}
		ids := make([]string, 0, len(rec.Neighbors))
		for _, n := range rec.Neighbors {
			if n.UserID != "" {
				ids = append(ids, n.UserID)
			}
		}
		mapping[rec.UserID] = ids
	}
	return mapping
}
