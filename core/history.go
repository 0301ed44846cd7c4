package core

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"time"
)

// ItemMeta holds catalog metadata for one item, matched offline against the
// metadata file. Slices default to empty, never nil, after Normalize.
type ItemMeta struct {
	Title       string   `json:"title"`
	ReleaseYear string   `json:"release_year,omitempty"`
	Genres      []string `json:"genres"`
	Director    []string `json:"director"`
	Cast        []string `json:"cast"`
	Keywords    []string `json:"keywords"`
	Overview    string   `json:"overview"`
}

// InteractionRecord is one historical review. Immutable once loaded; owned
// by a UserHistory.
type InteractionRecord struct {
	Timestamp  int64    `json:"timestamp"`
	DateStr    string   `json:"date_str"`
	Rating     float64  `json:"rating"`
	Votes      int      `json:"votes"`
	Summary    string   `json:"summary"`
	ReviewText string   `json:"review_text"`
	ItemID     string   `json:"asin"`
	Meta       ItemMeta `json:"movie_meta"`
}

// Date renders the record's timestamp as YYYY-MM-DD, preferring the
// preformatted DateStr when the loader supplied one.
func (r *InteractionRecord) Date() string {
	if r.DateStr != "" {
		return r.DateStr
	}
	if r.Timestamp == 0 {
		return "Unknown Date"
	}
	return time.Unix(r.Timestamp, 0).UTC().Format("2006-01-02")
}

// UserHistory is the time-ordered review sequence for one user.
type UserHistory struct {
	UserID       string              `json:"user_id"`
	ReviewCount  int                 `json:"review_count"`
	Interactions []InteractionRecord `json:"interaction_history"`
}

// SortChronological orders interactions oldest-first by timestamp.
func (h *UserHistory) SortChronological() {
	sort.SliceStable(h.Interactions, func(i, j int) bool {
		return h.Interactions[i].Timestamp < h.Interactions[j].Timestamp
	})
}

// LoadHistories reads user histories from a JSON-lines file. Blank and
// malformed lines are skipped with a log line rather than failing the load;
// a bad record is an input error scoped to that one unit.
func LoadHistories(path string) ([]UserHistory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open histories: %w", err)
	}
	defer f.Close()

	var users []UserHistory
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var u UserHistory
		if err := json.Unmarshal(line, &u); err != nil {
			log.Printf("[LOADER] Skipping line %d: %v", lineNo, err)
			continue
		}
		if u.UserID == "" {
			log.Printf("[LOADER] Skipping line %d: missing user_id", lineNo)
			continue
		}
		users = append(users, u)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read histories: %w", err)
	}
	log.Printf("[LOADER] Loaded %d user histories from %s", len(users), path)
	return users, nil
}

// CatalogItem is one entry of the item metadata file used to build the
// recommendation catalog index.
type CatalogItem struct {
	Title       string   `json:"title"`
	ReleaseYear string   `json:"release_year,omitempty"`
	Genres      []string `json:"genres"`
	Director    []string `json:"director"`
	Cast        []string `json:"cast"`
	Keywords    []string `json:"keywords"`
	Overview    string   `json:"overview"`
}

// LoadCatalog reads catalog items from a JSON-lines metadata file.
func LoadCatalog(path string) ([]CatalogItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	var items []CatalogItem
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var item CatalogItem
		if err := json.Unmarshal(line, &item); err != nil {
			log.Printf("[LOADER] Skipping catalog line %d: %v", lineNo, err)
			continue
		}
		if item.Title == "" {
			continue
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	log.Printf("[LOADER] Loaded %d catalog items from %s", len(items), path)
	return items, nil
}
