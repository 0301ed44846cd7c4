package retrieval

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/Vandarkun/datasets/core"
	"github.com/Vandarkun/datasets/embedding"
	"github.com/Vandarkun/datasets/vectorindex"
	"github.com/Vandarkun/datasets/vectorindex/chromem"
)

const (
	catalogCollection = "catalog"

	// catalogSearchK is how many candidates one search inspects before
	// excludes are applied.
	catalogSearchK = 10

	// maxCastShown caps the cast list in a formatted match.
	maxCastShown = 5
)

func catalogID(i int) string {
	return "item-" + strconv.Itoa(i)
}

// CatalogIndex pairs the item vector index with its aligned metadata.
type CatalogIndex struct {
	Index vectorindex.Index
	Items []core.CatalogItem
}

// BuildCatalogIndex embeds every catalog item as a "Title. Genres.
// Director. Cast. Keywords. Overview" snippet.
func BuildCatalogIndex(ctx context.Context, items []core.CatalogItem, embedder embedding.Provider) (*CatalogIndex, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("empty catalog")
	}
	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = fmt.Sprintf("Title: %s. Genres: %s. Director: %s. Cast: %s. Keywords: %s. Overview: %s",
			item.Title,
			strings.Join(item.Genres, ", "),
			strings.Join(item.Director, ", "),
			strings.Join(item.Cast, ", "),
			strings.Join(item.Keywords, ", "),
			item.Overview)
	}
	vecs, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed catalog: %w", err)
	}

	store, err := chromem.New(catalogCollection)
	if err != nil {
		return nil, err
	}
	entries := make([]vectorindex.Entry, len(items))
	for i := range items {
		entries[i] = vectorindex.Entry{
			ID:        catalogID(i),
			Content:   texts[i],
			Metadata:  map[string]string{"title": items[i].Title},
			Embedding: vecs[i],
		}
	}
	if err := store.Add(ctx, entries); err != nil {
		return nil, err
	}
	log.Printf("[RETRIEVAL] Built catalog index: %d items", len(items))
	return &CatalogIndex{Index: store, Items: items}, nil
}

// Save writes the paired catalog artifact.
func (c *CatalogIndex) Save(indexPath, metaPath string) error {
	persistent, ok := c.Index.(vectorindex.Persistent)
	if !ok {
		return fmt.Errorf("index backend is not persistent")
	}
	if err := persistent.Save(indexPath); err != nil {
		return err
	}
	f, err := os.Create(metaPath)
	if err != nil {
		return fmt.Errorf("create catalog metadata: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, item := range c.Items {
		line, err := json.Marshal(item)
		if err != nil {
			return err
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	return w.Flush()
}

// LoadCatalogIndex loads the paired catalog artifact with the same
// fail-fast positional validation as the memory index.
func LoadCatalogIndex(ctx context.Context, indexPath, metaPath string) (*CatalogIndex, error) {
	store, err := chromem.Load(indexPath, catalogCollection)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	f, err := os.Open(metaPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	defer f.Close()

	var items []core.CatalogItem
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var item core.CatalogItem
		if err := json.Unmarshal(line, &item); err != nil {
			return nil, fmt.Errorf("%w: bad catalog line %d: %v", ErrMetadataMismatch, len(items)+1, err)
		}
		items = append(items, item)
	}
	if store.Count() != len(items) {
		return nil, fmt.Errorf("%w: index has %d vectors, metadata has %d items",
			ErrMetadataMismatch, store.Count(), len(items))
	}
	return &CatalogIndex{Index: store, Items: items}, nil
}

// CatalogRetriever answers recommendation searches.
type CatalogRetriever struct {
	index    *CatalogIndex
	embedder embedding.Provider
}

// NewCatalogRetriever wraps a loaded catalog index.
func NewCatalogRetriever(index *CatalogIndex, embedder embedding.Provider) *CatalogRetriever {
	return &CatalogRetriever{index: index, embedder: embedder}
}

// Search embeds the keywords and returns the best match whose title is not
// in the exclude list (case-insensitive, trimmed). A nil match with nil
// error means every candidate was excluded.
func (r *CatalogRetriever) Search(ctx context.Context, keywords string, excludeTitles []string) (*core.CatalogItem, error) {
	if r.index == nil {
		return nil, ErrIndexUnavailable
	}
	qvec, err := r.embedder.Embed(ctx, keywords)
	if err != nil {
		return nil, fmt.Errorf("embed keywords: %w", err)
	}
	hits, err := r.index.Index.Search(ctx, qvec, catalogSearchK)
	if err != nil {
		return nil, err
	}

	excludes := make(map[string]bool, len(excludeTitles))
	for _, t := range excludeTitles {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			excludes[t] = true
		}
	}

	for _, h := range hits {
		title := strings.ToLower(strings.TrimSpace(h.Metadata["title"]))
		if excludes[title] {
			continue
		}
		// Positional id maps the hit back to its full metadata.
		idx, err := strconv.Atoi(strings.TrimPrefix(h.ID, "item-"))
		if err != nil || idx < 0 || idx >= len(r.index.Items) {
			return nil, fmt.Errorf("%w: unparsable catalog id %q", ErrMetadataMismatch, h.ID)
		}
		return &r.index.Items[idx], nil
	}
	return nil, nil
}

// FormatMatch renders a catalog match for prompt injection. A nil match
// reports the all-excluded state explicitly.
func FormatMatch(item *core.CatalogItem) string {
	if item == nil {
		return "Found matches but all were in your exclude list. Try broader keywords."
	}
	cast := item.Cast
	if len(cast) > maxCastShown {
		cast = cast[:maxCastShown]
	}
	castStr := "Unknown"
	if len(cast) > 0 {
		castStr = strings.Join(cast, ", ")
	}
	overview := item.Overview
	if overview == "" {
		overview = "No overview."
	}
	return fmt.Sprintf("Best Match Found:\nTitle: %s\nGenres: %s\nDirector: %s\nCast: %s\nOverview: %s\n",
		item.Title,
		strings.Join(item.Genres, ", "),
		strings.Join(item.Director, ", "),
		castStr,
		overview)
}
