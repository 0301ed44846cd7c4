package sampler

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/Vandarkun/datasets/core"
)

func rec(id string, ts int64, rating float64, review string) core.InteractionRecord {
	return core.InteractionRecord{
		ItemID:     id,
		Timestamp:  ts,
		Rating:     rating,
		ReviewText: review,
	}
}

func longReview(n int) string {
	return strings.Repeat("x", n)
}

func TestSampleFiltersShortReviews(t *testing.T) {
	history := []core.InteractionRecord{
		rec("a", 1, 5, "too short"),
		rec("b", 2, 4, longReview(MinReviewLength)),
	}
	got := Sample(history)
	if len(got) != 1 || got[0].ItemID != "b" {
		t.Fatalf("got %+v, want only record b", got)
	}
}

func TestSampleSmallHistoryReturnedWhole(t *testing.T) {
	// Four usable records stay below the stratification threshold and
	// come back complete, chronologically sorted.
	history := []core.InteractionRecord{
		rec("c", 30, 2, longReview(40)),
		rec("a", 10, 5, longReview(40)),
		rec("d", 40, 4, longReview(40)),
		rec("b", 20, 3, longReview(40)),
	}
	got := Sample(history)
	if len(got) != 4 {
		t.Fatalf("got %d records, want all 4", len(got))
	}
	for i, want := range []string{"a", "b", "c", "d"} {
		if got[i].ItemID != want {
			t.Errorf("position %d: got %s, want %s", i, got[i].ItemID, want)
		}
	}
}

func TestSampleEmptyAfterFilter(t *testing.T) {
	if got := Sample([]core.InteractionRecord{rec("a", 1, 5, "short")}); got != nil {
		t.Fatalf("got %+v, want nil", got)
	}
}

func TestSampleEarlyPeakFirstWinsTies(t *testing.T) {
	// Ten records, early era is the first two. The rating-5 record at
	// position 0 must win even with an equal rating later in the era.
	history := make([]core.InteractionRecord, 0, 10)
	history = append(history, rec("peak", 1, 5, longReview(40)))
	history = append(history, rec("dup", 2, 5, longReview(40)))
	for i := 2; i < 10; i++ {
		history = append(history, rec(fmt.Sprintf("m%d", i), int64(i+1), 4, longReview(40)))
	}
	got := Sample(history)
	if len(got) == 0 || got[0].ItemID != "peak" {
		t.Fatalf("first sampled = %v, want the earliest peak", got)
	}
}

func TestSampleIncludesEarlyLowPoint(t *testing.T) {
	// Early era (2 of 10) holds a dislike; it must be sampled alongside
	// the peak.
	history := []core.InteractionRecord{
		rec("peak", 1, 5, longReview(40)),
		rec("low", 2, 1, longReview(40)),
	}
	for i := 2; i < 10; i++ {
		history = append(history, rec(fmt.Sprintf("m%d", i), int64(i+1), 4, longReview(40)))
	}
	got := Sample(history)
	ids := map[string]bool{}
	for _, r := range got {
		ids[r.ItemID] = true
	}
	if !ids["peak"] || !ids["low"] {
		t.Fatalf("sampled %v, want both peak and low", got)
	}
}

func TestSampleMiddleContrast(t *testing.T) {
	// Longest middle review is highly rated; a low-rated middle record
	// must be pulled in as contrast.
	history := []core.InteractionRecord{
		rec("e1", 1, 4, longReview(40)),
		rec("e2", 2, 4, longReview(40)),
		rec("deep", 3, 5, longReview(500)),
		rec("contrast", 4, 2, longReview(40)),
		rec("m3", 5, 4, longReview(40)),
		rec("m4", 6, 4, longReview(40)),
		rec("r1", 7, 4, longReview(40)),
		rec("r2", 8, 4, longReview(40)),
		rec("r3", 9, 4, longReview(40)),
		rec("r4", 10, 4, longReview(40)),
	}
	got := Sample(history)
	ids := map[string]bool{}
	for _, r := range got {
		ids[r.ItemID] = true
	}
	if !ids["deep"] || !ids["contrast"] {
		t.Fatalf("sampled %v, want deep and contrast", got)
	}
}

func TestSampleEarlyPickIsEraMaximum(t *testing.T) {
	// Twenty records rated [5,1,1,1,...]; the early era is the first
	// four, and its pick must carry the era's maximum rating.
	history := make([]core.InteractionRecord, 0, 20)
	for i := 0; i < 20; i++ {
		rating := 1.0
		if i == 0 {
			rating = 5
		}
		history = append(history, rec(fmt.Sprintf("m%d", i), int64(i+1), rating, longReview(40)))
	}
	got := Sample(history)
	if len(got) == 0 || got[0].Rating != 5 {
		t.Fatalf("first pick rating = %v, want 5", got)
	}
}

func TestSampleDeterministic(t *testing.T) {
	history := make([]core.InteractionRecord, 0, 20)
	for i := 0; i < 20; i++ {
		history = append(history, rec(fmt.Sprintf("m%d", i), int64(i*100), float64(1+i%5), longReview(40+i*7)))
	}
	first := Sample(history)
	second := Sample(history)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("same history produced different samples")
	}
}

func TestSampleDeduplicatesByItem(t *testing.T) {
	// The early peak is also the last recent record; it must appear once.
	history := []core.InteractionRecord{
		rec("dup", 1, 5, longReview(40)),
		rec("e2", 2, 4, longReview(40)),
		rec("m1", 3, 4, longReview(200)),
		rec("m2", 4, 4, longReview(40)),
		rec("m3", 5, 4, longReview(40)),
		rec("m4", 6, 4, longReview(40)),
		rec("r1", 7, 4, longReview(40)),
		rec("r2", 8, 4, longReview(40)),
		rec("r3", 9, 4, longReview(40)),
		rec("dup", 10, 4, longReview(40)),
	}
	got := Sample(history)
	count := 0
	for _, r := range got {
		if r.ItemID == "dup" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("item dup sampled %d times, want 1", count)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp < got[i-1].Timestamp {
			t.Fatal("sample not chronologically sorted")
		}
	}
}
