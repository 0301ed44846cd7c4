// Package sampler selects a small, representative, deduplicated subset of a
// user's interaction history, stratified into early / middle / recent eras.
//
// Sampling is fully deterministic: profile reproducibility depends on the
// same history always yielding the same evidence set.
package sampler

import (
	"sort"

	"github.com/Vandarkun/datasets/core"
)

const (
	// MinReviewLength filters out records too short to carry signal.
	MinReviewLength = 30

	// minStratifySize is the smallest history worth splitting into eras.
	minStratifySize = 5

	// recentTake is how many trailing records represent current intent.
	recentTake = 3
)

// Sample returns the stratified evidence subset of history, chronologically
// sorted and deduplicated by item id. Histories with fewer than
// minStratifySize usable records are returned whole.
func Sample(history []core.InteractionRecord) []core.InteractionRecord {
	valid := make([]core.InteractionRecord, 0, len(history))
	for _, r := range history {
		if len(r.ReviewText) >= MinReviewLength {
			valid = append(valid, r)
		}
	}
	if len(valid) == 0 {
		return nil
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Timestamp < valid[j].Timestamp
	})

	total := len(valid)
	if total < minStratifySize {
		return valid
	}

	earlyEnd := int(float64(total) * 0.2)
	if earlyEnd < 1 {
		earlyEnd = 1
	}
	recentStart := int(float64(total) * 0.8)
	if recentStart > total-1 {
		recentStart = total - 1
	}

	early := valid[:earlyEnd]
	middle := valid[earlyEnd:recentStart]
	recent := valid[recentStart:]

	var picks []core.InteractionRecord
	picks = append(picks, sampleEarly(early)...)
	picks = append(picks, sampleMiddle(middle)...)
	if len(recent) > recentTake {
		recent = recent[len(recent)-recentTake:]
	}
	picks = append(picks, recent...)

	return dedupeChronological(picks)
}

// sampleEarly captures the origin persona: the era's peak, plus its low
// point when the era contains dislikes.
func sampleEarly(era []core.InteractionRecord) []core.InteractionRecord {
	if len(era) == 0 {
		return nil
	}
	var picks []core.InteractionRecord
	picks = append(picks, *pickBest(era, func(a, b *core.InteractionRecord) bool {
		return a.Rating > b.Rating
	}))

	var lows []core.InteractionRecord
	for _, r := range era {
		if r.Rating <= 3.0 {
			lows = append(lows, r)
		}
	}
	if len(lows) > 0 {
		picks = append(picks, *pickBest(lows, func(a, b *core.InteractionRecord) bool {
			return a.Rating < b.Rating
		}))
	}
	return picks
}

// sampleMiddle captures the deepest engagement (longest review) and one
// contrasting-polarity record to preserve taste tension.
func sampleMiddle(era []core.InteractionRecord) []core.InteractionRecord {
	if len(era) == 0 {
		return nil
	}
	longest := pickBest(era, func(a, b *core.InteractionRecord) bool {
		return len(a.ReviewText) > len(b.ReviewText)
	})
	picks := []core.InteractionRecord{*longest}

	if longest.Rating > 3 {
		for _, r := range era {
			if r.Rating <= 3 {
				picks = append(picks, r)
				break
			}
		}
	} else {
		for _, r := range era {
			if r.Rating > 3 {
				picks = append(picks, r)
				break
			}
		}
	}
	return picks
}

// pickBest returns the first record that wins the strict comparison against
// all others, so ties resolve to the earliest record.
func pickBest(records []core.InteractionRecord, better func(a, b *core.InteractionRecord) bool) *core.InteractionRecord {
	best := &records[0]
	for i := 1; i < len(records); i++ {
		if better(&records[i], best) {
			best = &records[i]
		}
	}
	return best
}

// dedupeChronological drops repeated item ids, keeping first occurrence,
// then restores chronological order.
func dedupeChronological(records []core.InteractionRecord) []core.InteractionRecord {
	seen := make(map[string]bool, len(records))
	out := records[:0:0]
	for _, r := range records {
		if seen[r.ItemID] {
			continue
		}
		seen[r.ItemID] = true
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}
