package dialogue

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Vandarkun/datasets/core"
)

// UnitError records one failed session in a batch run.
type UnitError struct {
	UserID string
	Err    error
}

func (e UnitError) Error() string {
	return fmt.Sprintf("user %s: %v", e.UserID, e.Err)
}

// RunBatch simulates one dialogue per profile with at most workers
// running concurrently. Results preserve submission order. A failing or
// panicking session is reported in the error slice and never affects the
// other sessions.
func RunBatch(ctx context.Context, c *Controller, profiles []*core.UserProfile, workers int) ([]*core.DialogueRecord, []UnitError) {
	if workers <= 0 {
		workers = 1
	}
	records := make([]*core.DialogueRecord, len(profiles))

	var mu sync.Mutex
	var failures []UnitError

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, p := range profiles {
		i, p := i, p
		g.Go(func() error {
			rec, err := runOne(gctx, c, p)
			if err != nil {
				mu.Lock()
				failures = append(failures, UnitError{UserID: p.UserID, Err: err})
				mu.Unlock()
				return nil
			}
			records[i] = rec
			return nil
		})
	}
	// Workers never return errors, so this only waits.
	_ = g.Wait()

	out := records[:0]
	for _, r := range records {
		if r != nil {
			out = append(out, r)
		}
	}
	log.Printf("[DIALOGUE] batch done: %d ok, %d failed", len(out), len(failures))
	return out, failures
}

// runOne isolates a single session, converting a panic into an error so
// one bad profile cannot take down the batch.
func runOne(ctx context.Context, c *Controller, p *core.UserProfile) (rec *core.DialogueRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("session panicked: %v", r)
		}
	}()
	return c.Run(ctx, p)
}
