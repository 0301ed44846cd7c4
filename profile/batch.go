package profile

import (
	"context"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Vandarkun/datasets/core"
)

// UnitError reports one failed unit of work inside an otherwise successful
// batch.
type UnitError struct {
	UserID string
	Err    error
}

// BuildAll builds profiles for all users with bounded parallelism. Results
// come back in submission order with failed users skipped; failures are
// enumerated, never fatal for the batch.
func (b *Builder) BuildAll(ctx context.Context, users []core.UserHistory, workers int) ([]*core.UserProfile, []UnitError) {
	if workers <= 0 {
		workers = 8
	}

	indexed := make([]*core.UserProfile, len(users))
	var mu sync.Mutex
	var failures []UnitError

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range users {
		i := i
		g.Go(func() error {
			p, err := b.Build(gctx, &users[i])
			if err != nil {
				log.Printf("[PROFILE] Skipping user %s: %v", users[i].UserID, err)
				mu.Lock()
				failures = append(failures, UnitError{UserID: users[i].UserID, Err: err})
				mu.Unlock()
				return nil // one bad profile never aborts the run
			}
			indexed[i] = p
			return nil
		})
	}
	g.Wait()

	profiles := make([]*core.UserProfile, 0, len(users))
	for _, p := range indexed {
		if p != nil {
			profiles = append(profiles, p)
		}
	}
	log.Printf("[PROFILE] Batch complete: %d profiles, %d failures", len(profiles), len(failures))
	return profiles, failures
}
