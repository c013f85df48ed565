package reporting

import (
	"context"
	"sync"
	"time"

	"trivehive/internal/calls"
)

// MemoryRepo is a simple in-memory reporting repository for tests.
// It enforces account isolation on reads.
type MemoryRepo struct {
	mu    sync.Mutex
	Calls []calls.Record
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) ListCalls(ctx context.Context, accountID string, from, to time.Time) ([]calls.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []calls.Record
	for _, rec := range r.Calls {
		if rec.AccountID == nil || *rec.AccountID != accountID {
			continue
		}
		at := rec.CreatedAt
		if rec.StartedAt != nil {
			at = *rec.StartedAt
		}
		if at.Before(from) || !at.Before(to) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
