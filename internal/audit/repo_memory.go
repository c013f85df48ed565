package audit

import (
	"context"
	"sync"
)

// MemoryRepo is the in-memory Repository used by admin-flow tests. Audit
// writes are best-effort for callers, so FailAppend lets tests prove a lost
// audit row never fails the surrounding admin action.
type MemoryRepo struct {
	mu     sync.Mutex
	events []Event

	// FailAppend, when set, is returned by every Append.
	FailAppend error
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAppend != nil {
		return r.FailAppend
	}
	r.events = append(r.events, e)
	return nil
}

func (r *MemoryRepo) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
