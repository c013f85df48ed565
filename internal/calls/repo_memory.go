package calls

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store useful for tests.
// It is not intended for production use.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record

	// FailInsert forces Insert to return this error (simulated outage).
	FailInsert error
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Insert(ctx context.Context, rec Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailInsert != nil {
		return false, s.FailInsert
	}
	for _, existing := range s.records {
		if existing.VapiCallID == rec.VapiCallID {
			return false, nil
		}
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.records = append(s.records, rec)
	return true, nil
}

func (s *MemoryStore) ListByAccount(ctx context.Context, accountID string, q ListQuery) ([]Record, error) {
	q = q.withDefaults()
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	for _, rec := range s.records {
		if rec.AccountID == nil || *rec.AccountID != accountID {
			continue
		}
		if q.Search != "" && !matchesSearch(rec, q.Search) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if q.Offset >= len(out) {
		return nil, nil
	}
	out = out[q.Offset:]
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *MemoryStore) GetByAccount(ctx context.Context, accountID, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.ID == id && rec.AccountID != nil && *rec.AccountID == accountID {
			return rec, nil
		}
	}
	return Record{}, ErrNotFound
}

func (s *MemoryStore) ListOrphans(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, rec := range s.records {
		if rec.IsOrphan() {
			out = append(out, rec)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Reattach(ctx context.Context, _ *sql.Tx, vapiCallID, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].VapiCallID == vapiCallID && s.records[i].IsOrphan() {
			s.records[i].AccountID = &accountID
			return nil
		}
	}
	return ErrNotFound
}

// Records returns a copy of everything stored, for test assertions.
func (s *MemoryStore) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

func matchesSearch(rec Record, search string) bool {
	needle := strings.ToLower(search)
	if rec.CustomerNumber != nil && strings.Contains(strings.ToLower(*rec.CustomerNumber), needle) {
		return true
	}
	if rec.Summary != nil && strings.Contains(strings.ToLower(*rec.Summary), needle) {
		return true
	}
	return false
}
