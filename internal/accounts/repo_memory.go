package accounts

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store useful for tests.
type MemoryStore struct {
	mu       sync.Mutex
	settings map[string]Settings

	// FailLookup forces AccountIDByAssistantID to return this error
	// (simulated datastore outage).
	FailLookup error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{settings: make(map[string]Settings)}
}

// Bind seeds an assistant -> account binding for tests.
func (s *MemoryStore) Bind(accountID, assistantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.settings[accountID]
	row.AccountID = accountID
	row.VapiAssistantID = &assistantID
	s.settings[accountID] = row
}

func (s *MemoryStore) AccountIDByAssistantID(ctx context.Context, assistantID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailLookup != nil {
		return "", false, s.FailLookup
	}
	for accountID, row := range s.settings {
		if row.VapiAssistantID != nil && *row.VapiAssistantID == assistantID {
			return accountID, true, nil
		}
	}
	return "", false, nil
}

func (s *MemoryStore) GetByAccount(ctx context.Context, accountID string) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.settings[accountID]
	if !ok {
		return Settings{}, ErrNotFound
	}
	return row, nil
}

func (s *MemoryStore) UpdateProfile(ctx context.Context, accountID string, fullName, businessName *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.settings[accountID]
	row.AccountID = accountID
	if fullName != nil {
		row.FullName = fullName
	}
	if businessName != nil {
		row.BusinessName = businessName
	}
	row.UpdatedAt = time.Now().UTC()
	s.settings[accountID] = row
	return nil
}

func (s *MemoryStore) UpsertAssistantID(ctx context.Context, accountID, assistantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.settings[accountID]
	row.AccountID = accountID
	row.VapiAssistantID = &assistantID
	row.UpdatedAt = time.Now().UTC()
	s.settings[accountID] = row
	return nil
}
