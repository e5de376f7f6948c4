package store

import (
	"context"
	"sync"
	"time"

	"credvault/internal/credential/models"
	"credvault/pkg/platform/sentinel"
)

// InMemoryStore keeps credentials in memory for tests and local development.
// It enforces the same uniqueness contract as the PostgreSQL store: the first
// Save for an id wins, later ones get ErrConflict.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*models.Record
	now     func() time.Time
}

// New constructs an empty in-memory credential store.
func New() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]*models.Record),
		now:     time.Now,
	}
}

// WithClock overrides the creation-time clock. Test hook.
func (s *InMemoryStore) WithClock(now func() time.Time) *InMemoryStore {
	s.now = now
	return s
}

func (s *InMemoryStore) Save(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.CredentialID]; ok {
		return sentinel.ErrConflict
	}
	now := s.now().UTC()
	record.IssuedDate = now
	record.CreatedAt = now
	record.UpdatedAt = now
	s.records[record.CredentialID] = record.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, credentialID string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[credentialID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return record.Clone(), nil
}
