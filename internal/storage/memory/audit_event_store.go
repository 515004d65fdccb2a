package memory

import (
	"context"
	"maps"
	"sync"

	"solana-security-token/internal/domain"
	"solana-security-token/internal/storage"
)

// AuditEventStore is an in-memory implementation of storage.AuditEventStore.
type AuditEventStore struct {
	mu     sync.RWMutex
	events []*domain.AuditEvent
	ids    map[string]struct{}
}

// NewAuditEventStore creates a new in-memory audit event store.
func NewAuditEventStore() *AuditEventStore {
	return &AuditEventStore{
		ids: make(map[string]struct{}),
	}
}

// InsertBulk appends events. Fails entire batch on any duplicate.
func (s *AuditEventStore) InsertBulk(_ context.Context, events []*domain.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.ID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.ids[e.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := seen[e.ID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[e.ID] = struct{}{}
	}

	for _, e := range events {
		s.events = append(s.events, copyEvent(e))
		s.ids[e.ID] = struct{}{}
	}
	return nil
}

// ListByMint retrieves the most recent events of a mint, newest first.
func (s *AuditEventStore) ListByMint(_ context.Context, mint string, limit int) ([]*domain.AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AuditEvent
	for i := len(s.events) - 1; i >= 0; i-- {
		if limit > 0 && len(result) >= limit {
			break
		}
		if s.events[i].Mint == mint {
			result = append(result, copyEvent(s.events[i]))
		}
	}
	return result, nil
}

func copyEvent(e *domain.AuditEvent) *domain.AuditEvent {
	c := *e
	c.Attributes = maps.Clone(e.Attributes)
	return &c
}

var _ storage.AuditEventStore = (*AuditEventStore)(nil)
