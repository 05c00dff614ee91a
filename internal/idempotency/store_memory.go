package idempotency

import (
	"context"
	"sync"

	"custodia/pkg/platform/sentinel"
)

// MemoryStore keeps idempotency records in a mutex-guarded map. Records are
// retained for the process lifetime; expiry is a Redis concern.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Check(_ context.Context, key, fingerprint string) (Outcome, *Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return Fresh, nil, nil
	}
	if rec.Fingerprint != fingerprint {
		return Conflict, &rec, nil
	}
	return Replay, &rec, nil
}

func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.Key]; ok {
		return sentinel.ErrConflict
	}
	s.records[rec.Key] = rec
	return nil
}

// Reset drops every record. Test isolation only.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]Record)
}
