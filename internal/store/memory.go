package store

import (
	"context"
	"sync"
	"time"

	"github.com/raysh454/shadowzap/internal/model"
)

// MemorySessionStore keeps the session id in process memory.
type MemorySessionStore struct {
	mu        sync.Mutex
	id        string
	expiresAt time.Time
	now       func() time.Time
}

// NewMemorySessionStore returns an empty store. now may be nil.
func NewMemorySessionStore(now func() time.Time) *MemorySessionStore {
	if now == nil {
		now = time.Now
	}
	return &MemorySessionStore{now: now}
}

func (s *MemorySessionStore) Get(_ context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id == "" || !s.now().Before(s.expiresAt) {
		return "", false, nil
	}
	return s.id, true, nil
}

func (s *MemorySessionStore) Set(_ context.Context, id string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	s.expiresAt = s.now().Add(ttl)
	return nil
}

func (s *MemorySessionStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = ""
	s.expiresAt = time.Time{}
	return nil
}

// ExpiresAt is exposed for tests.
func (s *MemorySessionStore) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// MemoryHistoryStore keeps the scan history in process memory.
type MemoryHistoryStore struct {
	mu       sync.Mutex
	records  []model.ScanRecord
	capacity int
}

func NewMemoryHistoryStore(capacity int) *MemoryHistoryStore {
	if capacity <= 0 {
		capacity = DefaultHistoryCap
	}
	return &MemoryHistoryStore{capacity: capacity}
}

func (h *MemoryHistoryStore) List(_ context.Context) ([]model.ScanRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]model.ScanRecord, len(h.records))
	for i := range h.records {
		out[i] = *h.records[i].Clone()
	}
	return out, nil
}

func (h *MemoryHistoryStore) Upsert(_ context.Context, rec model.ScanRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = upsertRecord(h.records, *rec.Clone(), h.capacity)
	return nil
}

func (h *MemoryHistoryStore) Cap() int { return h.capacity }
