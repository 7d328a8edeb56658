package session

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mohammed-shakir/occurrence-explorer/internal/core/observability"
)

// MemoryStore bounds the number of live sessions; the least recently used
// session is evicted first and every slot expires after ttl.
type MemoryStore struct {
	lru *expirable.LRU[string, *Snapshot]
}

func NewMemoryStore(capacity int, ttl time.Duration) *MemoryStore {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryStore{lru: expirable.NewLRU[string, *Snapshot](capacity, nil, ttl)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Snapshot, error) {
	start := time.Now()
	s, ok := m.lru.Get(id)
	observability.ObserveSessionOp("memory", "get", nil, time.Since(start).Seconds())
	if !ok {
		return nil, ErrEmpty
	}
	return s, nil
}

func (m *MemoryStore) Put(_ context.Context, id string, s *Snapshot) error {
	start := time.Now()
	m.lru.Add(id, s)
	observability.ObserveSessionOp("memory", "put", nil, time.Since(start).Seconds())
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, id string) error {
	start := time.Now()
	m.lru.Remove(id)
	observability.ObserveSessionOp("memory", "clear", nil, time.Since(start).Seconds())
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Len() int { return m.lru.Len() }
