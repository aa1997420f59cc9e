// Package session keeps per-browser state between requests.  Session data
// lives in a Store (Redis in production, process memory otherwise) under
// an unguessable id carried by a cookie.  Handlers never touch the store
// directly; they receive the *Session attached to the request context.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Values is the decoded session payload.  Values round-trip through JSON,
// so numbers read back as float64; use the typed getters on Session.
type Values map[string]any

// Store persists session values by id.
type Store interface {
	// Load returns the values for id.  found is false when the id is
	// unknown or expired.
	Load(ctx context.Context, id string) (v Values, found bool, err error)
	Save(ctx context.Context, id string, v Values, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

type memEntry struct {
	data    []byte
	expires time.Time
}

// MemoryStore is a process-local Store.  It backs tests and single-node
// setups where Redis is unreachable at startup.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memEntry
	now   func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memEntry), now: time.Now}
}

func (m *MemoryStore) Load(_ context.Context, id string) (Values, bool, error) {
	m.mu.Lock()
	e, ok := m.items[id]
	if ok && !e.expires.IsZero() && m.now().After(e.expires) {
		delete(m.items, id)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, false, nil
	}
	var v Values
	if err := json.Unmarshal(e.data, &v); err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (m *MemoryStore) Save(_ context.Context, id string, v Values, ttl time.Duration) error {
	// Encode on save so memory and Redis hand back identical shapes.
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var exp time.Time
	if ttl > 0 {
		exp = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.items[id] = memEntry{data: b, expires: exp}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.items, id)
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
