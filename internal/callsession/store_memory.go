package callsession

import (
	"context"
	"sort"
	"sync"
	"time"

	"hvac-backoffice/internal/ivr"
)

// MemoryStore is a process-local Store for tests and single-instance deployments.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]ivr.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]ivr.Session{}}
}

func memoryKey(phone, callID string) string { return phone + "|" + callID }

func (m *MemoryStore) Get(_ context.Context, phone, callID string) (ivr.Session, error) {
	if err := validateKey(phone, callID); err != nil {
		return ivr.Session{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[memoryKey(phone, callID)]
	if !ok {
		return ivr.Session{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Put(_ context.Context, s ivr.Session) error {
	if err := validateKey(s.Phone, s.CallID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[memoryKey(s.Phone, s.CallID)] = s
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, phone, callID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, memoryKey(phone, callID))
	return nil
}

func (m *MemoryStore) Expired(_ context.Context, now time.Time, limit int) ([]ivr.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ivr.Session
	for _, s := range m.sessions {
		if s.Expired(now) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
