package session

import (
	"sync"

	"xcreator/pkg/domain"
)

// Store persists the credential pair between dashboard runs. Implementations
// hold at most one session; Save replaces whatever was there.
type Store interface {
	Save(domain.Session) error
	Load() (domain.Session, bool, error)
	Clear() error
}

// MemoryStore keeps the session in-process. Used in tests and for
// throwaway sessions.
type MemoryStore struct {
	mu   sync.Mutex
	sess domain.Session
	set  bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = s
	m.set = true
	return nil
}

func (m *MemoryStore) Load() (domain.Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess, m.set, nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = domain.Session{}
	m.set = false
	return nil
}
