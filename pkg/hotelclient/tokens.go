package hotelclient

import (
	"sync"
	"time"
)

// TokenStore holds the customer bearer token between calls.
type TokenStore interface {
	Get() string
	Set(token string, expiresAt time.Time)
	Clear()
}

type MemoryTokenStore struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{now: time.Now}
}

// Get returns the token, or "" once it has expired.
func (s *MemoryTokenStore) Get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return ""
	}
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	if !s.expiresAt.IsZero() && !now().Before(s.expiresAt) {
		s.token = ""
		return ""
	}
	return s.token
}

func (s *MemoryTokenStore) Set(token string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.expiresAt = token, expiresAt
}

func (s *MemoryTokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.expiresAt = "", time.Time{}
}
