package allowlist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dorkforge/pkg/identity"
)

// InMemoryStore holds admin emails in process memory, typically seeded from ADMIN_EMAILS.
type InMemoryStore struct {
	mu     sync.RWMutex
	emails map[string]struct{}
}

func NewInMemory(emails ...string) *InMemoryStore {
	s := &InMemoryStore{emails: make(map[string]struct{}, len(emails))}
	for _, e := range emails {
		if e = identity.NormalizeEmail(e); e != "" {
			s.emails[e] = struct{}{}
		}
	}
	return s
}

func (s *InMemoryStore) IsAdmin(_ context.Context, email string) (bool, error) {
	email = identity.NormalizeEmail(email)
	if email == "" {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.emails[email]
	return ok, nil
}

func (s *InMemoryStore) Add(_ context.Context, email string, _ time.Time) error {
	email = identity.NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("admin email is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emails[email] = struct{}{}
	return nil
}
