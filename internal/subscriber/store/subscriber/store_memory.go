package subscriber

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dorkforge/internal/subscriber/models"
	id "dorkforge/pkg/domain"
	"dorkforge/pkg/platform/sentinel"
)

// InMemoryStore keeps subscribers in process memory for tests and database-less runs.
// Returned records are copies; callers cannot mutate stored state.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[id.SubscriberID]*models.Subscriber
	byClerk map[id.ClerkID]id.SubscriberID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[id.SubscriberID]*models.Subscriber),
		byClerk: make(map[id.ClerkID]id.SubscriberID),
	}
}

func (s *InMemoryStore) FindByClerkID(_ context.Context, clerkID id.ClerkID) (*models.Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subID, ok := s.byClerk[clerkID]
	if !ok {
		return nil, fmt.Errorf("subscriber not found: %w", sentinel.ErrNotFound)
	}
	return clone(s.byID[subID]), nil
}

func (s *InMemoryStore) FindOrCreate(_ context.Context, candidate *models.Subscriber) (*models.Subscriber, error) {
	if candidate == nil {
		return nil, fmt.Errorf("subscriber is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byClerk[candidate.ClerkID]; ok {
		return clone(s.byID[existing]), nil
	}
	stored := clone(candidate)
	s.byID[stored.ID] = stored
	s.byClerk[stored.ClerkID] = stored.ID
	return clone(stored), nil
}

func (s *InMemoryStore) IncrementUsage(_ context.Context, subscriberID id.SubscriberID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.byID[subscriberID]
	if !ok {
		return fmt.Errorf("increment usage: subscriber not found: %w", sentinel.ErrNotFound)
	}
	sub.UsageCount++
	sub.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) ApplyTierChange(_ context.Context, subscriberID id.SubscriberID, change models.TierChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.byID[subscriberID]
	if !ok {
		return fmt.Errorf("apply tier change: subscriber not found: %w", sentinel.ErrNotFound)
	}
	sub.Apply(change)
	return nil
}

func clone(sub *models.Subscriber) *models.Subscriber {
	c := *sub
	if sub.PeriodStart != nil {
		t := *sub.PeriodStart
		c.PeriodStart = &t
	}
	if sub.PeriodEnd != nil {
		t := *sub.PeriodEnd
		c.PeriodEnd = &t
	}
	return &c
}
