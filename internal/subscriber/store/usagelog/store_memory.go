package usagelog

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"dorkforge/internal/subscriber/models"
	id "dorkforge/pkg/domain"
)

// InMemoryStore keeps usage entries per subscriber in append order.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[id.SubscriberID][]*models.UsageLogEntry
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{entries: make(map[id.SubscriberID][]*models.UsageLogEntry)}
}

func (s *InMemoryStore) Append(_ context.Context, entry *models.UsageLogEntry) error {
	if entry == nil {
		return fmt.Errorf("usage log entry is required")
	}
	stored := *entry
	stored.Details = maps.Clone(entry.Details)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.SubscriberID] = append(s.entries[entry.SubscriberID], &stored)
	return nil
}

func (s *InMemoryStore) ListRecent(_ context.Context, subscriberID id.SubscriberID, limit int) ([]*models.UsageLogEntry, error) {
	s.mu.RLock()
	list := slices.Clone(s.entries[subscriberID])
	s.mu.RUnlock()

	// stable sort keeps append order for equal timestamps, then reverse for newest first
	slices.SortStableFunc(list, func(a, b *models.UsageLogEntry) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	slices.Reverse(list)
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}

	out := make([]*models.UsageLogEntry, 0, len(list))
	for _, e := range list {
		c := *e
		c.Details = maps.Clone(e.Details)
		out = append(out, &c)
	}
	return out, nil
}
