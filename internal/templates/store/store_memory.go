package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"dorkforge/internal/templates/models"
	id "dorkforge/pkg/domain"
)

type InMemoryStore struct {
	mu        sync.RWMutex
	templates map[id.SubscriberID][]*models.Template
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{templates: make(map[id.SubscriberID][]*models.Template)}
}

func (s *InMemoryStore) Insert(_ context.Context, tpl *models.Template) error {
	if tpl == nil {
		return fmt.Errorf("template is required")
	}
	stored := *tpl
	stored.Parameters = maps.Clone(tpl.Parameters)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[tpl.SubscriberID] = append(s.templates[tpl.SubscriberID], &stored)
	return nil
}

func (s *InMemoryStore) ListBySubscriber(_ context.Context, owner id.SubscriberID) ([]*models.Template, error) {
	s.mu.RLock()
	list := slices.Clone(s.templates[owner])
	s.mu.RUnlock()

	slices.SortStableFunc(list, func(a, b *models.Template) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	slices.Reverse(list)

	out := make([]*models.Template, 0, len(list))
	for _, t := range list {
		c := *t
		c.Parameters = maps.Clone(t.Parameters)
		out = append(out, &c)
	}
	return out, nil
}
