package subscriber

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"dorkforge/internal/subscriber/models"
	id "dorkforge/pkg/domain"
	"dorkforge/pkg/platform/sentinel"
	"dorkforge/pkg/testutil"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	now   time.Time
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) TestFindOrCreateIsIdempotent() {
	ctx := context.Background()
	first, err := s.store.FindOrCreate(ctx, models.NewSubscriber("user_1", "a@example.com", s.now))
	require.NoError(s.T(), err)

	second, err := s.store.FindOrCreate(ctx, models.NewSubscriber("user_1", "other@example.com", s.now))
	require.NoError(s.T(), err)

	assert.Equal(s.T(), first.ID, second.ID)
	assert.Equal(s.T(), "a@example.com", second.Email)
	assert.Equal(s.T(), models.TierFree, second.Tier)
	assert.Equal(s.T(), models.FreeLimit, second.UsageLimit)
}

func (s *InMemoryStoreSuite) TestFindNotFound() {
	_, err := s.store.FindByClerkID(context.Background(), "user_missing")
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestIncrementUsage() {
	ctx := context.Background()
	sub, err := s.store.FindOrCreate(ctx, models.NewSubscriber("user_1", "", s.now))
	require.NoError(s.T(), err)

	result := testutil.RunConcurrent(10, func(int) error {
		return s.store.IncrementUsage(ctx, sub.ID)
	})
	assert.EqualValues(s.T(), 10, result.Successes)

	found, err := s.store.FindByClerkID(ctx, "user_1")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 10, found.UsageCount)

	assert.ErrorIs(s.T(), s.store.IncrementUsage(ctx, id.NewSubscriberID()), sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestApplyTierChange() {
	ctx := context.Background()
	sub, err := s.store.FindOrCreate(ctx, models.NewSubscriber("user_1", "", s.now))
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.store.IncrementUsage(ctx, sub.ID))

	change := models.NewTierChange(models.TierPro, s.now)
	require.NoError(s.T(), s.store.ApplyTierChange(ctx, sub.ID, change))

	found, err := s.store.FindByClerkID(ctx, "user_1")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.TierPro, found.Tier)
	assert.Equal(s.T(), models.ProLimit, found.UsageLimit)
	assert.Zero(s.T(), found.UsageCount)
	require.NotNil(s.T(), found.PeriodEnd)
	assert.Equal(s.T(), s.now.Add(models.PeriodLength), *found.PeriodEnd)
}

func (s *InMemoryStoreSuite) TestReturnedRecordsAreCopies() {
	ctx := context.Background()
	sub, err := s.store.FindOrCreate(ctx, models.NewSubscriber("user_1", "", s.now))
	require.NoError(s.T(), err)

	sub.UsageCount = 99
	found, err := s.store.FindByClerkID(ctx, "user_1")
	require.NoError(s.T(), err)
	assert.Zero(s.T(), found.UsageCount)
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}
