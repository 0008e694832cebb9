package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"dorkforge/internal/generation/prompt"
	"dorkforge/internal/templates/models"
	id "dorkforge/pkg/domain"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func template(owner id.SubscriberID, name string, at time.Time) *models.Template {
	return &models.Template{
		ID:           id.NewTemplateID(),
		SubscriberID: owner,
		Name:         name,
		Content:      "inurl:admin",
		Platform:     prompt.PlatformGoogle,
		Parameters:   map[string]any{"target": "example.com"},
		CreatedAt:    at,
	}
}

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
}

func (s *InMemoryStoreSuite) TestNewestFirstPerOwner() {
	ctx := context.Background()
	owner, other := id.NewSubscriberID(), id.NewSubscriberID()

	s.Require().NoError(s.store.Insert(ctx, template(owner, "old", base)))
	s.Require().NoError(s.store.Insert(ctx, template(owner, "new", base.Add(time.Hour))))
	s.Require().NoError(s.store.Insert(ctx, template(other, "foreign", base)))

	got, err := s.store.ListBySubscriber(ctx, owner)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("new", got[0].Name)
	s.Equal("old", got[1].Name)
}

func (s *InMemoryStoreSuite) TestEmptyListIsNotNil() {
	got, err := s.store.ListBySubscriber(context.Background(), id.NewSubscriberID())
	s.Require().NoError(err)
	s.NotNil(got)
	s.Empty(got)
}

func (s *InMemoryStoreSuite) TestReturnsCopies() {
	ctx := context.Background()
	owner := id.NewSubscriberID()
	s.Require().NoError(s.store.Insert(ctx, template(owner, "n", base)))

	got, _ := s.store.ListBySubscriber(ctx, owner)
	got[0].Parameters["target"] = "mutated"

	again, _ := s.store.ListBySubscriber(ctx, owner)
	s.Equal("example.com", again[0].Parameters["target"])
}

func TestPostgresInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tpl := template(id.NewSubscriberID(), "Admin panels", base)
	tpl.Category = "web"

	mock.ExpectExec(`INSERT INTO dork_templates`).
		WithArgs(uuid.UUID(tpl.ID), uuid.UUID(tpl.SubscriberID), "Admin panels", "inurl:admin", "google", "web",
			[]byte(`{"target":"example.com"}`), base).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewPostgres(db).Insert(context.Background(), tpl))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO dork_templates`).WillReturnError(errors.New("fk violation"))

	err = NewPostgres(db).Insert(context.Background(), template(id.NewSubscriberID(), "n", base))
	assert.ErrorContains(t, err, "insert template")
}

func TestPostgresListBySubscriber(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	owner := id.NewSubscriberID()
	first := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM dork_templates\s+WHERE user_id = \$1\s+ORDER BY created_at DESC`).
		WithArgs(uuid.UUID(owner)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "content", "platform", "category", "parameters", "created_at"}).
			AddRow(first.String(), uuid.UUID(owner).String(), "new", "port:22", "shodan", "", []byte(`{"target":"10.0.0.0/8"}`), base.Add(time.Hour)).
			AddRow(uuid.New().String(), uuid.UUID(owner).String(), "old", "inurl:admin", "google", "web", nil, base))

	got, err := NewPostgres(db).ListBySubscriber(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, id.TemplateID(first), got[0].ID)
	assert.Equal(t, prompt.PlatformShodan, got[0].Platform)
	assert.Equal(t, "10.0.0.0/8", got[0].Parameters["target"])
	assert.Nil(t, got[1].Parameters)
	assert.NoError(t, mock.ExpectationsWereMet())
}
