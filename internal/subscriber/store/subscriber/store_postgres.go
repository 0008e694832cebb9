package subscriber

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"dorkforge/internal/subscriber/models"
	id "dorkforge/pkg/domain"
	"dorkforge/pkg/platform/sentinel"
)

const subscriberColumns = `id, clerk_id, email, tier, usage_count, usage_limit, period_start, period_end, created_at, updated_at`

// PostgresStore persists subscribers in the dork_users table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed subscriber store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByClerkID(ctx context.Context, clerkID id.ClerkID) (*models.Subscriber, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+subscriberColumns+` FROM dork_users WHERE clerk_id = $1`,
		clerkID.String(),
	)
	sub, err := scanSubscriber(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("subscriber not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find subscriber by clerk id: %w", err)
	}
	return sub, nil
}

// FindOrCreate inserts candidate unless a row with the same clerk_id exists, and returns the
// stored row either way. Concurrent first requests converge on a single record.
func (s *PostgresStore) FindOrCreate(ctx context.Context, candidate *models.Subscriber) (*models.Subscriber, error) {
	if candidate == nil {
		return nil, fmt.Errorf("subscriber is required")
	}
	query := `
		INSERT INTO dork_users (id, clerk_id, email, tier, usage_count, usage_limit, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (clerk_id) DO UPDATE SET clerk_id = EXCLUDED.clerk_id
		RETURNING ` + subscriberColumns
	row := s.db.QueryRowContext(ctx, query,
		uuid.UUID(candidate.ID),
		candidate.ClerkID.String(),
		candidate.Email,
		string(candidate.Tier),
		candidate.UsageCount,
		candidate.UsageLimit,
		candidate.CreatedAt,
		candidate.UpdatedAt,
	)
	sub, err := scanSubscriber(row)
	if err != nil {
		return nil, fmt.Errorf("find or create subscriber: %w", err)
	}
	return sub, nil
}

// IncrementUsage adds one use in a single statement so concurrent increments are not lost.
func (s *PostgresStore) IncrementUsage(ctx context.Context, subscriberID id.SubscriberID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE dork_users SET usage_count = usage_count + 1, updated_at = now() WHERE id = $1`,
		uuid.UUID(subscriberID),
	)
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	return requireOneRow(res, "increment usage")
}

func (s *PostgresStore) ApplyTierChange(ctx context.Context, subscriberID id.SubscriberID, change models.TierChange) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE dork_users
		SET tier = $2, usage_limit = $3, usage_count = 0, period_start = $4, period_end = $5, updated_at = $4
		WHERE id = $1`,
		uuid.UUID(subscriberID),
		string(change.Tier),
		change.UsageLimit,
		change.PeriodStart,
		change.PeriodEnd,
	)
	if err != nil {
		return fmt.Errorf("apply tier change: %w", err)
	}
	return requireOneRow(res, "apply tier change")
}

func requireOneRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: subscriber not found: %w", op, sentinel.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscriber(row rowScanner) (*models.Subscriber, error) {
	var (
		sub         models.Subscriber
		rawID       uuid.UUID
		clerkID     string
		tier        string
		periodStart sql.NullTime
		periodEnd   sql.NullTime
	)
	if err := row.Scan(&rawID, &clerkID, &sub.Email, &tier, &sub.UsageCount, &sub.UsageLimit,
		&periodStart, &periodEnd, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, err
	}
	sub.ID = id.SubscriberID(rawID)
	sub.ClerkID = id.ClerkID(clerkID)
	sub.Tier = models.Tier(tier)
	if periodStart.Valid {
		sub.PeriodStart = &periodStart.Time
	}
	if periodEnd.Valid {
		sub.PeriodEnd = &periodEnd.Time
	}
	return &sub, nil
}
