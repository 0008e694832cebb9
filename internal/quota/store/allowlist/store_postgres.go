// Package allowlist answers whether an email belongs to an administrator.
package allowlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dorkforge/pkg/identity"
)

// PostgresStore reads admin emails from dork_admin_emails.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) IsAdmin(ctx context.Context, email string) (bool, error) {
	email = identity.NormalizeEmail(email)
	if email == "" {
		return false, nil
	}
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM dork_admin_emails WHERE lower(email) = $1 LIMIT 1`,
		email,
	).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check admin allowlist: %w", err)
	}
	return true, nil
}

// Add inserts an admin email. Existing entries are left untouched.
func (s *PostgresStore) Add(ctx context.Context, email string, at time.Time) error {
	email = identity.NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("admin email is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dork_admin_emails (email, created_at) VALUES ($1, $2) ON CONFLICT (email) DO NOTHING`,
		email, at,
	)
	if err != nil {
		return fmt.Errorf("add admin email: %w", err)
	}
	return nil
}
