package usagelog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"dorkforge/internal/subscriber/models"
	id "dorkforge/pkg/domain"
)

// PostgresStore appends usage entries to dork_usage_logs.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, entry *models.UsageLogEntry) error {
	if entry == nil {
		return fmt.Errorf("usage log entry is required")
	}
	details, err := marshalDetails(entry.Details)
	if err != nil {
		return fmt.Errorf("marshal usage details: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dork_usage_logs (id, user_id, action, success, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(entry.ID),
		uuid.UUID(entry.SubscriberID),
		entry.Action,
		entry.Success,
		details,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append usage log: %w", err)
	}
	return nil
}

// ListRecent returns at most limit entries for the subscriber, newest first.
func (s *PostgresStore) ListRecent(ctx context.Context, subscriberID id.SubscriberID, limit int) ([]*models.UsageLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, action, success, details, created_at
		FROM dork_usage_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		uuid.UUID(subscriberID), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list usage logs: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.UsageLogEntry, 0)
	for rows.Next() {
		var (
			entry    models.UsageLogEntry
			rawID    uuid.UUID
			rawSubID uuid.UUID
			details  []byte
		)
		if err := rows.Scan(&rawID, &rawSubID, &entry.Action, &entry.Success, &details, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan usage log: %w", err)
		}
		entry.ID = id.UsageLogID(rawID)
		entry.SubscriberID = id.SubscriberID(rawSubID)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, fmt.Errorf("decode usage details: %w", err)
			}
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage logs: %w", err)
	}
	return entries, nil
}

func marshalDetails(details map[string]any) ([]byte, error) {
	if len(details) == 0 {
		return nil, nil
	}
	return json.Marshal(details)
}
