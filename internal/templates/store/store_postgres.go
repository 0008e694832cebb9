package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"dorkforge/internal/generation/prompt"
	"dorkforge/internal/templates/models"
	id "dorkforge/pkg/domain"
)

// PostgresStore persists saved templates in dork_templates.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, tpl *models.Template) error {
	if tpl == nil {
		return fmt.Errorf("template is required")
	}
	var params []byte
	if len(tpl.Parameters) > 0 {
		var err error
		if params, err = json.Marshal(tpl.Parameters); err != nil {
			return fmt.Errorf("marshal template parameters: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dork_templates (id, user_id, name, content, platform, category, parameters, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.UUID(tpl.ID),
		uuid.UUID(tpl.SubscriberID),
		tpl.Name,
		tpl.Content,
		string(tpl.Platform),
		tpl.Category,
		params,
		tpl.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

// ListBySubscriber returns the owner's templates, newest first.
func (s *PostgresStore) ListBySubscriber(ctx context.Context, owner id.SubscriberID) ([]*models.Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, content, platform, category, parameters, created_at
		FROM dork_templates
		WHERE user_id = $1
		ORDER BY created_at DESC`,
		uuid.UUID(owner),
	)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	templates := make([]*models.Template, 0)
	for rows.Next() {
		var (
			tpl      models.Template
			rawID    uuid.UUID
			rawOwner uuid.UUID
			platform string
			params   []byte
		)
		if err := rows.Scan(&rawID, &rawOwner, &tpl.Name, &tpl.Content, &platform, &tpl.Category, &params, &tpl.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		tpl.ID = id.TemplateID(rawID)
		tpl.SubscriberID = id.SubscriberID(rawOwner)
		tpl.Platform = prompt.Platform(platform)
		if len(params) > 0 {
			if err := json.Unmarshal(params, &tpl.Parameters); err != nil {
				return nil, fmt.Errorf("decode template parameters: %w", err)
			}
		}
		templates = append(templates, &tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return templates, nil
}
