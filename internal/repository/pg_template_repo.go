package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyhub/lms-notify/internal/domain"
)

type pgTemplateRepository struct {
	pool *pgxpool.Pool
}

// NewPgTemplateRepository returns a TemplateRepository backed by PostgreSQL.
func NewPgTemplateRepository(pool *pgxpool.Pool) TemplateRepository {
	return &pgTemplateRepository{pool: pool}
}

// FindActiveTemplate returns the active template for (category, channel), or
// (nil, nil) if there is none. Several active rows resolve to the most recently
// updated one, then the highest id.
func (r *pgTemplateRepository) FindActiveTemplate(ctx context.Context, category domain.Category, channel domain.Channel) (*domain.Template, error) {
	var t domain.Template
	err := r.pool.QueryRow(ctx, `
		SELECT id, type, channel, COALESCE(subject, ''), body, is_active, updated_at
		FROM notification_templates
		WHERE type = $1 AND channel = $2 AND is_active = TRUE
		ORDER BY updated_at DESC, id DESC
		LIMIT 1`, category, channel).
		Scan(&t.ID, &t.Category, &t.Channel, &t.Subject, &t.Body, &t.IsActive, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active template: %w", err)
	}
	return &t, nil
}
