package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyhub/lms-notify/internal/domain"
)

type pgInAppRepository struct {
	pool *pgxpool.Pool
}

// NewPgInAppRepository returns an InAppRepository backed by PostgreSQL.
func NewPgInAppRepository(pool *pgxpool.Pool) InAppRepository {
	return &pgInAppRepository{pool: pool}
}

func (r *pgInAppRepository) Create(ctx context.Context, n *domain.InAppNotification) (string, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, title, message, type, priority, data, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		n.ID, n.UserID, n.Title, n.Body, n.Category, n.Priority, n.Payload, n.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert notification: %w", err)
	}
	return n.ID, nil
}

func (r *pgInAppRepository) ListForUser(ctx context.Context, userID string, f domain.InboxFilter) ([]*domain.InAppNotification, int, error) {
	where := " WHERE user_id = $1"
	if f.UnreadOnly {
		where += " AND read_at IS NULL"
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM notifications"+where, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	offset := (f.Page - 1) * f.Limit
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, title, message, type, priority, COALESCE(data, '{}'::jsonb), read_at, created_at
		FROM notifications`+where+`
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, f.Limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*domain.InAppNotification
	for rows.Next() {
		var n domain.InAppNotification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Category, &n.Priority,
			&n.Payload, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, &n)
	}
	return out, total, rows.Err()
}

func (r *pgInAppRepository) MarkRead(ctx context.Context, userID, id string, at time.Time) error {
	var readAt *time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT read_at FROM notifications WHERE id = $1 AND user_id = $2`, id, userID).Scan(&readAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get notification: %w", err)
	}
	if readAt != nil {
		return domain.ErrAlreadyRead
	}

	_, err = r.pool.Exec(ctx,
		`UPDATE notifications SET read_at = $1 WHERE id = $2 AND user_id = $3`, at, id, userID)
	return err
}

func (r *pgInAppRepository) MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read_at = $1 WHERE user_id = $2 AND read_at IS NULL`, at, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
