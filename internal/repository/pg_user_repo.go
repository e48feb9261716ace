package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyhub/lms-notify/internal/domain"
)

type pgUserRepository struct {
	pool *pgxpool.Pool
}

// NewPgUserRepository returns a UserRepository reading the LMS users table.
func NewPgUserRepository(pool *pgxpool.Pool) UserRepository {
	return &pgUserRepository{pool: pool}
}

func (r *pgUserRepository) GetUser(ctx context.Context, id string) (*domain.Recipient, error) {
	var u domain.Recipient
	var email, phone *string
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, email, phone, last_seen_at
		FROM users
		WHERE id::text = $1 AND deleted_at IS NULL`, id).
		Scan(&u.ID, &email, &phone, &u.LastSeenAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if email != nil {
		u.Email = *email
	}
	if phone != nil {
		u.Phone = *phone
	}

	rows, err := r.pool.Query(ctx, `
		SELECT token FROM user_push_tokens
		WHERE user_id::text = $1
		ORDER BY created_at`, id)
	if err != nil {
		return nil, fmt.Errorf("get push tokens: %w", err)
	}
	tokens, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan push tokens: %w", err)
	}
	u.PushTokens = tokens

	return &u, nil
}
