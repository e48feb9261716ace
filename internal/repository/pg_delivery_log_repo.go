package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyhub/lms-notify/internal/domain"
)

type pgDeliveryLogRepository struct {
	pool *pgxpool.Pool
}

func NewPgDeliveryLogRepository(pool *pgxpool.Pool) DeliveryLogRepository {
	return &pgDeliveryLogRepository{pool: pool}
}

func (r *pgDeliveryLogRepository) Insert(ctx context.Context, e domain.DeliveryLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notification_delivery_logs
			(job_id, user_id, channel, target, succeeded, error, created_at)
		VALUES ($1,$2,$3,$4,$5,NULLIF($6, ''),$7)`,
		e.JobID, e.UserID, e.Channel, e.Target, e.Succeeded, e.Error, e.CreatedAt,
	)
	return err
}
