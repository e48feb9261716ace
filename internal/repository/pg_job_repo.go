package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyhub/lms-notify/internal/domain"
)

const jobColumns = `id, batch_id, user_id, title, message, type, channel,
       COALESCE(data, '{}'::jsonb), status, attempts, max_attempts, next_retry_at,
       last_error, COALESCE(outcomes, '[]'::jsonb), created_at, updated_at`

type pgJobRepository struct {
	pool *pgxpool.Pool
}

// NewPgJobRepository returns a JobRepository backed by PostgreSQL.
func NewPgJobRepository(pool *pgxpool.Pool) JobRepository {
	return &pgJobRepository{pool: pool}
}

func (r *pgJobRepository) Create(ctx context.Context, j *domain.Job) error {
	if err := insertJob(ctx, r.pool, j); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *pgJobRepository) CreateBatch(ctx context.Context, batchID string, jobs []*domain.Job) (*domain.Batch, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &domain.Batch{
		ID:        batchID,
		Total:     len(jobs),
		CreatedAt: time.Now().UTC(),
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO notification_batches (id, total, created_at)
		VALUES ($1,$2,$3)`,
		batch.ID, batch.Total, batch.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert batch: %w", err)
	}

	for _, j := range jobs {
		if err := insertJob(ctx, tx, j); err != nil {
			return nil, fmt.Errorf("insert batch job: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}
	return batch, nil
}

func (r *pgJobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM notification_jobs WHERE id = $1`, id)

	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return j, err
}

func (r *pgJobRepository) MarkQueued(ctx context.Context, id string, from domain.JobStatus, attempts int) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notification_jobs
		SET status = 'queued', updated_at = NOW()
		WHERE id = $1 AND status = $2 AND attempts = $3`, id, from, attempts)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pgJobRepository) MarkProcessing(ctx context.Context, id string, attempts int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notification_jobs
		SET status = 'processing', attempts = $1, next_retry_at = NULL, updated_at = NOW()
		WHERE id = $2`, attempts, id)
	return err
}

func (r *pgJobRepository) MarkDelivered(ctx context.Context, id string, outcomes []domain.ChannelOutcome) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notification_jobs
		SET status = 'delivered', outcomes = $1, last_error = NULL, next_retry_at = NULL, updated_at = NOW()
		WHERE id = $2`, outcomes, id)
	return err
}

func (r *pgJobRepository) ScheduleRetry(ctx context.Context, id string, nextRetry time.Time, errMsg string, outcomes []domain.ChannelOutcome) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notification_jobs
		SET status = 'retrying', next_retry_at = $1, last_error = $2, outcomes = $3, updated_at = NOW()
		WHERE id = $4`, nextRetry, errMsg, outcomes, id)
	return err
}

func (r *pgJobRepository) MarkFailed(ctx context.Context, id, errMsg string, outcomes []domain.ChannelOutcome) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notification_jobs
		SET status = 'failed', last_error = $1, outcomes = $2, next_retry_at = NULL, updated_at = NOW()
		WHERE id = $3`, errMsg, outcomes, id)
	return err
}

func (r *pgJobRepository) FindDueRetries(ctx context.Context, now time.Time) ([]*domain.Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM notification_jobs
		WHERE status = 'retrying'
		  AND attempts < max_attempts
		  AND next_retry_at <= $1
		ORDER BY next_retry_at
		LIMIT 500`, now)
	if err != nil {
		return nil, fmt.Errorf("find due retries: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (r *pgJobRepository) FindStalePending(ctx context.Context, olderThan time.Time) ([]*domain.Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM notification_jobs
		WHERE status = 'pending'
		  AND created_at <= $1
		ORDER BY created_at
		LIMIT 500`, olderThan)
	if err != nil {
		return nil, fmt.Errorf("find stale pending: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (r *pgJobRepository) FindStaleProcessing(ctx context.Context, olderThan time.Time) ([]*domain.Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM notification_jobs
		WHERE status = 'processing'
		  AND updated_at <= $1
		ORDER BY updated_at
		LIMIT 500`, olderThan)
	if err != nil {
		return nil, fmt.Errorf("find stale processing: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

// ---- helpers ----

// execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertJob(ctx context.Context, db execer, j *domain.Job) error {
	_, err := db.Exec(ctx, `
		INSERT INTO notification_jobs
			(id, batch_id, user_id, title, message, type, channel, data,
			 status, attempts, max_attempts, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		j.ID, j.BatchID, j.Request.RecipientID, j.Request.Title, j.Request.Body,
		j.Request.Category, j.Request.Channel, j.Request.Payload,
		j.Status, j.Attempts, j.MaxAttempts, j.CreatedAt, j.UpdatedAt,
	)
	return err
}

// scanJob reads a single job row from any pgx row type.
func scanJob(row pgx.Row) (*domain.Job, error) {
	var j domain.Job
	err := row.Scan(
		&j.ID, &j.BatchID, &j.Request.RecipientID, &j.Request.Title, &j.Request.Body,
		&j.Request.Category, &j.Request.Channel, &j.Request.Payload,
		&j.Status, &j.Attempts, &j.MaxAttempts, &j.NextRetryAt, &j.LastError, &j.Outcomes,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func scanJobs(rows pgx.Rows) ([]*domain.Job, error) {
	var result []*domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, j)
	}
	return result, rows.Err()
}
