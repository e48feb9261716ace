package repository

import (
	"context"
	"time"

	"github.com/notifyhub/lms-notify/internal/domain"
)

// JobRepository persists dispatch jobs and their retry schedule.
// The pgx implementation is in pg_job_repo.go.
// Tests use a hand-written mock (mock_job_repo.go).
type JobRepository interface {
	Create(ctx context.Context, j *domain.Job) error
	CreateBatch(ctx context.Context, batchID string, jobs []*domain.Job) (*domain.Batch, error)
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	// MarkQueued moves a job to queued only while it still has the given
	// status and attempt count. It reports false when a worker has already
	// moved the job on, in which case nothing is written.
	MarkQueued(ctx context.Context, id string, from domain.JobStatus, attempts int) (bool, error)
	MarkProcessing(ctx context.Context, id string, attempts int) error
	MarkDelivered(ctx context.Context, id string, outcomes []domain.ChannelOutcome) error
	ScheduleRetry(ctx context.Context, id string, nextRetry time.Time, errMsg string, outcomes []domain.ChannelOutcome) error
	MarkFailed(ctx context.Context, id string, errMsg string, outcomes []domain.ChannelOutcome) error
	FindDueRetries(ctx context.Context, now time.Time) ([]*domain.Job, error)
	FindStalePending(ctx context.Context, olderThan time.Time) ([]*domain.Job, error)
	// FindStaleProcessing returns jobs stuck in processing since before olderThan,
	// which happens when the process stops mid-dispatch.
	FindStaleProcessing(ctx context.Context, olderThan time.Time) ([]*domain.Job, error)
}

// UserRepository resolves delivery addresses. The users table belongs to the
// LMS; this service only reads it. GetUser returns domain.ErrNotFound when the
// user does not exist.
type UserRepository interface {
	GetUser(ctx context.Context, id string) (*domain.Recipient, error)
}

// TemplateRepository reads the admin-managed notification templates.
type TemplateRepository interface {
	FindActiveTemplate(ctx context.Context, category domain.Category, channel domain.Channel) (*domain.Template, error)
}

// InAppRepository persists the records behind the in-app inbox.
type InAppRepository interface {
	Create(ctx context.Context, n *domain.InAppNotification) (string, error)
	ListForUser(ctx context.Context, userID string, filter domain.InboxFilter) ([]*domain.InAppNotification, int, error)
	MarkRead(ctx context.Context, userID, id string, at time.Time) error
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error)
}

// DeliveryLogRepository stores the per-channel audit trail.
type DeliveryLogRepository interface {
	Insert(ctx context.Context, entry domain.DeliveryLog) error
}
