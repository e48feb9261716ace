package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyhub/lms-notify/internal/clock"
	"github.com/notifyhub/lms-notify/internal/domain"
	"github.com/notifyhub/lms-notify/internal/queue"
	"github.com/notifyhub/lms-notify/internal/repository"
)

// MaxBatchSize caps a single broadcast (e.g. a course announcement).
const MaxBatchSize = 1000

const (
	defaultInboxLimit = 20
	maxInboxLimit     = 100
)

// NotificationService is the entry point LMS event handlers and the HTTP API
// use. It validates requests, persists jobs and enqueues them; the worker pool
// does the dispatching. Submitting never blocks on delivery.
type NotificationService struct {
	jobs        repository.JobRepository
	inbox       repository.InAppRepository
	q           *queue.PriorityQueue
	clock       clock.Clock
	maxAttempts int
	logger      *zap.Logger
}

func NewNotificationService(
	jobs repository.JobRepository,
	inbox repository.InAppRepository,
	q *queue.PriorityQueue,
	clk clock.Clock,
	maxAttempts int,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		jobs: jobs, inbox: inbox, q: q, clock: clk,
		maxAttempts: maxAttempts, logger: logger.Named("notification-service"),
	}
}

// Submit validates, persists and enqueues a single request.
// An invalid request is rejected here and never becomes a job.
func (s *NotificationService) Submit(ctx context.Context, req domain.NotificationRequest) (*domain.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	j := s.buildJob(req, nil)
	if err := s.jobs.Create(ctx, j); err != nil {
		return nil, fmt.Errorf("persist job: %w", err)
	}

	s.enqueue(ctx, j)
	return j, nil
}

// SubmitBatch validates and stores up to MaxBatchSize requests in one
// transaction, then enqueues them.
func (s *NotificationService) SubmitBatch(ctx context.Context, requests []domain.NotificationRequest) (*domain.Batch, error) {
	if len(requests) == 0 {
		return nil, domain.ErrBatchEmpty
	}
	if len(requests) > MaxBatchSize {
		return nil, domain.ErrBatchTooLarge
	}

	batchID := uuid.New().String()
	jobs := make([]*domain.Job, len(requests))
	for i, req := range requests {
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		jobs[i] = s.buildJob(req, &batchID)
	}

	batch, err := s.jobs.CreateBatch(ctx, batchID, jobs)
	if err != nil {
		return nil, fmt.Errorf("persist batch: %w", err)
	}

	for _, j := range jobs {
		s.enqueue(ctx, j)
	}
	return batch, nil
}

// GetJob answers ErrNotFound for ids that are not UUIDs; they can never exist.
func (s *NotificationService) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return s.jobs.GetByID(ctx, id)
}

// Inbox lists a user's in-app notifications, newest first.
func (s *NotificationService) Inbox(ctx context.Context, userID string, f domain.InboxFilter) ([]*domain.InAppNotification, int, error) {
	if userID == "" {
		return nil, 0, domain.ErrInvalidRecipient
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultInboxLimit
	}
	if f.Limit > maxInboxLimit {
		f.Limit = maxInboxLimit
	}
	return s.inbox.ListForUser(ctx, userID, f)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	return s.inbox.MarkRead(ctx, userID, id, s.clock.Now())
}

// MarkAllRead returns how many notifications changed state.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, domain.ErrInvalidRecipient
	}
	return s.inbox.MarkAllRead(ctx, userID, s.clock.Now())
}

func (s *NotificationService) buildJob(req domain.NotificationRequest, batchID *string) *domain.Job {
	now := s.clock.Now()
	return &domain.Job{
		ID:          uuid.New().String(),
		BatchID:     batchID,
		Request:     req,
		Status:      domain.JobPending,
		MaxAttempts: s.maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// enqueue places the job on the queue and marks it queued. If the queue is
// full the job stays pending and the recovery worker enqueues it later. A
// worker may finish the job before the mark lands; the conditional mark then
// leaves the worker's status in place.
func (s *NotificationService) enqueue(ctx context.Context, j *domain.Job) {
	if err := s.q.Enqueue(queue.Item{JobID: j.ID, Priority: j.Request.Priority()}); err != nil {
		s.logger.Warn("queue full: job will remain pending",
			zap.String("job_id", j.ID), zap.Error(err))
		return
	}

	ok, err := s.jobs.MarkQueued(ctx, j.ID, j.Status, j.Attempts)
	if err != nil {
		s.logger.Error("failed to update status to queued", zap.String("job_id", j.ID), zap.Error(err))
		return
	}
	if ok {
		j.Status = domain.JobQueued
	}
}
