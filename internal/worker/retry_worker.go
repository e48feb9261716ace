package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/lms-notify/internal/clock"
	"github.com/notifyhub/lms-notify/internal/domain"
	"github.com/notifyhub/lms-notify/internal/queue"
	"github.com/notifyhub/lms-notify/internal/repository"
)

// RetryWorker is the delay timer behind the backoff schedule: it polls for
// jobs whose next_retry_at has passed and re-enqueues them.
//
// Retry times live in the database, so scheduled retries survive restarts.
type RetryWorker struct {
	repo     repository.JobRepository
	q        *queue.PriorityQueue
	clock    clock.Clock
	interval time.Duration
	logger   *zap.Logger
}

func NewRetryWorker(
	repo repository.JobRepository,
	q *queue.PriorityQueue,
	clk clock.Clock,
	interval time.Duration,
	logger *zap.Logger,
) *RetryWorker {
	return &RetryWorker{repo: repo, q: q, clock: clk, interval: interval, logger: logger}
}

// Run ticks every interval and re-enqueues any due retries.
func (rw *RetryWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(rw.interval)
	defer ticker.Stop()

	rw.logger.Info("retry worker started", zap.Duration("interval", rw.interval))

	for {
		select {
		case <-ctx.Done():
			rw.logger.Info("retry worker stopping")
			return
		case <-ticker.C:
			rw.Poll(ctx)
		}
	}
}

// Poll re-enqueues every due retry and returns how many were queued.
func (rw *RetryWorker) Poll(ctx context.Context) int {
	jobs, err := rw.repo.FindDueRetries(ctx, rw.clock.Now())
	if err != nil {
		rw.logger.Error("retry poll error", zap.Error(err))
		return 0
	}

	n := requeue(ctx, rw.repo, rw.q, jobs, rw.logger)
	if n > 0 {
		rw.logger.Info("re-enqueued due retries", zap.Int("count", n))
	}
	return n
}

// requeue enqueues jobs by derived priority and then marks them queued. The
// mark is conditional on the status and attempts read at poll time, so a
// worker that finishes the job first keeps its result. Jobs that do not fit
// stay in their current state for the next poll.
func requeue(ctx context.Context, repo repository.JobRepository, q *queue.PriorityQueue, jobs []*domain.Job, logger *zap.Logger) int {
	queued := 0
	for _, j := range jobs {
		if err := q.Enqueue(queue.Item{JobID: j.ID, Priority: j.Request.Priority()}); err != nil {
			logger.Warn("could not enqueue job", zap.String("job_id", j.ID), zap.Error(err))
			continue
		}
		queued++

		ok, err := repo.MarkQueued(ctx, j.ID, j.Status, j.Attempts)
		switch {
		case err != nil:
			logger.Error("failed to mark job queued", zap.String("job_id", j.ID), zap.Error(err))
		case !ok:
			logger.Debug("job picked up before it was marked queued", zap.String("job_id", j.ID))
		}
	}
	return queued
}
