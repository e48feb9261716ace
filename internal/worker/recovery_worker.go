package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/lms-notify/internal/clock"
	"github.com/notifyhub/lms-notify/internal/queue"
	"github.com/notifyhub/lms-notify/internal/repository"
)

// RecoveryWorker enqueues jobs that no queue item will ever reach: jobs left
// pending because the queue was full at submit time or the process stopped
// before enqueueing, and jobs left processing by a process that stopped
// mid-dispatch.
type RecoveryWorker struct {
	repo          repository.JobRepository
	q             *queue.PriorityQueue
	clock         clock.Clock
	interval      time.Duration
	pendingAge    time.Duration
	processingAge time.Duration
	logger        *zap.Logger
}

// NewRecoveryWorker returns a worker that recovers pending jobs older than
// pendingAge and processing jobs untouched for processingAge. processingAge
// must exceed the longest dispatch, or a live attempt is run twice.
func NewRecoveryWorker(
	repo repository.JobRepository,
	q *queue.PriorityQueue,
	clk clock.Clock,
	interval, pendingAge, processingAge time.Duration,
	logger *zap.Logger,
) *RecoveryWorker {
	return &RecoveryWorker{
		repo: repo, q: q, clock: clk, interval: interval,
		pendingAge: pendingAge, processingAge: processingAge, logger: logger,
	}
}

func (rw *RecoveryWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(rw.interval)
	defer ticker.Stop()

	rw.logger.Info("recovery worker started",
		zap.Duration("interval", rw.interval),
		zap.Duration("pending_age", rw.pendingAge),
		zap.Duration("processing_age", rw.processingAge),
	)

	for {
		select {
		case <-ctx.Done():
			rw.logger.Info("recovery worker stopping")
			return
		case <-ticker.C:
			rw.Poll(ctx)
		}
	}
}

// Poll enqueues stale pending and processing jobs and returns how many were queued.
func (rw *RecoveryWorker) Poll(ctx context.Context) int {
	now := rw.clock.Now()

	pending, err := rw.repo.FindStalePending(ctx, now.Add(-rw.pendingAge))
	if err != nil {
		rw.logger.Error("recovery poll error", zap.String("status", "pending"), zap.Error(err))
	}
	processing, err := rw.repo.FindStaleProcessing(ctx, now.Add(-rw.processingAge))
	if err != nil {
		rw.logger.Error("recovery poll error", zap.String("status", "processing"), zap.Error(err))
	}

	n := requeue(ctx, rw.repo, rw.q, append(pending, processing...), rw.logger)
	if n > 0 {
		rw.logger.Info("recovered stuck jobs",
			zap.Int("count", n),
			zap.Int("pending", len(pending)),
			zap.Int("processing", len(processing)),
		)
	}
	return n
}
