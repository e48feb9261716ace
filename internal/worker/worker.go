package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/lms-notify/internal/domain"
	"github.com/notifyhub/lms-notify/internal/queue"
	"github.com/notifyhub/lms-notify/internal/repository"
)

// Worker is a single goroutine that pulls job IDs from the priority queue,
// runs one dispatch attempt and persists what the executor decided.
type Worker struct {
	id        int
	q         *queue.PriorityQueue
	repo      repository.JobRepository
	exec      *Executor
	escalator *Escalator
	logger    *zap.Logger
	hooks     MetricHooks
}

func NewWorker(
	id int,
	q *queue.PriorityQueue,
	repo repository.JobRepository,
	exec *Executor,
	escalator *Escalator,
	logger *zap.Logger,
	hooks MetricHooks,
) *Worker {
	return &Worker{
		id: id, q: q, repo: repo, exec: exec, escalator: escalator,
		logger: logger, hooks: hooks.withDefaults(),
	}
}

// Run blocks until ctx is cancelled, processing one queue item per iteration.
// A dequeued job runs to completion even if ctx is cancelled meanwhile.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started", zap.Int("id", w.id))
	for {
		item, ok := w.q.Dequeue(ctx)
		if !ok {
			w.logger.Info("worker stopping", zap.Int("id", w.id))
			return
		}
		w.Process(context.WithoutCancel(ctx), item)
	}
}

// Process runs one attempt of the queued job and records the decision.
func (w *Worker) Process(ctx context.Context, item queue.Item) {
	start := time.Now()
	log := w.logger.With(zap.String("job_id", item.JobID))

	job, err := w.repo.GetByID(ctx, item.JobID)
	if err != nil {
		log.Error("failed to fetch job", zap.Error(err))
		return
	}

	// A job can be enqueued twice (retry poll racing recovery); skip finished ones.
	if job.Status == domain.JobDelivered || job.Status == domain.JobFailed {
		log.Debug("job already finished", zap.String("status", string(job.Status)))
		return
	}

	if err := w.repo.MarkProcessing(ctx, job.ID, job.Attempts+1); err != nil {
		log.Error("failed to mark as processing", zap.Error(err))
		return
	}

	d := w.exec.Execute(ctx, job)
	log = log.With(zap.Int("attempt", d.Attempt))

	switch d.Kind {
	case Delivered:
		if err := w.repo.MarkDelivered(ctx, job.ID, d.Result.Outcomes); err != nil {
			log.Error("failed to mark as delivered", zap.Error(err))
			return
		}
		elapsed := time.Since(start)
		w.hooks.OnDelivered(elapsed)
		log.Info("job delivered",
			zap.Any("failed_channels", d.Result.FailedChannels()),
			zap.Duration("latency", elapsed),
		)

	case Retry:
		if err := w.repo.ScheduleRetry(ctx, job.ID, d.RetryAt, d.ErrorMessage(), d.Result.Outcomes); err != nil {
			log.Error("failed to schedule retry", zap.Error(err))
			return
		}
		w.hooks.OnRetry()
		log.Warn("dispatch failed, retry scheduled",
			zap.Error(d.Err),
			zap.Time("next_retry_at", d.RetryAt),
		)

	case Exhausted:
		if err := w.repo.MarkFailed(ctx, job.ID, d.ErrorMessage(), d.Result.Outcomes); err != nil {
			log.Error("failed to mark as failed", zap.Error(err))
		}
		w.hooks.OnExhausted()
		log.Error("dispatch failed, attempts exhausted", zap.Error(d.Err))
		w.hooks.OnEscalation(w.escalator.Escalate(ctx, job, d.ErrorMessage()))
	}
}
