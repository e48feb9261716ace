package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/lms-notify/internal/clock"
	"github.com/notifyhub/lms-notify/internal/domain"
)

// Dispatcher runs one dispatch attempt. Satisfied by dispatch.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, jobID string, req domain.NotificationRequest) (domain.DispatchResult, error)
}

// RetryPolicy is the fixed attempt limit and backoff schedule.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     []time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     []time.Duration{time.Second, 5 * time.Second, 10 * time.Second},
	}
}

// Delay returns the wait after the given failed attempt (1-based).
// Attempts past the end of the schedule reuse its last entry.
//
//	attempt 1 → Backoff[0]
//	attempt 2 → Backoff[1]
//	attempt N ≥ len(Backoff) → Backoff[len-1]
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if len(p.Backoff) == 0 {
		return 0
	}
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(p.Backoff) {
		idx = len(p.Backoff) - 1
	}
	return p.Backoff[idx]
}

type DecisionKind string

const (
	Delivered DecisionKind = "delivered"
	Retry     DecisionKind = "retry"
	Exhausted DecisionKind = "exhausted"
)

// Decision is what the executor concluded about one attempt.
type Decision struct {
	Kind    DecisionKind
	Attempt int
	RetryAt time.Time
	Result  domain.DispatchResult
	Err     error
}

// ErrorMessage returns the text persisted as the job's last error.
func (d Decision) ErrorMessage() string {
	switch {
	case d.Err != nil:
		return d.Err.Error()
	case d.Result.Error != "":
		return d.Result.Error
	default:
		return ""
	}
}

// Executor wraps the dispatcher with the retry policy. It never sleeps: a
// retry is returned as a time, and the caller persists it.
type Executor struct {
	dispatcher Dispatcher
	policy     RetryPolicy
	clock      clock.Clock
	logger     *zap.Logger
}

func NewExecutor(d Dispatcher, policy RetryPolicy, clk clock.Clock, logger *zap.Logger) *Executor {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultRetryPolicy().MaxAttempts
	}
	return &Executor{dispatcher: d, policy: policy, clock: clk, logger: logger.Named("executor")}
}

// Execute runs one attempt of job and increments job.Attempts.
// Only a dispatch that failed as a whole, or an error or panic escaping the
// dispatcher, is retried; channel failures count as delivered. An invalid
// request is exhausted at once.
func (e *Executor) Execute(ctx context.Context, job *domain.Job) Decision {
	job.Attempts++
	maxAttempts := job.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = e.policy.MaxAttempts
	}

	result, err := e.attempt(ctx, job)
	d := Decision{Attempt: job.Attempts, Result: result, Err: err}

	if err == nil && !result.OverallFailed {
		d.Kind = Delivered
		return d
	}
	if d.Err == nil {
		d.Err = errors.New(result.Error)
	}

	if job.Attempts >= maxAttempts || domain.IsInvalidRequest(d.Err) {
		d.Kind = Exhausted
		return d
	}

	d.Kind = Retry
	d.RetryAt = e.clock.Now().Add(e.policy.Delay(job.Attempts))
	return d
}

func (e *Executor) attempt(ctx context.Context, job *domain.Job) (result domain.DispatchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("dispatch panicked",
				zap.String("job_id", job.ID),
				zap.Int("attempt", job.Attempts),
				zap.Any("panic", r),
			)
			err = fmt.Errorf("dispatch panic: %v", r)
			result = domain.DispatchResult{OverallFailed: true, Error: err.Error()}
		}
	}()
	return e.dispatcher.Dispatch(ctx, job.ID, job.Request)
}
