package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/lms-notify/internal/queue"
	"github.com/notifyhub/lms-notify/internal/repository"
)

// MetricHooks carries the metric callback functions injected by main.
// Nil fields are no-ops.
type MetricHooks struct {
	OnDelivered  func(latency time.Duration)
	OnRetry      func()
	OnExhausted  func()
	OnEscalation func(sent bool)
}

func (h MetricHooks) withDefaults() MetricHooks {
	if h.OnDelivered == nil {
		h.OnDelivered = func(time.Duration) {}
	}
	if h.OnRetry == nil {
		h.OnRetry = func() {}
	}
	if h.OnExhausted == nil {
		h.OnExhausted = func() {}
	}
	if h.OnEscalation == nil {
		h.OnEscalation = func(bool) {}
	}
	return h
}

// Pool manages the lifecycle of all workers. They share one priority queue;
// the queue's double-select pattern handles ordering.
type Pool struct {
	workers []*Worker
	wg      sync.WaitGroup
}

func NewPool(
	size int,
	q *queue.PriorityQueue,
	repo repository.JobRepository,
	exec *Executor,
	escalator *Escalator,
	logger *zap.Logger,
	hooks MetricHooks,
) *Pool {
	if size <= 0 {
		size = 1
	}
	workers := make([]*Worker, size)
	for i := range workers {
		workers[i] = NewWorker(
			i, q, repo, exec, escalator,
			logger.With(zap.Int("worker_id", i)),
			hooks,
		)
	}
	return &Pool{workers: workers}
}

// Start launches all workers. Cancelling ctx stops them once their current
// job is finished.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Wait blocks until every worker has returned after ctx is cancelled.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) Size() int {
	return len(p.workers)
}
