package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/notifyhub/lms-notify/internal/dispatch"
	"github.com/notifyhub/lms-notify/internal/domain"
	"github.com/notifyhub/lms-notify/internal/worker"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	ChannelOutcomes *prometheus.CounterVec
	ChannelLatency  *prometheus.HistogramVec
	Dispatches      *prometheus.CounterVec
	DispatchLatency prometheus.Histogram
	JobsDelivered   prometheus.Counter
	JobRetries      prometheus.Counter
	JobsFailed      prometheus.Counter
	Escalations     *prometheus.CounterVec
	QueueDepth      *prometheus.GaugeVec
}

// New registers all instruments with reg. A custom registry keeps tests
// isolated from prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ChannelOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_channel_outcomes_total",
			Help: "Channel outcomes by channel and result (succeeded, failed, skipped).",
		}, []string{"channel", "result"}),

		ChannelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "notification_channel_send_seconds",
			Help:    "Time spent in a single channel sender, across all of its transport calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"channel"}),

		Dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_dispatches_total",
			Help: "Dispatch attempts by result (dispatched, rejected).",
		}, []string{"result"}),

		DispatchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "notification_dispatch_seconds",
			Help:    "End-to-end latency of one dispatch across all channels.",
			Buckets: prometheus.DefBuckets,
		}),

		JobsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_jobs_delivered_total",
			Help: "Jobs whose dispatch completed.",
		}),
		JobRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_job_retries_total",
			Help: "Dispatch attempts that were scheduled for retry.",
		}),
		JobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_jobs_failed_total",
			Help: "Jobs that exhausted every attempt.",
		}),

		Escalations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_escalations_total",
			Help: "Operator escalations by result (sent, not_sent).",
		}, []string{"result"}),

		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "notification_queue_depth",
			Help: "Current number of jobs waiting per priority tier.",
		}, []string{"priority"}),
	}

	reg.MustRegister(
		m.ChannelOutcomes,
		m.ChannelLatency,
		m.Dispatches,
		m.DispatchLatency,
		m.JobsDelivered,
		m.JobRetries,
		m.JobsFailed,
		m.Escalations,
		m.QueueDepth,
	)

	return m
}

// DispatchHooks returns the callbacks expected by dispatch.Hooks.
// Keeps the prometheus calls out of the dispatcher.
func (m *Metrics) DispatchHooks() dispatch.Hooks {
	return dispatch.Hooks{
		OnOutcome: func(o domain.ChannelOutcome, latency time.Duration) {
			ch := string(o.Channel)
			m.ChannelOutcomes.WithLabelValues(ch, outcomeResult(o)).Inc()
			if o.Attempted {
				m.ChannelLatency.WithLabelValues(ch).Observe(latency.Seconds())
			}
		},
		OnDispatch: func(r domain.DispatchResult, latency time.Duration) {
			if r.OverallFailed {
				m.Dispatches.WithLabelValues("rejected").Inc()
				return
			}
			m.Dispatches.WithLabelValues("dispatched").Inc()
			m.DispatchLatency.Observe(latency.Seconds())
		},
	}
}

// WorkerHooks returns the callbacks expected by worker.MetricHooks.
func (m *Metrics) WorkerHooks() worker.MetricHooks {
	return worker.MetricHooks{
		OnDelivered: func(time.Duration) { m.JobsDelivered.Inc() },
		OnRetry:     func() { m.JobRetries.Inc() },
		OnExhausted: func() { m.JobsFailed.Inc() },
		OnEscalation: func(sent bool) {
			if sent {
				m.Escalations.WithLabelValues("sent").Inc()
				return
			}
			m.Escalations.WithLabelValues("not_sent").Inc()
		},
	}
}

// SetQueueDepths records the current tier depths.
func (m *Metrics) SetQueueDepths(high, medium, low int) {
	m.QueueDepth.WithLabelValues(string(domain.PriorityHigh)).Set(float64(high))
	m.QueueDepth.WithLabelValues(string(domain.PriorityMedium)).Set(float64(medium))
	m.QueueDepth.WithLabelValues(string(domain.PriorityLow)).Set(float64(low))
}

// DepthSource is satisfied by *queue.PriorityQueue.
type DepthSource interface {
	Depths() (high, medium, low int)
}

// SampleQueue refreshes the queue depth gauge every interval until ctx is done.
func (m *Metrics) SampleQueue(ctx context.Context, src DepthSource, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		m.SetQueueDepths(src.Depths())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func outcomeResult(o domain.ChannelOutcome) string {
	switch {
	case !o.Attempted:
		return "skipped"
	case o.Succeeded:
		return "succeeded"
	default:
		return "failed"
	}
}
