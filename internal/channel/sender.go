package channel

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/lms-notify/internal/clock"
	"github.com/notifyhub/lms-notify/internal/domain"
	"github.com/notifyhub/lms-notify/internal/templates"
)

// Sender delivers one notification over one channel. Send never returns an
// error: transport failures are reported through the outcome.
type Sender interface {
	Channel() domain.Channel
	Send(ctx context.Context, msg Message) domain.ChannelOutcome
}

// Message is the channel-independent input handed to every sender of a dispatch.
type Message struct {
	JobID     string
	Recipient domain.Recipient
	Title     string
	Body      string
	Category  domain.Category
	Priority  domain.Priority
	Payload   map[string]any
}

// Vars returns the template variables: the payload plus the request fields.
// Request fields win over payload keys of the same name.
func (m Message) Vars() map[string]any {
	vars := make(map[string]any, len(m.Payload)+7)
	for k, v := range m.Payload {
		vars[k] = v
	}
	vars["title"] = m.Title
	vars["message"] = m.Body
	vars["category"] = string(m.Category)
	vars["priority"] = string(m.Priority)
	vars["user_id"] = m.Recipient.ID
	vars["email"] = m.Recipient.Email
	vars["phone"] = m.Recipient.Phone
	return vars
}

// InAppStore persists in-app records. Satisfied by repository.InAppRepository.
type InAppStore interface {
	Create(ctx context.Context, n *domain.InAppNotification) (string, error)
}

// DeliveryLogger writes the audit trail. Satisfied by repository.DeliveryLogRepository.
type DeliveryLogger interface {
	Insert(ctx context.Context, entry domain.DeliveryLog) error
}

// Limiter throttles calls to an external gateway. Satisfied by ratelimiter.ChannelLimiters.
type Limiter interface {
	Wait(ctx context.Context, ch domain.Channel) error
}

// Options carries the collaborators shared by every sender.
// Audit and Limiter are optional.
type Options struct {
	Resolver *templates.Resolver
	Audit    DeliveryLogger
	Limiter  Limiter
	// Timeout bounds each transport call. Zero means no extra bound.
	Timeout time.Duration
	Clock   clock.Clock
	Logger  *zap.Logger
}

// base holds Options plus the helpers every sender uses.
type base struct {
	ch       domain.Channel
	resolver *templates.Resolver
	audit    DeliveryLogger
	limiter  Limiter
	timeout  time.Duration
	clock    clock.Clock
	logger   *zap.Logger
}

func newBase(ch domain.Channel, opts Options) base {
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return base{
		ch:       ch,
		resolver: opts.Resolver,
		audit:    opts.Audit,
		limiter:  opts.Limiter,
		timeout:  opts.Timeout,
		clock:    clk,
		logger:   logger.Named(string(ch) + "-sender"),
	}
}

func (b base) Channel() domain.Channel { return b.ch }

// render resolves the template for the message category and renders it,
// falling back to the given raw patterns.
func (b base) render(ctx context.Context, msg Message, fallbackSubject, fallbackBody string) (string, string) {
	var res templates.Resolution
	if b.resolver != nil {
		res = b.resolver.Resolve(ctx, msg.Category, b.ch)
	}
	return res.Render(msg.Vars(), fallbackSubject, fallbackBody)
}

// withTimeout bounds a single transport call.
func (b base) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.timeout)
}

func (b base) wait(ctx context.Context) error {
	if b.limiter == nil {
		return nil
	}
	return b.limiter.Wait(ctx, b.ch)
}

// record writes one audit row. It runs inside its own recover boundary and
// never reports failure to the caller.
func (b base) record(ctx context.Context, msg Message, target string, sendErr error) {
	if b.audit == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("delivery log panicked",
				zap.String("job_id", msg.JobID),
				zap.Any("panic", r),
			)
		}
	}()

	entry := domain.DeliveryLog{
		JobID:     msg.JobID,
		UserID:    msg.Recipient.ID,
		Channel:   b.ch,
		Target:    target,
		Succeeded: sendErr == nil,
		CreatedAt: b.clock.Now(),
	}
	if sendErr != nil {
		entry.Error = sendErr.Error()
	}
	if err := b.audit.Insert(ctx, entry); err != nil {
		b.logger.Warn("failed to write delivery log",
			zap.String("job_id", msg.JobID),
			zap.Error(err),
		)
	}
}
