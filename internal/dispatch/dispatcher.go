package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/lms-notify/internal/channel"
	"github.com/notifyhub/lms-notify/internal/domain"
)

// UserLookup resolves a recipient. Satisfied by repository.UserRepository.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*domain.Recipient, error)
}

// Hooks carries metric callbacks injected by main. Nil fields are no-ops.
type Hooks struct {
	OnOutcome  func(outcome domain.ChannelOutcome, latency time.Duration)
	OnDispatch func(result domain.DispatchResult, latency time.Duration)
}

// Dispatcher fans one NotificationRequest out to every eligible channel.
// It holds no per-dispatch state and is safe for concurrent use.
type Dispatcher struct {
	users   UserLookup
	senders map[domain.Channel]channel.Sender
	flags   domain.ChannelFlags
	logger  *zap.Logger
	hooks   Hooks
}

func NewDispatcher(users UserLookup, senders []channel.Sender, flags domain.ChannelFlags, logger *zap.Logger, hooks Hooks) *Dispatcher {
	byChannel := make(map[domain.Channel]channel.Sender, len(senders))
	for _, s := range senders {
		byChannel[s.Channel()] = s
	}
	if hooks.OnOutcome == nil {
		hooks.OnOutcome = func(domain.ChannelOutcome, time.Duration) {}
	}
	if hooks.OnDispatch == nil {
		hooks.OnDispatch = func(domain.DispatchResult, time.Duration) {}
	}
	return &Dispatcher{
		users:   users,
		senders: byChannel,
		flags:   flags,
		logger:  logger.Named("dispatcher"),
		hooks:   hooks,
	}
}

// Dispatch validates req, resolves the recipient and runs every eligible
// channel concurrently. It returns an error only when nothing could be
// dispatched: an invalid request or an unknown recipient. Channel failures are
// reported in the outcomes and never set OverallFailed.
func (d *Dispatcher) Dispatch(ctx context.Context, jobID string, req domain.NotificationRequest) (domain.DispatchResult, error) {
	start := time.Now()
	log := d.logger.With(
		zap.String("job_id", jobID),
		zap.String("user_id", req.RecipientID),
		zap.String("channel", string(req.Channel)),
	)

	if err := req.Validate(); err != nil {
		return d.abort(log, err, start), err
	}

	recipient, err := d.users.GetUser(ctx, req.RecipientID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = domain.ErrRecipientNotFound
		} else {
			err = fmt.Errorf("lookup recipient: %w", err)
		}
		return d.abort(log, err, start), err
	}

	eligible := domain.ResolveEligibility(req.Channel, d.flags).Channels()
	msg := channel.Message{
		JobID:     jobID,
		Recipient: *recipient,
		Title:     req.Title,
		Body:      req.Body,
		Category:  req.Category,
		Priority:  req.Priority(),
		Payload:   req.Payload,
	}

	// Each goroutine writes only its own slot, so results need no lock.
	outcomes := make([]domain.ChannelOutcome, len(eligible))
	var wg sync.WaitGroup
	for i, ch := range eligible {
		wg.Add(1)
		go func(i int, ch domain.Channel) {
			defer wg.Done()
			sendStart := time.Now()
			outcomes[i] = d.send(ctx, ch, msg)
			d.hooks.OnOutcome(outcomes[i], time.Since(sendStart))
		}(i, ch)
	}
	wg.Wait()

	result := domain.DispatchResult{Outcomes: outcomes}
	d.hooks.OnDispatch(result, time.Since(start))

	log.Info("notification dispatched",
		zap.Int("channels", len(outcomes)),
		zap.Any("failed_channels", result.FailedChannels()),
		zap.Duration("latency", time.Since(start)),
	)
	return result, nil
}

// send runs one sender inside a recover boundary. A panicking sender becomes
// a failed outcome and never affects its siblings.
func (d *Dispatcher) send(ctx context.Context, ch domain.Channel, msg channel.Message) (out domain.ChannelOutcome) {
	s, ok := d.senders[ch]
	if !ok {
		return domain.Skipped(ch, "no sender configured")
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("channel sender panicked",
				zap.String("job_id", msg.JobID),
				zap.String("channel", string(ch)),
				zap.Any("panic", r),
			)
			out = domain.Failure(ch, fmt.Errorf("sender panic: %v", r))
		}
	}()

	out = s.Send(ctx, msg)
	out.Channel = ch
	return out
}

func (d *Dispatcher) abort(log *zap.Logger, err error, start time.Time) domain.DispatchResult {
	result := domain.DispatchResult{OverallFailed: true, Error: err.Error()}
	d.hooks.OnDispatch(result, time.Since(start))
	log.Warn("notification not dispatched", zap.Error(err))
	return result
}
