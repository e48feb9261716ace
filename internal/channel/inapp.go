package channel

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/lms-notify/internal/domain"
	"github.com/notifyhub/lms-notify/internal/provider"
)

// DefaultOnlineWindow is how recently a user must have been seen to get a live event.
const DefaultOnlineWindow = 5 * time.Minute

// InAppSender stores the inbox record and, for online users, publishes a live event.
type InAppSender struct {
	base
	store  InAppStore
	live   provider.LivePublisher
	window time.Duration
}

func NewInAppSender(store InAppStore, live provider.LivePublisher, onlineWindow time.Duration, opts Options) *InAppSender {
	if live == nil {
		live = provider.NopLivePublisher{}
	}
	if onlineWindow <= 0 {
		onlineWindow = DefaultOnlineWindow
	}
	return &InAppSender{
		base:   newBase(domain.ChannelInApp, opts),
		store:  store,
		live:   live,
		window: onlineWindow,
	}
}

func (s *InAppSender) Send(ctx context.Context, msg Message) domain.ChannelOutcome {
	title, body := s.render(ctx, msg, msg.Title, msg.Body)

	record := &domain.InAppNotification{
		UserID:    msg.Recipient.ID,
		Title:     title,
		Body:      body,
		Category:  msg.Category,
		Priority:  msg.Priority,
		Payload:   msg.Payload,
		CreatedAt: s.clock.Now(),
	}

	callCtx, cancel := s.withTimeout(ctx)
	id, err := s.store.Create(callCtx, record)
	cancel()
	if err != nil {
		err = fmt.Errorf("store in-app notification: %w", err)
		s.logger.Warn("in-app delivery failed",
			zap.String("job_id", msg.JobID),
			zap.String("user_id", msg.Recipient.ID),
			zap.Error(err),
		)
		s.record(ctx, msg, msg.Recipient.ID, err)
		return domain.Failure(s.ch, err)
	}
	s.record(ctx, msg, msg.Recipient.ID, nil)

	if msg.Recipient.IsOnline(s.clock.Now(), s.window) {
		s.publish(ctx, msg, id, title, body)
	}
	return domain.Success(s.ch)
}

// publish is best effort; a failed live event never fails the channel.
func (s *InAppSender) publish(ctx context.Context, msg Message, id, title, body string) {
	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.live.Publish(callCtx, provider.LiveEvent{
		UserID:         msg.Recipient.ID,
		NotificationID: id,
		Title:          title,
		Message:        body,
		Type:           string(msg.Category),
		Priority:       string(msg.Priority),
		Data:           msg.Payload,
	})
	if err != nil {
		s.logger.Debug("live event not published",
			zap.String("user_id", msg.Recipient.ID),
			zap.Error(err),
		)
	}
}
