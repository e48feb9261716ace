package channel

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/notifyhub/lms-notify/internal/domain"
	"github.com/notifyhub/lms-notify/internal/provider"
)

// PushSender sends to every registered device token of the recipient.
// The channel succeeds when at least one token succeeds; a failing token
// never stops the remaining ones.
type PushSender struct {
	base
	transport provider.PushTransport
}

func NewPushSender(transport provider.PushTransport, opts Options) *PushSender {
	return &PushSender{
		base:      newBase(domain.ChannelPush, opts),
		transport: transport,
	}
}

func (s *PushSender) Send(ctx context.Context, msg Message) domain.ChannelOutcome {
	tokens := msg.Recipient.PushTokens
	if len(tokens) == 0 {
		return domain.Skipped(s.ch, "recipient has no push tokens")
	}

	title, body := s.render(ctx, msg, msg.Title, msg.Body)
	payload := provider.PushPayload{
		Title:    title,
		Body:     body,
		Priority: string(msg.Priority),
		Data:     pushData(msg),
	}

	delivered := 0
	var errs []error
	for i, token := range tokens {
		if err := s.sendOne(ctx, token, payload); err != nil {
			s.logger.Warn("push token failed",
				zap.String("job_id", msg.JobID),
				zap.String("user_id", msg.Recipient.ID),
				zap.Int("token_index", i),
				zap.Error(err),
			)
			s.record(ctx, msg, token, err)
			errs = append(errs, fmt.Errorf("token %d: %w", i, err))
			continue
		}
		s.record(ctx, msg, token, nil)
		delivered++
	}

	if delivered > 0 {
		return domain.Success(s.ch)
	}
	return domain.Failure(s.ch, errors.Join(errs...))
}

func (s *PushSender) sendOne(ctx context.Context, token string, payload provider.PushPayload) error {
	if err := s.wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.transport.SendPush(callCtx, token, payload)
}

// pushData flattens the payload into the string map push gateways accept.
func pushData(msg Message) map[string]string {
	data := make(map[string]string, len(msg.Payload)+2)
	for k, v := range msg.Payload {
		data[k] = fmt.Sprint(v)
	}
	data["type"] = string(msg.Category)
	if msg.JobID != "" {
		data["job_id"] = msg.JobID
	}
	return data
}
