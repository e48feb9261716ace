package channel

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/notifyhub/lms-notify/internal/domain"
	"github.com/notifyhub/lms-notify/internal/provider"
)

type EmailSender struct {
	base
	transport provider.EmailTransport
}

func NewEmailSender(transport provider.EmailTransport, opts Options) *EmailSender {
	return &EmailSender{
		base:      newBase(domain.ChannelEmail, opts),
		transport: transport,
	}
}

func (s *EmailSender) Send(ctx context.Context, msg Message) domain.ChannelOutcome {
	to := msg.Recipient.Email
	if to == "" {
		return domain.Skipped(s.ch, "recipient has no email address")
	}

	subject, body := s.render(ctx, msg, msg.Title, msg.Body)

	if err := s.wait(ctx); err != nil {
		return s.fail(ctx, msg, to, fmt.Errorf("rate limiter: %w", err))
	}

	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.transport.SendEmail(callCtx, provider.EmailMessage{
		To:       to,
		Subject:  subject,
		Body:     body,
		Category: string(msg.Category),
		Metadata: map[string]string{
			"job_id":   msg.JobID,
			"user_id":  msg.Recipient.ID,
			"priority": string(msg.Priority),
		},
	})
	if err != nil {
		return s.fail(ctx, msg, to, err)
	}

	s.record(ctx, msg, to, nil)
	return domain.Success(s.ch)
}

func (s *EmailSender) fail(ctx context.Context, msg Message, to string, err error) domain.ChannelOutcome {
	s.logger.Warn("email delivery failed",
		zap.String("job_id", msg.JobID),
		zap.String("user_id", msg.Recipient.ID),
		zap.Error(err),
	)
	s.record(ctx, msg, to, err)
	return domain.Failure(s.ch, err)
}
