package worker

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/notifyhub/lms-notify/internal/domain"
	"github.com/notifyhub/lms-notify/internal/provider"
)

// Escalator emails the operator when a job has exhausted its attempts.
// Without an address it only logs. Its own failures are logged and dropped
// so a failing job always terminates.
type Escalator struct {
	mail    provider.EmailTransport
	to      string
	appName string
	logger  *zap.Logger
}

func NewEscalator(mail provider.EmailTransport, to, appName string, logger *zap.Logger) *Escalator {
	return &Escalator{mail: mail, to: to, appName: appName, logger: logger.Named("escalator")}
}

// Escalate reports whether an escalation email was handed to the transport.
func (e *Escalator) Escalate(ctx context.Context, job *domain.Job, lastErr string) (sent bool) {
	log := e.logger.With(zap.String("job_id", job.ID), zap.Int("attempts", job.Attempts))

	if e.to == "" {
		log.Warn("dispatch exhausted, no escalation address configured", zap.String("error", lastErr))
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("escalation panicked", zap.Any("panic", r))
			sent = false
		}
	}()

	err := e.mail.SendEmail(ctx, provider.EmailMessage{
		To:       e.to,
		Subject:  fmt.Sprintf("[%s] Notification dispatch failed", e.appName),
		Body:     EscalationBody(job, lastErr),
		Category: "escalation",
		Metadata: map[string]string{"job_id": job.ID},
	})
	if err != nil {
		log.Error("escalation email failed", zap.Error(err))
		return false
	}

	log.Info("escalation sent", zap.String("to", e.to))
	return true
}

// EscalationBody lists the identifying fields of the failed request.
func EscalationBody(job *domain.Job, lastErr string) string {
	var b strings.Builder
	b.WriteString("A notification could not be dispatched after all retries.\n\n")
	fmt.Fprintf(&b, "Job: %s\n", job.ID)
	fmt.Fprintf(&b, "Recipient: %s\n", job.Request.RecipientID)
	fmt.Fprintf(&b, "Title: %s\n", job.Request.Title)
	fmt.Fprintf(&b, "Category: %s\n", job.Request.Category)
	fmt.Fprintf(&b, "Channel: %s\n", job.Request.Channel)
	fmt.Fprintf(&b, "Attempts: %d\n", job.Attempts)
	fmt.Fprintf(&b, "Error: %s\n", lastErr)
	return b.String()
}
