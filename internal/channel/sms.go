package channel

import (
	"context"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/notifyhub/lms-notify/internal/domain"
	"github.com/notifyhub/lms-notify/internal/provider"
)

// MaxSMSLength is the cap on a composed text message, in characters.
const MaxSMSLength = 160

const ellipsis = "..."

type SMSSender struct {
	base
	transport provider.SMSTransport
	signature string
}

func NewSMSSender(transport provider.SMSTransport, signature string, opts Options) *SMSSender {
	return &SMSSender{
		base:      newBase(domain.ChannelSMS, opts),
		transport: transport,
		signature: signature,
	}
}

func (s *SMSSender) Send(ctx context.Context, msg Message) domain.ChannelOutcome {
	phone := msg.Recipient.Phone
	if phone == "" {
		return domain.Skipped(s.ch, "recipient has no phone number")
	}

	// SMS templates use only the body pattern; the fallback joins title and body.
	_, content := s.render(ctx, msg, "", msg.Title+": "+msg.Body)
	text := ComposeSMS(content, s.signature, MaxSMSLength)

	if err := s.wait(ctx); err != nil {
		return s.fail(ctx, msg, phone, fmt.Errorf("rate limiter: %w", err))
	}

	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.transport.SendSMS(callCtx, phone, text); err != nil {
		return s.fail(ctx, msg, phone, err)
	}

	s.record(ctx, msg, phone, nil)
	return domain.Success(s.ch)
}

func (s *SMSSender) fail(ctx context.Context, msg Message, phone string, err error) domain.ChannelOutcome {
	s.logger.Warn("sms delivery failed",
		zap.String("job_id", msg.JobID),
		zap.String("user_id", msg.Recipient.ID),
		zap.Error(err),
	)
	s.record(ctx, msg, phone, err)
	return domain.Failure(s.ch, err)
}

// ComposeSMS appends the signature on its own line and caps the result at
// limit runes. Content is cut first, ending in "...", so the signature
// survives; a signature that does not fit on its own is cut as well.
func ComposeSMS(content, signature string, limit int) string {
	suffix := ""
	if signature != "" {
		suffix = "\n" + signature
	}

	if utf8.RuneCountInString(content)+utf8.RuneCountInString(suffix) <= limit {
		return content + suffix
	}

	room := limit - utf8.RuneCountInString(suffix)
	if room < utf8.RuneCountInString(ellipsis) {
		return truncateRunes(signature, limit)
	}
	return truncateRunes(content, room-utf8.RuneCountInString(ellipsis)) + ellipsis + suffix
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
