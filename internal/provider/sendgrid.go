package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendGridConfig holds the settings for a SendGridMailer.
type SendGridConfig struct {
	APIKey    string
	FromName  string
	FromEmail string
	// Host overrides the SendGrid API host; tests point it at httptest.
	Host    string
	Timeout time.Duration
}

// SendGridMailer delivers email through the SendGrid v3 mail API.
type SendGridMailer struct {
	key    string
	host   string
	from   *sgmail.Email
	client *rest.Client
}

func NewSendGridMailer(cfg SendGridConfig) *SendGridMailer {
	host := cfg.Host
	if host == "" {
		host = sendgridHost
	}
	return &SendGridMailer{
		key:  cfg.APIKey,
		host: host,
		from: sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
		client: &rest.Client{
			HTTPClient: &http.Client{Timeout: cfg.Timeout},
		},
	}
}

func (m *SendGridMailer) SendEmail(ctx context.Context, msg EmailMessage) error {
	req := sendgrid.GetRequest(m.key, sendgridEndpoint, m.host)
	req.Method = rest.Post
	req.Body = sgmail.GetRequestBody(m.prepare(msg))

	res, err := m.client.SendWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

func (m *SendGridMailer) prepare(msg EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.To))
	for k, v := range msg.Metadata {
		p.SetCustomArg(k, v)
	}

	mail := sgmail.NewV3Mail()
	mail.SetFrom(m.from)
	mail.AddPersonalizations(p)
	mail.AddContent(sgmail.NewContent("text/plain", msg.Body))
	if msg.Category != "" {
		mail.AddCategories(msg.Category)
	}
	return mail
}

var _ EmailTransport = (*SendGridMailer)(nil)
