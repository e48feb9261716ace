package provider

import (
	"context"
)

// EmailMessage is a fully rendered email ready for the transport.
type EmailMessage struct {
	To       string
	ToName   string
	Subject  string
	Body     string
	Category string
	Metadata map[string]string
}

// PushPayload is the notification handed to the push gateway for one device token.
type PushPayload struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Priority string            `json:"priority"`
	Data     map[string]string `json:"data,omitempty"`
}

// LiveEvent is broadcast to a connected user when an in-app record is created.
type LiveEvent struct {
	UserID         string         `json:"user_id"`
	NotificationID string         `json:"notification_id"`
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	Type           string         `json:"type"`
	Priority       string         `json:"priority"`
	Data           map[string]any `json:"data,omitempty"`
}

// EmailTransport delivers email. Mocking these interfaces in tests gives full
// control over provider behaviour without making real network calls.
type EmailTransport interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
}

// PushTransport delivers a push notification to a single device token.
type PushTransport interface {
	SendPush(ctx context.Context, token string, payload PushPayload) error
}

// SMSTransport delivers a text message to a phone number.
type SMSTransport interface {
	SendSMS(ctx context.Context, phone, text string) error
}

// LivePublisher pushes a real-time event to an online user.
type LivePublisher interface {
	Publish(ctx context.Context, event LiveEvent) error
}

// NopLivePublisher drops every event. Used when no Redis URL is configured.
type NopLivePublisher struct{}

func (NopLivePublisher) Publish(context.Context, LiveEvent) error { return nil }
