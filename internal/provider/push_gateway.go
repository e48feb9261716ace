package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrInvalidToken is returned when the gateway reports the device token as
// unregistered. Callers log it like any other per-token failure.
var ErrInvalidToken = errors.New("push token is not registered")

// pushRequest follows the legacy FCM HTTP shape: one target token per request.
type pushRequest struct {
	To           string            `json:"to"`
	Priority     string            `json:"priority"`
	Notification pushNotification  `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type pushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type pushResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Results []struct {
		MessageID string `json:"message_id"`
		Error     string `json:"error"`
	} `json:"results"`
}

// PushGateway delivers push notifications through an FCM-compatible HTTP endpoint.
// The server key is sent as "Authorization: key=<server key>".
type PushGateway struct {
	url        string
	serverKey  string
	httpClient *http.Client
}

func NewPushGateway(url, serverKey string, timeout time.Duration) *PushGateway {
	return &PushGateway{
		url:       url,
		serverKey: serverKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (g *PushGateway) SendPush(ctx context.Context, token string, p PushPayload) error {
	body, err := json.Marshal(pushRequest{
		To:           token,
		Priority:     p.Priority,
		Notification: pushNotification{Title: p.Title, Body: p.Body},
		Data:         p.Data,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+g.serverKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected push gateway status: %d", resp.StatusCode)
	}

	var pr pushResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if pr.Failure > 0 {
		reason := "unknown"
		if len(pr.Results) > 0 && pr.Results[0].Error != "" {
			reason = pr.Results[0].Error
		}
		if reason == "NotRegistered" || reason == "InvalidRegistration" {
			return fmt.Errorf("%w: %s", ErrInvalidToken, reason)
		}
		return fmt.Errorf("push rejected: %s", reason)
	}
	return nil
}

var _ PushTransport = (*PushGateway)(nil)
