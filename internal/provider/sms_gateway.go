package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// smsRequest is the JSON body posted to the SMS gateway.
type smsRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// SMSGateway delivers text messages by POSTing JSON to an HTTP SMS gateway.
// The base URL is injected from config so tests can point to a local mock.
type SMSGateway struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewSMSGateway(baseURL, apiKey string, timeout time.Duration) *SMSGateway {
	return &SMSGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SendSMS posts the message and accepts any 2xx response.
func (g *SMSGateway) SendSMS(ctx context.Context, phone, text string) error {
	body, err := json.Marshal(smsRequest{To: phone, Message: text})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected sms gateway status: %d", resp.StatusCode)
	}
	return nil
}

// compile-time check that SMSGateway implements SMSTransport
var _ SMSTransport = (*SMSGateway)(nil)
