package provider

import (
	"context"
	"sync"
)

// MockEmailTransport records sent messages. Err, when set, fails every send.
type MockEmailTransport struct {
	mu   sync.Mutex
	sent []EmailMessage

	Err error
}

func (m *MockEmailTransport) SendEmail(_ context.Context, msg EmailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *MockEmailTransport) Sent() []EmailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EmailMessage(nil), m.sent...)
}

// MockPushTransport records deliveries per token. TokenErrs fails individual tokens.
type MockPushTransport struct {
	mu        sync.Mutex
	delivered map[string][]PushPayload
	calls     int

	TokenErrs map[string]error
}

func NewMockPushTransport() *MockPushTransport {
	return &MockPushTransport{
		delivered: make(map[string][]PushPayload),
		TokenErrs: make(map[string]error),
	}
}

func (m *MockPushTransport) SendPush(_ context.Context, token string, p PushPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err := m.TokenErrs[token]; err != nil {
		return err
	}
	m.delivered[token] = append(m.delivered[token], p)
	return nil
}

func (m *MockPushTransport) Delivered(token string) []PushPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PushPayload(nil), m.delivered[token]...)
}

// Calls counts every SendPush invocation, failed or not.
func (m *MockPushTransport) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// SentSMS is one message captured by MockSMSTransport.
type SentSMS struct {
	Phone string
	Text  string
}

// MockSMSTransport records sent messages. Err, when set, fails every send.
type MockSMSTransport struct {
	mu   sync.Mutex
	sent []SentSMS

	Err error
}

func (m *MockSMSTransport) SendSMS(_ context.Context, phone, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, SentSMS{Phone: phone, Text: text})
	return nil
}

func (m *MockSMSTransport) Sent() []SentSMS {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentSMS(nil), m.sent...)
}

// MockLivePublisher records published events.
type MockLivePublisher struct {
	mu     sync.Mutex
	events []LiveEvent

	Err error
}

func (m *MockLivePublisher) Publish(_ context.Context, e LiveEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return m.Err
}

func (m *MockLivePublisher) Events() []LiveEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LiveEvent(nil), m.events...)
}

var (
	_ EmailTransport = (*MockEmailTransport)(nil)
	_ PushTransport  = (*MockPushTransport)(nil)
	_ SMSTransport   = (*MockSMSTransport)(nil)
	_ LivePublisher  = (*MockLivePublisher)(nil)
	_ LivePublisher  = NopLivePublisher{}
)
