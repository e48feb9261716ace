package provider_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifyhub/lms-notify/internal/provider"
)

func TestSMSGateway_PostsJSONWithBearerKey(t *testing.T) {
	var (
		gotAuth string
		gotBody map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	gw := provider.NewSMSGateway(srv.URL, "secret", time.Second)
	err := gw.SendSMS(context.Background(), "+254700000001", "hello")
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "+254700000001", gotBody["to"])
	assert.Equal(t, "hello", gotBody["message"])
}

func TestSMSGateway_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	gw := provider.NewSMSGateway(srv.URL, "", time.Second)
	err := gw.SendSMS(context.Background(), "+1", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestPushGateway_Success(t *testing.T) {
	var req map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key=server-key", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&req)
		_, _ = w.Write([]byte(`{"success":1,"failure":0,"results":[{"message_id":"m1"}]}`))
	}))
	defer srv.Close()

	gw := provider.NewPushGateway(srv.URL, "server-key", time.Second)
	err := gw.SendPush(context.Background(), "tok-1", provider.PushPayload{
		Title:    "Grade posted",
		Body:     "Your essay was graded",
		Priority: "high",
	})
	require.NoError(t, err)

	assert.Equal(t, "tok-1", req["to"])
	assert.Equal(t, "high", req["priority"])
	notification, ok := req["notification"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Grade posted", notification["title"])
}

func TestPushGateway_UnregisteredToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":0,"failure":1,"results":[{"error":"NotRegistered"}]}`))
	}))
	defer srv.Close()

	gw := provider.NewPushGateway(srv.URL, "k", time.Second)
	err := gw.SendPush(context.Background(), "stale", provider.PushPayload{Title: "t", Body: "b"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, provider.ErrInvalidToken))
}

func TestPushGateway_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	gw := provider.NewPushGateway(srv.URL, "k", time.Second)
	err := gw.SendPush(context.Background(), "tok", provider.PushPayload{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, provider.ErrInvalidToken))
}

func TestSendGridMailer_SendsV3Mail(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		gotBody []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := provider.NewSendGridMailer(provider.SendGridConfig{
		APIKey:    "SG.test",
		FromName:  "Campus",
		FromEmail: "noreply@campus.test",
		Host:      srv.URL,
		Timeout:   time.Second,
	})
	err := m.SendEmail(context.Background(), provider.EmailMessage{
		To:       "ada@campus.test",
		ToName:   "Ada",
		Subject:  "Quiz due",
		Body:     "Your quiz closes tonight",
		Category: "warning",
	})
	require.NoError(t, err)

	assert.Equal(t, "/v3/mail/send", gotPath)
	assert.Equal(t, "Bearer SG.test", gotAuth)

	var payload struct {
		From struct {
			Email string `json:"email"`
		} `json:"from"`
		Personalizations []struct {
			To []struct {
				Email string `json:"email"`
			} `json:"to"`
			Subject string `json:"subject"`
		} `json:"personalizations"`
		Content []struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"content"`
		Categories []string `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, "noreply@campus.test", payload.From.Email)
	require.Len(t, payload.Personalizations, 1)
	assert.Equal(t, "ada@campus.test", payload.Personalizations[0].To[0].Email)
	assert.Equal(t, "Quiz due", payload.Personalizations[0].Subject)
	require.Len(t, payload.Content, 1)
	assert.Equal(t, "Your quiz closes tonight", payload.Content[0].Value)
	assert.Equal(t, []string{"warning"}, payload.Categories)
}

func TestSendGridMailer_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errors":[{"message":"forbidden"}]}`))
	}))
	defer srv.Close()

	m := provider.NewSendGridMailer(provider.SendGridConfig{Host: srv.URL, Timeout: time.Second})
	err := m.SendEmail(context.Background(), provider.EmailMessage{To: "a@b.c", Subject: "s", Body: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestMockPushTransport_TokenErrors(t *testing.T) {
	m := provider.NewMockPushTransport()
	m.TokenErrs["bad"] = errors.New("gone")

	require.NoError(t, m.SendPush(context.Background(), "good", provider.PushPayload{Title: "t"}))
	require.Error(t, m.SendPush(context.Background(), "bad", provider.PushPayload{Title: "t"}))

	assert.Equal(t, 2, m.Calls())
	assert.Len(t, m.Delivered("good"), 1)
	assert.Empty(t, m.Delivered("bad"))
}

func TestNewRedisLivePublisher_BadURL(t *testing.T) {
	_, err := provider.NewRedisLivePublisher(context.Background(), "not-a-redis-url", "notifications")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse redis URL")
}

func TestRedisLivePublisher_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	p := provider.NewRedisLivePublisherFromClient(client, "notifications")
	defer p.Close() //nolint:errcheck

	err := p.Publish(context.Background(), provider.LiveEvent{UserID: "42", Title: "Quiz graded"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish live event")
}
