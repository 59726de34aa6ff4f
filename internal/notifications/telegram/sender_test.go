package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bissquit/sellerdesk/internal/notifications"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "123456:test-token"

var testNotification = notifications.Notification{To: "-100200300", Body: "<b>New order #727</b>"}

// newTestSender points a sender at a fake Bot API answering with status and body.
func newTestSender(t *testing.T, status int, body string) (*Sender, *[]sendMessageRequest) {
	t.Helper()

	var received []sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot"+testToken+"/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req sendMessageRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		received = append(received, req)

		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	s, err := NewSender(Config{Enabled: true, BotToken: testToken, RateLimit: 1000})
	require.NoError(t, err)
	s.apiURL = srv.URL + "/bot%s/sendMessage"
	return s, &received
}

func TestSender_Send(t *testing.T) {
	s, received := newTestSender(t, http.StatusOK, `{"ok":true,"result":{"message_id":1}}`)

	require.NoError(t, s.Send(t.Context(), testNotification))

	require.Len(t, *received, 1)
	assert.Equal(t, sendMessageRequest{
		ChatID:                "-100200300",
		Text:                  "<b>New order #727</b>",
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	}, (*received)[0])
}

func TestSender_Send_Failures(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantRetryable bool
		wantCode      int
	}{
		{"bad request", 400, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`, false, 400},
		{"bot token revoked", 401, `{"ok":false,"error_code":401,"description":"Unauthorized"}`, false, 401},
		{"bot blocked", 403, `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`, false, 403},
		{"not found", 404, `{"ok":false,"error_code":404,"description":"Not Found"}`, false, 404},
		{"server error", 500, `{"ok":false,"error_code":500,"description":"Internal Server Error"}`, true, 500},
		{"gateway html", 502, `<html>Bad Gateway</html>`, true, 502},
		{"ok status without ok flag", 200, `{"ok":false,"error_code":500,"description":"oops"}`, true, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSender(t, tt.status, tt.body)

			err := s.Send(t.Context(), testNotification)
			require.Error(t, err)
			assert.Equal(t, tt.wantRetryable, IsRetryable(err))

			if tt.wantRetryable {
				var re *RetryableError
				require.ErrorAs(t, err, &re)
				assert.Equal(t, tt.wantCode, re.Code)
			} else {
				var pe *PermanentError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, tt.wantCode, pe.Code)
			}
		})
	}
}

func TestSender_Send_RateLimited(t *testing.T) {
	tests := []struct {
		name string
		body string
		want time.Duration
	}{
		{"with retry_after", `{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":7}}`, 7 * time.Second},
		{"without retry_after", `{"ok":false,"error_code":429}`, defaultRetryAfter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSender(t, http.StatusTooManyRequests, tt.body)

			err := s.Send(t.Context(), testNotification)
			require.Error(t, err)
			assert.True(t, IsRetryable(err))
			assert.Equal(t, tt.want, GetRetryAfter(err))
		})
	}
}

func TestSender_Send_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	s, err := NewSender(Config{Enabled: true, BotToken: testToken, RateLimit: 1000})
	require.NoError(t, err)
	s.apiURL = srv.URL + "/bot%s/sendMessage"

	err = s.Send(t.Context(), testNotification)
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}

func TestSender_Send_Disabled(t *testing.T) {
	s, err := NewSender(Config{})
	require.NoError(t, err)

	err = s.Send(t.Context(), testNotification)

	var pe *PermanentError
	require.ErrorAs(t, err, &pe)
	assert.False(t, pe.IsRetryable())
}

func TestSender_Send_ContextCancelled(t *testing.T) {
	s, received := newTestSender(t, http.StatusOK, `{"ok":true}`)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	require.Error(t, s.Send(ctx, testNotification))
	assert.Empty(t, *received)
}

func TestNewSender(t *testing.T) {
	t.Run("token required when enabled", func(t *testing.T) {
		_, err := NewSender(Config{Enabled: true})
		assert.ErrorContains(t, err, "bot token is required")
	})

	t.Run("defaults", func(t *testing.T) {
		s, err := NewSender(Config{Enabled: true, BotToken: testToken})
		require.NoError(t, err)
		assert.Equal(t, defaultRateLimit, float64(s.limiter.Limit()))
		assert.Equal(t, defaultTimeout, s.httpClient.Timeout)
		assert.Equal(t, defaultAPIURL, s.apiURL)
	})

	t.Run("custom limits", func(t *testing.T) {
		s, err := NewSender(Config{BotToken: testToken, RateLimit: 5, Timeout: time.Second})
		require.NoError(t, err)
		assert.Equal(t, 5.0, float64(s.limiter.Limit()))
		assert.Equal(t, time.Second, s.httpClient.Timeout)
	})
}

func TestErrorHelpers(t *testing.T) {
	rl := &RateLimitError{RetryAfter: 3 * time.Second}
	wrapped := fmt.Errorf("deliver: %w", rl)

	assert.True(t, IsRetryable(wrapped))
	assert.Equal(t, 3*time.Second, GetRetryAfter(wrapped))
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.False(t, IsRetryable(&PermanentError{Code: 400}))
	assert.Zero(t, GetRetryAfter(&RetryableError{Code: 500}))
}
