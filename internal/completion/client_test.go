package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-bot/internal/config"
	"github.com/spec-kit/support-bot/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.CompletionConfig{
		BaseURL:          srv.URL + "/",
		Model:            "test-model",
		APIKey:           "secret",
		MaxTokens:        500,
		Temperature:      0.7,
		TimeoutSeconds:   5,
		Referer:          "https://example.test",
		Title:            "Garden Marketplace Bot",
		BreakerMinCalls:  3,
		BreakerFailRatio: 0.6,
	}, nil, nil)
}

func transcript() []domain.Turn {
	return []domain.Turn{
		{Speaker: domain.SpeakerUser, Text: "my order is missing"},
		{Speaker: domain.SpeakerAssistant, Text: "Sorry to hear that!"},
		{Speaker: domain.SpeakerUser, Text: "it was a dragon fly"},
	}
}

func TestGenerateSendsSystemPromptAndWholeTranscript(t *testing.T) {
	var got Request
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "https://example.test", r.Header.Get("HTTP-Referer"))
		assert.Equal(t, "Garden Marketplace Bot", r.Header.Get("X-Title"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"x","model":"test-model","choices":[{"index":0,"message":{"role":"assistant","content":"  Let me help!  "}}]}`))
	})

	reply, err := client.Generate(context.Background(), transcript())
	require.NoError(t, err)
	assert.Equal(t, "Let me help!", reply)

	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, 500, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 0.0001)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, Message{Role: "system", Content: DefaultSystemPrompt}, got.Messages[0])
	assert.Equal(t, Message{Role: "user", Content: "my order is missing"}, got.Messages[1])
	assert.Equal(t, Message{Role: "assistant", Content: "Sorry to hear that!"}, got.Messages[2])
	assert.Equal(t, Message{Role: "user", Content: "it was a dragon fly"}, got.Messages[3])
}

func TestGenerateFailuresCollapseToGenerationFailed(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"non-success status": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limited"}`))
		},
		"malformed body": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		},
		"no choices": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		},
		"empty content": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":""}}]}`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, handler)
			_, err := client.Generate(context.Background(), transcript())
			assert.ErrorIs(t, err, domain.ErrGenerationFailed)
		})
	}
}

func TestGenerateNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(config.CompletionConfig{BaseURL: url, APIKey: "k", Model: "m"}, nil, nil)
	_, err := client.Generate(context.Background(), transcript())
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
}

func TestGenerateTimesOut(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	client.Timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := client.Generate(context.Background(), transcript())
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGenerateMissingAPIKey(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})
	client.APIKey = ""

	_, err := client.Generate(context.Background(), transcript())
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestGenerateBreakerOpensAfterRepeatedFailures(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 5; i++ {
		_, err := client.Generate(context.Background(), transcript())
		assert.ErrorIs(t, err, domain.ErrGenerationFailed)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGenerateCanceledCallsDoNotTripBreaker(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"back again"}}]}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 5; i++ {
		_, err := client.Generate(ctx, transcript())
		assert.ErrorIs(t, err, domain.ErrGenerationFailed)
	}

	reply, err := client.Generate(context.Background(), transcript())
	require.NoError(t, err)
	assert.Equal(t, "back again", reply)
}

func TestBreakerSettingsFallBackOnInvalidThresholds(t *testing.T) {
	settings := breakerSettings(config.CompletionConfig{BreakerMinCalls: -1, BreakerFailRatio: 3}, zap.NewNop())

	assert.False(t, settings.ReadyToTrip(gobreaker.Counts{Requests: 4, TotalFailures: 4}))
	assert.True(t, settings.ReadyToTrip(gobreaker.Counts{Requests: 5, TotalFailures: 3}))
	assert.False(t, settings.ReadyToTrip(gobreaker.Counts{Requests: 5, TotalFailures: 2}))
	assert.True(t, settings.IsSuccessful(fmt.Errorf("send request: %w", context.Canceled)))
	assert.False(t, settings.IsSuccessful(context.DeadlineExceeded))
}

func TestPreviewKeepsRunesWhole(t *testing.T) {
	body := []byte(strings.Repeat("a", 199) + "é tail")
	out := preview(body)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, strings.Repeat("a", 199)+"...", out)
}
