package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/spec-kit/support-bot/internal/config"
	"github.com/spec-kit/support-bot/internal/domain"
	"github.com/spec-kit/support-bot/internal/observability"
)

// Generator turns a ticket transcript into the next assistant reply.
// Every failure is reported as domain.ErrGenerationFailed.
type Generator interface {
	Generate(ctx context.Context, transcript []domain.Turn) (string, error)
}

// Client talks to an OpenAI-compatible chat/completions endpoint.
//
// The whole transcript is sent on every call, so request size, cost and
// latency grow with the conversation. Calls are never retried.
type Client struct {
	BaseURL      string
	Model        string
	APIKey       string
	Referer      string
	Title        string
	MaxTokens    int
	Temperature  float64
	Timeout      time.Duration
	SystemPrompt string
	HTTPClient   *http.Client

	cb      *gobreaker.CircuitBreaker
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewClient builds a client from configuration.
func NewClient(cfg config.CompletionConfig, logger *zap.Logger, metrics *observability.Metrics) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		BaseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		Model:        cfg.Model,
		APIKey:       cfg.APIKey,
		Referer:      cfg.Referer,
		Title:        cfg.Title,
		MaxTokens:    cfg.MaxTokens,
		Temperature:  cfg.Temperature,
		Timeout:      cfg.Timeout(),
		SystemPrompt: DefaultSystemPrompt,
		HTTPClient:   &http.Client{},
		logger:       logger,
		metrics:      metrics,
	}

	c.cb = gobreaker.NewCircuitBreaker(breakerSettings(cfg, logger))
	return c
}

const (
	defaultBreakerMinCalls  = 5
	defaultBreakerFailRatio = 0.6
)

// breakerSettings trips once at least minCalls requests in the current
// interval failed at failRatio or worse. Calls abandoned by the caller do not
// count against the provider.
func breakerSettings(cfg config.CompletionConfig, logger *zap.Logger) gobreaker.Settings {
	minCalls := uint32(defaultBreakerMinCalls)
	if cfg.BreakerMinCalls > 0 {
		minCalls = uint32(cfg.BreakerMinCalls)
	}
	failRatio := cfg.BreakerFailRatio
	if failRatio <= 0 || failRatio > 1 {
		failRatio = defaultBreakerFailRatio
	}
	return gobreaker.Settings{
		Name:        "completion-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minCalls {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= failRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
}

// Generate implements Generator.
func (c *Client) Generate(ctx context.Context, transcript []domain.Turn) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.complete(ctx, c.buildRequest(transcript))
	})
	if err != nil {
		c.metrics.RecordCompletion("failed", time.Since(start))
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}
	c.metrics.RecordCompletion("ok", time.Since(start))
	return out.(string), nil
}

func (c *Client) buildRequest(transcript []domain.Turn) Request {
	messages := make([]Message, 0, len(transcript)+1)
	messages = append(messages, Message{Role: "system", Content: c.SystemPrompt})
	for _, turn := range transcript {
		messages = append(messages, Message{Role: string(turn.Speaker), Content: turn.Text})
	}
	return Request{
		Model:       c.Model,
		Messages:    messages,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
	}
}

func (c *Client) complete(ctx context.Context, req Request) (string, error) {
	if c.APIKey == "" {
		return "", errors.New("API key is required")
	}
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if c.Referer != "" {
		httpReq.Header.Set("HTTP-Referer", c.Referer)
	}
	if c.Title != "" {
		httpReq.Header.Set("X-Title", c.Title)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("completion API status %d: %s", resp.StatusCode, preview(body))
	}

	var apiResp Response
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return "", errors.New("response has no choices")
	}
	content := strings.TrimSpace(apiResp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("response has empty content")
	}
	if apiResp.Usage != nil {
		c.logger.Debug("completion usage",
			zap.String("model", apiResp.Model),
			zap.Int("prompt_tokens", apiResp.Usage.PromptTokens),
			zap.Int("completion_tokens", apiResp.Usage.CompletionTokens))
	}
	return content, nil
}

func preview(body []byte) string {
	const max = 200
	if len(body) <= max {
		return string(body)
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]) + "..."
}
