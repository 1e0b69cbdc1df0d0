package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/brightline-health/intake-api/pkg/config"
)

// Client calls the language-model collaborator that turns free text into a
// structured preference. It speaks the JSON-mode chat-completion protocol.
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

// New constructs an oracle client.
func New(cfg config.OracleConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	baseDelay := cfg.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		timeout:    timeout,
		maxRetries: cfg.MaxRetries,
		baseDelay:  baseDelay,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// StatusError is a non-2xx completion response.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("oracle returned status %d: %s", e.StatusCode, e.Body)
}

// IsRetryable classifies an oracle call failure. Server-side failures and
// transient network errors are retryable; rate limiting, other client errors
// and elapsed deadlines are definitive rejections and must not be retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return false
	}

	return true
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// CompleteJSON sends a system+user prompt pair and returns the raw JSON
// object the model produced. Attempts are retried with exponential backoff
// only when IsRetryable says so.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) ([]byte, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}
	payload.ResponseFormat.Type = "json_object"

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	backoff := retry.WithMaxRetries(uint64(c.maxRetries), retry.NewExponential(c.baseDelay))

	var result []byte
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		content, attemptErr := c.attempt(ctx, body)
		if attemptErr != nil {
			if IsRetryable(attemptErr) {
				c.logger.Warn("oracle attempt failed, will retry", zap.Error(attemptErr))
				return retry.RetryableError(attemptErr)
			}
			return attemptErr
		}
		result = content
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) attempt(ctx context.Context, body []byte) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read completion response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 512)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("completion response contained no content")
	}
	return []byte(parsed.Choices[0].Message.Content), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
