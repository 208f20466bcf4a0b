package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wonny/sectorwatch/pkg/config"
	"github.com/wonny/sectorwatch/pkg/logger"
	"github.com/wonny/sectorwatch/pkg/ratelimit"
)

// Client is an HTTP client wrapper with retry logic and logging
// ⭐ SSOT: 모든 외부 HTTP 요청은 이 클라이언트를 통해서만 수행
type Client struct {
	httpClient  *http.Client
	logger      *logger.Logger
	retryConfig RetryConfig
	limiter     ratelimit.Limiter
	sleep       func(ctx context.Context, d time.Duration) error
}

// RetryConfig holds retry configuration.
// Delay is fixed between attempts; the provider budget is per minute, not per burst.
type RetryConfig struct {
	MaxRetries int
	Delay      time.Duration
	Enabled    bool
}

// RetryError is returned when every attempt failed with a retryable condition
type RetryError struct {
	Attempts   int
	StatusCode int // 0 when the last attempt failed at the transport level
	Err        error
}

func (e *RetryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("request failed after %d attempts: status %d", e.Attempts, e.StatusCode)
	}
	return fmt.Sprintf("request failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// New creates a new HTTP client from config
// ⭐ SSOT: http.Client 인스턴스는 여기서만 생성
func New(cfg *config.Config, log *logger.Logger) *Client {
	timeout := cfg.AlphaVantage.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
		retryConfig: RetryConfig{
			MaxRetries: cfg.AlphaVantage.MaxRetries,
			Delay:      cfg.AlphaVantage.RetryDelay,
			Enabled:    true,
		},
		sleep: sleepCtx,
	}
}

// NewWithTimeout creates a client with custom timeout
func NewWithTimeout(cfg *config.Config, log *logger.Logger, timeout time.Duration) *Client {
	client := New(cfg, log)
	client.httpClient.Timeout = timeout
	return client
}

// WithRetry configures retry behavior
func (c *Client) WithRetry(maxRetries int, delay time.Duration) *Client {
	c.retryConfig.MaxRetries = maxRetries
	c.retryConfig.Delay = delay
	c.retryConfig.Enabled = true
	return c
}

// DisableRetry disables automatic retry
func (c *Client) DisableRetry() *Client {
	c.retryConfig.Enabled = false
	return c
}

// WithLimiter sets the limiter consulted before every attempt, retries included
func (c *Client) WithLimiter(limiter ratelimit.Limiter) *Client {
	c.limiter = limiter
	return c
}

// Get performs a GET request.
// The caller owns the response body of a successful call.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}

	return c.do(req)
}

// do executes the request with retry logic and logging
func (c *Client) do(req *http.Request) (*http.Response, error) {
	startTime := time.Now()
	// query string carries the api key; log the path only
	path := req.URL.Path

	attempts := 1
	if c.retryConfig.Enabled && c.retryConfig.MaxRetries > 0 {
		attempts += c.retryConfig.MaxRetries
	}

	var lastErr error
	lastStatus := 0

	for attempt := 1; attempt <= attempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(req.Context()); err != nil {
				return nil, fmt.Errorf("rate limit wait failed: %w", err)
			}
		}

		resp, err := c.httpClient.Do(req)
		switch {
		case err != nil:
			// 컨텍스트 취소는 재시도하지 않음
			if ctxErr := req.Context().Err(); ctxErr != nil {
				return nil, ctxErr
			}
			lastErr = err
			lastStatus = 0
		case IsRetryableError(resp.StatusCode):
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("retryable status %d", resp.StatusCode)
			lastStatus = resp.StatusCode
		default:
			c.logger.WithFields(map[string]interface{}{
				"path":        path,
				"status_code": resp.StatusCode,
				"attempt":     attempt,
				"duration":    time.Since(startTime),
			}).Debug("HTTP request completed")
			return resp, nil
		}

		if attempt == attempts {
			break
		}

		c.logger.WithFields(map[string]interface{}{
			"attempt":     attempt,
			"delay":       c.retryConfig.Delay,
			"path":        path,
			"status_code": lastStatus,
			"error":       lastErr.Error(),
		}).Warn("Retrying HTTP request")

		if err := c.sleep(req.Context(), c.retryConfig.Delay); err != nil {
			return nil, err
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"path":     path,
		"attempts": attempts,
		"duration": time.Since(startTime),
		"error":    lastErr.Error(),
	}).Error("HTTP request failed")

	return nil, &RetryError{Attempts: attempts, StatusCode: lastStatus, Err: lastErr}
}

// IsRetryableError checks if a status code should be retried
func IsRetryableError(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsRetryError reports whether err came from exhausted retries
func IsRetryError(err error) bool {
	var re *RetryError
	return errors.As(err, &re)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
