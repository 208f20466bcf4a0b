package alphavantage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/wonny/sectorwatch/internal/contracts"
	"github.com/wonny/sectorwatch/pkg/config"
	"github.com/wonny/sectorwatch/pkg/httputil"
	"github.com/wonny/sectorwatch/pkg/logger"
	"github.com/wonny/sectorwatch/pkg/redis"
)

// Provider query functions
const (
	FunctionListing  = "LISTING_STATUS"
	FunctionOverview = "OVERVIEW"
	FunctionQuote    = "GLOBAL_QUOTE"
	FunctionWeekly   = "TIME_SERIES_WEEKLY"
)

// Client handles communication with Alpha Vantage
// ⭐ SSOT: Alpha Vantage API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	apiKey     string

	cache    *redis.Cache
	cacheTTL time.Duration
}

var _ contracts.Provider = (*Client)(nil)

// NewClient creates a new Alpha Vantage client.
// httpClient must already carry the shared limiter.
func NewClient(httpClient *httputil.Client, cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithModule("alphavantage"),
		baseURL:    cfg.AlphaVantage.BaseURL,
		apiKey:     cfg.AlphaVantage.APIKey,
		cacheTTL:   cfg.AlphaVantage.OverviewCacheTTL,
	}
}

// WithCache enables caching of overviews and the listing
func (c *Client) WithCache(cache *redis.Cache) *Client {
	c.cache = cache
	if c.cacheTTL <= 0 {
		c.cacheTTL = redis.TTLDaily
	}
	return c
}

// query performs one provider call and returns the raw body.
// symbol is omitted for the listing.
func (c *Client) query(ctx context.Context, function, symbol string) ([]byte, error) {
	params := url.Values{}
	params.Set("function", function)
	params.Set("apikey", c.apiKey)
	if symbol != "" {
		params.Set("symbol", symbol)
	}

	fullURL := fmt.Sprintf("%s?%s", c.baseURL, params.Encode())

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		var re *httputil.RetryError
		if errors.As(err, &re) {
			return nil, &contracts.TransientFetchError{
				Operation: function,
				Symbol:    symbol,
				Attempts:  re.Attempts,
				Err:       err,
			}
		}
		return nil, fmt.Errorf("%s %s: HTTP request failed: %w", function, symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: failed to read response body: %w", function, symbol, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &contracts.ProviderError{
			Operation: function,
			Symbol:    symbol,
			Message:   fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"function": function,
		"symbol":   symbol,
		"bytes":    len(body),
	}).Debug("Provider call completed")

	return body, nil
}

// Ping issues one quote call so quota or key problems surface at startup
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.Quote(ctx, "IBM"); err != nil {
		return fmt.Errorf("provider access check failed: %w", err)
	}
	c.logger.Info("Provider access verified")
	return nil
}
