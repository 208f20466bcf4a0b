package redis

import (
	"context"
	"testing"
	"time"

	"github.com/wonny/sectorwatch/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)

	if client.Enabled() {
		t.Error("Expected client to be disabled")
	}
	if client.Redis() != nil {
		t.Error("Expected no underlying client when disabled")
	}
	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test", AlphaVantageRateLimit(75))

	// When Redis is disabled, all requests should be allowed
	allowed, retryAfter, err := limiter.Allow(context.Background())
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Error("Expected request to be allowed when Redis disabled")
	}
	if retryAfter != 0 {
		t.Errorf("Expected no retry delay, got %v", retryAfter)
	}

	if err := limiter.Wait(context.Background()); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
}

func TestNewClient_Unreachable(t *testing.T) {
	_, err := New(&config.Config{Redis: config.RedisConfig{
		Enabled: true,
		Host:    "127.0.0.1",
		Port:    "1", // nothing listens here
	}})
	if err == nil {
		t.Fatal("New() expected error for unreachable server")
	}
}

func TestAlphaVantageRateLimit(t *testing.T) {
	cfg := AlphaVantageRateLimit(75)
	if cfg.Limit != 75 || cfg.Window != time.Minute || cfg.Key != "alphavantage" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")
	ctx := context.Background()

	var result string
	found, err := cache.Get(ctx, "key", &result)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Expected cache miss when Redis disabled")
	}
	if err := cache.Set(ctx, "key", "value", time.Minute); err != nil {
		t.Errorf("Set() error = %v", err)
	}
}

func TestCache_NilIsDisabled(t *testing.T) {
	var cache *Cache
	if cache.Enabled() {
		t.Error("nil cache must report disabled")
	}
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		fn       func() string
		expected string
	}{
		{
			name:     "OverviewKey",
			fn:       func() string { return OverviewKey("ibm") },
			expected: "overview:IBM",
		},
		{
			name:     "ListingKey",
			fn:       ListingKey,
			expected: "listing:active",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}
