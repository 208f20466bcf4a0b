package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sectorwatch/internal/contracts"
)

func TestVerify_ReplacesWatchlist(t *testing.T) {
	provider := newFakeProvider()
	provider.addStock("KEEP", 3e9, 50, 40)
	provider.addStock("SMALL", 1e9, 50, 40)
	provider.addStock("SLOW", 3e9, 50, 40)
	provider.addStock("GONE", 3e9, 50, 40)
	provider.addStock("PRICY", 3e9, 150, 40)
	provider.errs["weekly:SLOW"] = &contracts.TransientFetchError{Operation: "TIME_SERIES_WEEKLY", Symbol: "SLOW", Attempts: 4, Err: errors.New("503")}
	provider.errs["overview:GONE"] = &contracts.ProviderError{Operation: "OVERVIEW", Symbol: "GONE", Message: "Invalid API call"}

	store := newFakeStore()
	for _, symbol := range []string{"KEEP", "SMALL", "SLOW", "GONE", "PRICY"} {
		store.watchlist = append(store.watchlist, contracts.WatchlistEntry{Symbol: symbol})
	}
	publisher := &fakePublisher{}

	report, err := newTestAgent(provider, store, testConfig(), WithPublisher(publisher)).Verify(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, report.Checked)
	assert.Equal(t, []string{"KEEP"}, report.Kept)
	assert.Equal(t, []string{"SLOW"}, report.Unverified)
	assert.Equal(t, map[string]string{
		"SMALL": "market cap too low: $1,000,000,000",
		"GONE":  "Invalid API call",
		"PRICY": "price too high: $150",
	}, report.Dropped)

	assert.Equal(t, []string{"KEEP", "SLOW"}, store.watchlistSymbols())
	assert.Equal(t, 1, store.replaceCalls)
	assert.Len(t, publisher.types(), 3)
	assert.ElementsMatch(t, []string{"KEEP", "SMALL", "SLOW", "GONE", "PRICY"}, provider.fresh)
}

func TestRunCycle_UsesCachedOverviews(t *testing.T) {
	provider := newFakeProvider()
	provider.addStock("AAA", 3e9, 50, 40)

	_, err := newTestAgent(provider, newFakeStore(), testConfig()).RunCycle(context.Background())
	require.NoError(t, err)
	assert.Contains(t, provider.calls, "overview:AAA")
	assert.Empty(t, provider.fresh)
}

func TestVerify_QuotaAbortsWithoutWriting(t *testing.T) {
	provider := newFakeProvider()
	provider.addStock("AAA", 1e9, 50, 40)
	provider.addStock("BBB", 3e9, 50, 40)
	provider.errs["quote:BBB"] = &contracts.QuotaExceededError{Operation: "GLOBAL_QUOTE", Symbol: "BBB", Message: "rate limit"}

	store := newFakeStore()
	store.watchlist = []contracts.WatchlistEntry{{Symbol: "AAA"}, {Symbol: "BBB"}}

	report, err := newTestAgent(provider, store, testConfig()).Verify(context.Background())
	require.Error(t, err)
	assert.True(t, contracts.IsQuotaExceeded(err))
	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, 0, store.replaceCalls)
	assert.Equal(t, []string{"AAA", "BBB"}, store.watchlistSymbols())
}

func TestVerify_EmptyWatchlist(t *testing.T) {
	store := newFakeStore()

	report, err := newTestAgent(newFakeProvider(), store, testConfig()).Verify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Checked)
	assert.Equal(t, 1, store.replaceCalls)
	assert.Empty(t, store.watchlistSymbols())
}

func TestVerify_StoreError(t *testing.T) {
	store := newFakeStore()
	store.watchlistErr = errors.New("connection refused")

	_, err := newTestAgent(newFakeProvider(), store, testConfig()).Verify(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load watchlist")
}
