package s0_data

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sectorwatch/internal/contracts"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sectorwatch.db")
	store, err := NewSQLiteStore(context.Background(), path, 1, time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRecord(symbol string, closePrice float64, at time.Time) contracts.StockRecord {
	ao := 1.2345
	return contracts.StockRecord{
		Symbol:    symbol,
		Name:      symbol + " Corp",
		Sector:    "TECHNOLOGY",
		Industry:  "SOFTWARE",
		MarketCap: 3.2e9,
		Series: contracts.Series{Symbol: symbol, Bars: []contracts.Bar{
			{Date: day("2024-01-05"), Open: 10, High: 11, Low: 9, Close: closePrice, Volume: 1000},
		}},
		Indicators: contracts.IndicatorSet{
			Oscillator: &ao,
			Status:     contracts.IndicatorOscillatorOnly,
			ComputedAt: at,
		},
		LastUpdate: at,
	}
}

func TestSQLiteStore_UpsertStockOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.UpsertStock(ctx, sampleRecord("AAA", 10.5, t0)))
	require.NoError(t, store.UpsertStock(ctx, sampleRecord("AAA", 12.25, t0.Add(time.Hour))))

	records, err := store.Stocks(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1, "upsert is keyed by symbol")

	got := records[0]
	assert.Equal(t, "AAA Corp", got.Name)
	assert.Equal(t, 12.25, got.Series.Bars[0].Close)
	assert.True(t, got.LastUpdate.Equal(t0.Add(time.Hour)))
	require.NotNil(t, got.Indicators.Oscillator)
	assert.Equal(t, 1.2345, *got.Indicators.Oscillator)
	assert.Nil(t, got.Indicators.Acceleration)
	assert.Equal(t, contracts.IndicatorOscillatorOnly, got.Indicators.Status)
}

func TestSQLiteStore_EmptySeriesRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := sampleRecord("BBB", 1, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	record.Series = contracts.Series{Symbol: "BBB"}
	record.Indicators = contracts.IndicatorSet{Status: contracts.IndicatorInsufficientHistory}

	require.NoError(t, store.UpsertStock(ctx, record))

	records, err := store.Stocks(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 0, records[0].Series.Len())
	assert.Nil(t, records[0].Indicators.Oscillator)
}

func TestSQLiteStore_StockSymbols(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for _, s := range []string{"CCC", "AAA", "BBB"} {
		require.NoError(t, store.UpsertStock(ctx, sampleRecord(s, 10, now)))
	}

	symbols, err := store.StockSymbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, symbols)
}

func TestSQLiteStore_Watchlist(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	entries := []contracts.WatchlistEntry{
		{Symbol: "BBB", Name: "Beta", Exchange: "NASDAQ", AddedAt: t0.Add(time.Minute)},
		{Symbol: "AAA", Name: "Alpha", Exchange: "NYSE", AddedAt: t0},
	}
	for _, e := range entries {
		require.NoError(t, store.UpsertWatchlistEntry(ctx, e))
	}
	// same key again: overwrite, no duplicate
	require.NoError(t, store.UpsertWatchlistEntry(ctx, contracts.WatchlistEntry{
		Symbol: "AAA", Name: "Alpha Holdings", Exchange: "NYSE", AddedAt: t0,
	}))

	got, err := store.Watchlist(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "AAA", got[0].Symbol, "ordered by added_at")
	assert.Equal(t, "Alpha Holdings", got[0].Name)
	assert.True(t, got[0].AddedAt.Equal(t0))
	assert.Equal(t, "BBB", got[1].Symbol)
}

func TestSQLiteStore_ReplaceWatchlist(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	for _, s := range []string{"AAA", "BBB", "CCC"} {
		require.NoError(t, store.UpsertWatchlistEntry(ctx, contracts.WatchlistEntry{Symbol: s, AddedAt: t0}))
	}

	require.NoError(t, store.ReplaceWatchlist(ctx, []contracts.WatchlistEntry{
		{Symbol: "BBB", AddedAt: t0},
		{Symbol: "DDD", AddedAt: t0.Add(time.Second)},
	}))

	got, err := store.Watchlist(ctx)
	require.NoError(t, err)
	var symbols []string
	for _, e := range got {
		symbols = append(symbols, e.Symbol)
	}
	assert.Equal(t, []string{"BBB", "DDD"}, symbols)

	require.NoError(t, store.ReplaceWatchlist(ctx, nil))
	got, err = store.Watchlist(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	store, err := NewSQLiteStore(ctx, path, 0, 0)
	require.NoError(t, err)
	require.NoError(t, store.UpsertStock(ctx, sampleRecord("AAA", 10, now)))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(ctx, path, 0, 0)
	require.NoError(t, err)
	defer reopened.Close()

	require.NoError(t, reopened.Ping(ctx))
	records, err := reopened.Stocks(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
