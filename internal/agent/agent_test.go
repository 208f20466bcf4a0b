package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sectorwatch/internal/contracts"
	"github.com/wonny/sectorwatch/internal/s1_universe"
	"github.com/wonny/sectorwatch/pkg/config"
	"github.com/wonny/sectorwatch/pkg/logger"
)

func TestRunCycle_FirstCycle(t *testing.T) {
	provider := newFakeProvider()
	provider.addStock("AAA", 3e9, 50, 40)
	provider.addStock("BBB", 1.5e9, 50, 40)
	provider.addStock("CCC", 5e9, 20, 10)
	store := newFakeStore()
	publisher := &fakePublisher{}

	a := newTestAgent(provider, store, testConfig(), WithPublisher(publisher))
	report, err := a.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []State{
		StateRefresh, StateCheckTarget, StateFetchCandidates,
		StateFilterExisting, StateEvaluate, StateUpsert, StateIdle,
	}, report.States)
	assert.Equal(t, "cycle-test", report.CycleID)
	assert.Equal(t, 35, report.Need)
	assert.Equal(t, 3, report.Candidates)
	assert.Equal(t, 3, report.Evaluated)
	assert.Equal(t, []string{"AAA", "CCC"}, report.Accepted)
	assert.Equal(t, 1, report.Rejected[s1_universe.RuleMarketCap])
	assert.Empty(t, report.Error)

	assert.Equal(t, []string{"AAA", "CCC"}, store.watchlistSymbols())
	require.Contains(t, store.stocks, "AAA")
	assert.NotContains(t, store.stocks, "BBB")

	aaa := store.stocks["AAA"]
	assert.Equal(t, 40, aaa.Series.Len())
	assert.Equal(t, contracts.IndicatorComplete, aaa.Indicators.Status)
	assert.Equal(t, testNow, aaa.LastUpdate)

	ccc := store.stocks["CCC"]
	assert.Equal(t, contracts.IndicatorInsufficientHistory, ccc.Indicators.Status)
	assert.Nil(t, ccc.Indicators.Oscillator)

	assert.Equal(t, []contracts.EventType{
		contracts.EventWatchlistAdded, contracts.EventWatchlistAdded, contracts.EventCycleCompleted,
	}, publisher.types())
	assert.Same(t, report, a.LastReport())
}

func TestRunCycle_SeriesSortedAscending(t *testing.T) {
	provider := newFakeProvider()
	provider.addStock("AAA", 3e9, 50, 5)
	store := newFakeStore()

	_, err := newTestAgent(provider, store, testConfig()).RunCycle(context.Background())
	require.NoError(t, err)

	bars := store.stocks["AAA"].Series.Bars
	require.Len(t, bars, 5)
	for i := 1; i < len(bars); i++ {
		assert.True(t, bars[i-1].Date.Before(bars[i].Date))
	}
}

func TestRunCycle_TransientFailureSkipsCandidate(t *testing.T) {
	provider := newFakeProvider()
	provider.addStock("AAA", 3e9, 50, 40)
	provider.addStock("DDD", 3e9, 50, 40)
	provider.addStock("EEE", 3e9, 50, 40)
	provider.errs["quote:DDD"] = &contracts.TransientFetchError{Operation: "GLOBAL_QUOTE", Symbol: "DDD", Attempts: 4, Err: errors.New("timeout")}
	store := newFakeStore()

	report, err := newTestAgent(provider, store, testConfig()).RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.FetchErrors)
	assert.Equal(t, []string{"AAA", "EEE"}, report.Accepted)
	assert.NotContains(t, provider.calls, "weekly:DDD")
}

func TestRunCycle_QuotaStopsEvaluationButKeepsStaged(t *testing.T) {
	provider := newFakeProvider()
	provider.addStock("AAA", 3e9, 50, 40)
	provider.addStock("QQQ", 3e9, 50, 40)
	provider.addStock("CCC", 3e9, 50, 40)
	provider.errs["quote:QQQ"] = &contracts.QuotaExceededError{Operation: "GLOBAL_QUOTE", Symbol: "QQQ", Message: "rate limit"}
	store := newFakeStore()

	report, err := newTestAgent(provider, store, testConfig()).RunCycle(context.Background())
	require.NoError(t, err)

	assert.True(t, report.QuotaExhausted)
	assert.Equal(t, 2, report.Evaluated)
	assert.Equal(t, []string{"AAA"}, report.Accepted)
	assert.Equal(t, []string{"AAA"}, store.watchlistSymbols())
	assert.NotContains(t, provider.calls, "overview:CCC")
	assert.Contains(t, report.States, StateUpsert)
}

func TestRunCycle_BatchSizing(t *testing.T) {
	provider := newFakeProvider()
	for _, symbol := range []string{"A1", "A2", "A3", "A4", "A5", "A6"} {
		provider.addStock(symbol, 3e9, 50, 40)
	}
	store := newFakeStore()
	a := newTestAgent(provider, store, Config{TargetSize: 5, InitialBatch: 3, TopUpSize: 1})

	tests := []struct {
		name      string
		need      int
		accepted  []string
		watchlist int
	}{
		{name: "first cycle uses initial batch", need: 3, accepted: []string{"A1", "A2", "A3"}, watchlist: 3},
		{name: "second cycle tops up", need: 1, accepted: []string{"A4"}, watchlist: 4},
		{name: "third cycle capped by target", need: 1, accepted: []string{"A5"}, watchlist: 5},
		{name: "at target", need: 0, accepted: []string{}, watchlist: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := a.RunCycle(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.need, report.Need)
			assert.Equal(t, tt.accepted, report.Accepted)
			assert.Len(t, store.watchlistSymbols(), tt.watchlist)
		})
	}
}

func TestRunCycle_NeedCappedByRemainingTarget(t *testing.T) {
	provider := newFakeProvider()
	provider.addStock("NEW", 3e9, 50, 40)
	provider.addStock("NEW2", 3e9, 50, 40)
	store := newFakeStore()
	for _, symbol := range []string{"T1", "T2", "T3", "T4"} {
		provider.addStock(symbol, 3e9, 50, 40)
		store.watchlist = append(store.watchlist, contracts.WatchlistEntry{Symbol: symbol})
	}

	report, err := newTestAgent(provider, store, Config{TargetSize: 5, InitialBatch: 35, TopUpSize: 10}).RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, report.Tracked)
	assert.Equal(t, 1, report.Need)
	assert.Equal(t, []string{"NEW"}, report.Accepted)
}

func TestRunCycle_AtTargetGoesIdle(t *testing.T) {
	provider := newFakeProvider()
	store := newFakeStore()
	for _, symbol := range []string{"T1", "T2"} {
		provider.addStock(symbol, 3e9, 50, 40)
		store.watchlist = append(store.watchlist, contracts.WatchlistEntry{Symbol: symbol})
	}

	report, err := newTestAgent(provider, store, Config{TargetSize: 2, InitialBatch: 2, TopUpSize: 1}).RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []State{StateRefresh, StateCheckTarget, StateIdle}, report.States)
	assert.Equal(t, 2, report.Refreshed)
	assert.Equal(t, 0, provider.listCalls)
}

func TestRunCycle_FilterExisting(t *testing.T) {
	provider := newFakeProvider()
	provider.addStock("STORED", 3e9, 50, 40)
	provider.addStock("TRACKED", 3e9, 50, 40)
	provider.addStock("AAA", 3e9, 50, 40)
	provider.listing = append(provider.listing, contracts.Candidate{Symbol: "AAA", Name: "dup"})

	store := newFakeStore()
	store.stocks["STORED"] = contracts.StockRecord{Symbol: "STORED"}
	store.watchlist = []contracts.WatchlistEntry{{Symbol: "TRACKED"}}

	report, err := newTestAgent(provider, store, testConfig()).RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Candidates)
	assert.Equal(t, []string{"AAA"}, report.Accepted)
	assert.NotContains(t, provider.calls, "quote:STORED")
}

func TestRunCycle_ShufflesPool(t *testing.T) {
	provider := newFakeProvider()
	provider.addStock("AAA", 3e9, 50, 40)
	provider.addStock("BBB", 3e9, 50, 40)
	store := newFakeStore()

	reverse := func(c []contracts.Candidate) {
		for i, j := 0, len(c)-1; i < j; i, j = i+1, j-1 {
			c[i], c[j] = c[j], c[i]
		}
	}
	report, err := newTestAgent(provider, store, Config{TargetSize: 1, InitialBatch: 1, TopUpSize: 1}, WithShuffle(reverse)).RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"BBB"}, report.Accepted)
}

func TestRunCycle_Refresh(t *testing.T) {
	provider := newFakeProvider()
	provider.addStock("AAA", 3e9, 50, 40)
	provider.addStock("BAD", 3e9, 50, 40)
	provider.errs["weekly:BAD"] = &contracts.ProviderError{Operation: "TIME_SERIES_WEEKLY", Symbol: "BAD", Message: "Invalid API call"}

	store := newFakeStore()
	store.watchlist = []contracts.WatchlistEntry{{Symbol: "AAA"}, {Symbol: "BAD"}}
	store.stocks["AAA"] = contracts.StockRecord{Symbol: "AAA", Name: "stale"}
	store.stocks["BAD"] = contracts.StockRecord{Symbol: "BAD", Name: "stale"}
	publisher := &fakePublisher{}

	report, err := newTestAgent(provider, store, Config{TargetSize: 2, InitialBatch: 2, TopUpSize: 1}, WithPublisher(publisher)).RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Refreshed)
	assert.Equal(t, 1, report.RefreshFailed)
	assert.Equal(t, "AAA Inc", store.stocks["AAA"].Name)
	assert.Equal(t, 40, store.stocks["AAA"].Series.Len())
	assert.Equal(t, "stale", store.stocks["BAD"].Name)
	assert.Equal(t, []contracts.EventType{contracts.EventStockUpdated, contracts.EventCycleCompleted}, publisher.types())
}

func TestRunCycle_QuotaDuringRefreshEndsCycle(t *testing.T) {
	provider := newFakeProvider()
	provider.addStock("AAA", 3e9, 50, 40)
	provider.addStock("NEW", 3e9, 50, 40)
	provider.errs["overview:AAA"] = &contracts.QuotaExceededError{Operation: "OVERVIEW", Symbol: "AAA", Message: "premium"}

	store := newFakeStore()
	store.watchlist = []contracts.WatchlistEntry{{Symbol: "AAA"}}

	report, err := newTestAgent(provider, store, testConfig()).RunCycle(context.Background())
	require.NoError(t, err)

	assert.True(t, report.QuotaExhausted)
	assert.Equal(t, []State{StateRefresh, StateIdle}, report.States)
	assert.Equal(t, 0, provider.listCalls)
}

func TestRunCycle_CycleLevelErrors(t *testing.T) {
	storeDown := errors.New("connection refused")

	tests := []struct {
		name   string
		setup  func(p *fakeProvider, s *fakeStore)
		failed State
	}{
		{
			name:   "watchlist unreadable",
			setup:  func(p *fakeProvider, s *fakeStore) { s.watchlistErr = storeDown },
			failed: StateRefresh,
		},
		{
			name:   "listing unreachable",
			setup:  func(p *fakeProvider, s *fakeStore) { p.listErr = &contracts.TransientFetchError{Operation: "LISTING_STATUS", Attempts: 4, Err: storeDown} },
			failed: StateFetchCandidates,
		},
		{
			name:   "stock symbols unreadable",
			setup:  func(p *fakeProvider, s *fakeStore) { s.symbolsErr = storeDown },
			failed: StateFilterExisting,
		},
		{
			name:   "upsert fails",
			setup:  func(p *fakeProvider, s *fakeStore) { s.upsertErr = storeDown },
			failed: StateUpsert,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newFakeProvider()
			provider.addStock("AAA", 3e9, 50, 40)
			store := newFakeStore()
			tt.setup(provider, store)

			a := newTestAgent(provider, store, Config{TargetSize: 5, InitialBatch: 3, TopUpSize: 1})
			report, err := a.RunCycle(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), string(tt.failed))
			assert.NotEmpty(t, report.Error)
			assert.Equal(t, tt.failed, report.States[len(report.States)-1])

			// 실패한 사이클은 첫 사이클로 치지 않음
			assert.Equal(t, 0, a.cyclesRun)
		})
	}
}

func TestRunCycle_CancelledContext(t *testing.T) {
	provider := newFakeProvider()
	provider.addStock("AAA", 3e9, 50, 40)
	store := newFakeStore()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestAgent(provider, store, testConfig()).RunCycle(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.watchlistSymbols())
}

func TestRunCycle_MalformedBarsDropped(t *testing.T) {
	provider := newFakeProvider()
	provider.addStock("AAA", 3e9, 50, 3)
	provider.series["AAA"][0].Fields["4. close"] = "oops"
	store := newFakeStore()

	report, err := newTestAgent(provider, store, testConfig()).RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"AAA"}, report.Accepted)
	assert.Equal(t, 2, store.stocks["AAA"].Series.Len())
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(&config.Config{Agent: config.AgentConfig{
		TargetSize:   35,
		InitialBatch: 35,
		TopUpSize:    10,
		RefreshPace:  12 * time.Second,
	}})
	assert.Equal(t, Config{TargetSize: 35, InitialBatch: 35, TopUpSize: 10, RefreshPace: 12 * time.Second}, cfg)

	a := New(newFakeProvider(), newFakeStore(), s1_universe.NewPolicy(s1_universe.DefaultConfig()), cfg, logger.Nop())
	assert.NotNil(t, a.pacer)
}
