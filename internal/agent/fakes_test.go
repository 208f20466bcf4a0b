package agent

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wonny/sectorwatch/internal/contracts"
	"github.com/wonny/sectorwatch/internal/s0_data"
	"github.com/wonny/sectorwatch/internal/s1_universe"
	"github.com/wonny/sectorwatch/pkg/logger"
)

var testNow = time.Date(2024, 6, 7, 12, 0, 0, 0, time.UTC)

// fakeProvider serves canned responses; errs keys are "op:SYMBOL"
type fakeProvider struct {
	mu        sync.Mutex
	listing   []contracts.Candidate
	listErr   error
	profiles  map[string]contracts.Profile
	quotes    map[string]float64
	series    map[string]contracts.RawSeries
	errs      map[string]error
	listCalls int
	calls     []string
	fresh     []string // overviews requested with contracts.SkipCache
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		profiles: make(map[string]contracts.Profile),
		quotes:   make(map[string]float64),
		series:   make(map[string]contracts.RawSeries),
		errs:     make(map[string]error),
	}
}

// addStock registers a symbol that passes every rule when price < 100
func (p *fakeProvider) addStock(symbol string, marketCap, price float64, bars int) {
	p.listing = append(p.listing, contracts.Candidate{Symbol: symbol, Name: symbol + " Inc", Exchange: "NYSE"})
	p.profiles[symbol] = contracts.Profile{
		Symbol:    symbol,
		Name:      symbol + " Inc",
		Sector:    "TECHNOLOGY",
		Industry:  "SOFTWARE",
		MarketCap: marketCap,
	}
	p.quotes[symbol] = price
	p.series[symbol] = weeklyRaw(symbol, bars, price)
}

func (p *fakeProvider) record(call string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	return p.errs[call]
}

func (p *fakeProvider) ListCandidates(ctx context.Context) ([]contracts.Candidate, error) {
	p.mu.Lock()
	p.listCalls++
	p.mu.Unlock()
	if p.listErr != nil {
		return nil, p.listErr
	}
	out := make([]contracts.Candidate, len(p.listing))
	copy(out, p.listing)
	return out, nil
}

func (p *fakeProvider) Overview(ctx context.Context, symbol string) (contracts.Profile, error) {
	if contracts.CacheSkipped(ctx) {
		p.mu.Lock()
		p.fresh = append(p.fresh, symbol)
		p.mu.Unlock()
	}
	if err := p.record("overview:" + symbol); err != nil {
		return contracts.Profile{}, err
	}
	return p.profiles[symbol], nil
}

func (p *fakeProvider) Quote(ctx context.Context, symbol string) (contracts.Quote, error) {
	if err := p.record("quote:" + symbol); err != nil {
		return contracts.Quote{}, err
	}
	return contracts.Quote{Symbol: symbol, Price: p.quotes[symbol]}, nil
}

func (p *fakeProvider) WeeklySeries(ctx context.Context, symbol string) (contracts.RawSeries, error) {
	if err := p.record("weekly:" + symbol); err != nil {
		return nil, err
	}
	return p.series[symbol], nil
}

// fakeStore is an in-memory store with injectable failures
type fakeStore struct {
	mu        sync.Mutex
	watchlist []contracts.WatchlistEntry
	stocks    map[string]contracts.StockRecord

	watchlistErr error
	symbolsErr   error
	upsertErr    error
	replaceCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{stocks: make(map[string]contracts.StockRecord)}
}

func (s *fakeStore) Watchlist(ctx context.Context) ([]contracts.WatchlistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watchlistErr != nil {
		return nil, s.watchlistErr
	}
	out := make([]contracts.WatchlistEntry, len(s.watchlist))
	copy(out, s.watchlist)
	return out, nil
}

func (s *fakeStore) UpsertWatchlistEntry(ctx context.Context, entry contracts.WatchlistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.watchlist {
		if e.Symbol == entry.Symbol {
			s.watchlist[i] = entry
			return nil
		}
	}
	s.watchlist = append(s.watchlist, entry)
	return nil
}

func (s *fakeStore) ReplaceWatchlist(ctx context.Context, entries []contracts.WatchlistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceCalls++
	s.watchlist = append([]contracts.WatchlistEntry(nil), entries...)
	return nil
}

func (s *fakeStore) Stocks(ctx context.Context) ([]contracts.StockRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]contracts.StockRecord, 0, len(s.stocks))
	for _, r := range s.stocks {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (s *fakeStore) StockSymbols(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.symbolsErr != nil {
		return nil, s.symbolsErr
	}
	out := make([]string, 0, len(s.stocks))
	for symbol := range s.stocks {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out, nil
}

func (s *fakeStore) UpsertStock(ctx context.Context, record contracts.StockRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.stocks[record.Symbol] = record
	return nil
}

func (s *fakeStore) Ping(ctx context.Context) error { return nil }
func (s *fakeStore) Close() error                   { return nil }

func (s *fakeStore) watchlistSymbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.watchlist))
	for _, e := range s.watchlist {
		out = append(out, e.Symbol)
	}
	return out
}

type fakePublisher struct {
	mu     sync.Mutex
	events []contracts.UpdateEvent
}

func (p *fakePublisher) Publish(event contracts.UpdateEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *fakePublisher) types() []contracts.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]contracts.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// weeklyRaw builds n weekly bars in provider form, newest first like the provider sends them
func weeklyRaw(symbol string, n int, closePrice float64) contracts.RawSeries {
	series := contracts.Series{Symbol: symbol}
	start := time.Date(2023, 1, 6, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		series.Bars = append(series.Bars, contracts.Bar{
			Date:   start.AddDate(0, 0, 7*i),
			Open:   closePrice,
			High:   closePrice + 1,
			Low:    closePrice - 1,
			Close:  closePrice,
			Volume: int64(1000 + i),
		})
	}
	raw := s0_data.Denormalize(series)
	for i, j := 0, len(raw)-1; i < j; i, j = i+1, j-1 {
		raw[i], raw[j] = raw[j], raw[i]
	}
	return raw
}

func testConfig() Config {
	return Config{TargetSize: 35, InitialBatch: 35, TopUpSize: 10}
}

func newTestAgent(provider contracts.Provider, store contracts.Store, cfg Config, opts ...Option) *Agent {
	base := []Option{
		WithClock(func() time.Time { return testNow }),
		WithShuffle(nil),
		WithIDGenerator(func() string { return "cycle-test" }),
	}
	return New(provider, store, s1_universe.NewPolicy(s1_universe.DefaultConfig()), cfg, logger.Nop(), append(base, opts...)...)
}
