package contracts

import "context"

// Provider fetches market data, rate limited and retried
// ⭐ SSOT: 외부 데이터 제공자 인터페이스
type Provider interface {
	ListCandidates(ctx context.Context) ([]Candidate, error)
	Overview(ctx context.Context, symbol string) (Profile, error)
	Quote(ctx context.Context, symbol string) (Quote, error)
	WeeklySeries(ctx context.Context, symbol string) (RawSeries, error)
}

// Store persists the watchlist and stock records.
// Upserts are keyed by symbol; no cross-document transactions.
// ⭐ SSOT: 저장소 인터페이스
type Store interface {
	Watchlist(ctx context.Context) ([]WatchlistEntry, error)
	UpsertWatchlistEntry(ctx context.Context, entry WatchlistEntry) error
	ReplaceWatchlist(ctx context.Context, entries []WatchlistEntry) error

	Stocks(ctx context.Context) ([]StockRecord, error)
	StockSymbols(ctx context.Context) ([]string, error)
	UpsertStock(ctx context.Context, record StockRecord) error

	Ping(ctx context.Context) error
	Close() error
}

type skipCacheKey struct{}

// SkipCache marks ctx so providers read past their caches (writes still refresh them)
func SkipCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipCacheKey{}, true)
}

// CacheSkipped reports whether ctx was marked by SkipCache
func CacheSkipped(ctx context.Context) bool {
	skip, _ := ctx.Value(skipCacheKey{}).(bool)
	return skip
}
