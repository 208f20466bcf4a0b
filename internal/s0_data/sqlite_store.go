package s0_data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wonny/sectorwatch/internal/contracts"
	"github.com/wonny/sectorwatch/pkg/database"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS watchlist (
		symbol   TEXT PRIMARY KEY,
		name     TEXT NOT NULL DEFAULT '',
		exchange TEXT NOT NULL DEFAULT '',
		added_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS stocks (
		symbol      TEXT PRIMARY KEY,
		name        TEXT NOT NULL DEFAULT '',
		sector      TEXT NOT NULL DEFAULT '',
		industry    TEXT NOT NULL DEFAULT '',
		market_cap  REAL NOT NULL DEFAULT 0,
		series      TEXT NOT NULL,
		indicators  TEXT NOT NULL,
		last_update TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stocks_sector ON stocks (sector, industry)`,
}

// SQLiteStore implements contracts.Store on an embedded SQLite file
// ⭐ SSOT: watchlist/stocks 영속화는 여기서만 (SQLite)
type SQLiteStore struct {
	db *sql.DB

	retries    int
	retryDelay time.Duration
}

var _ contracts.Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database file and runs migrations
func NewSQLiteStore(ctx context.Context, path string, retries int, retryDelay time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// 단일 writer: SQLITE_BUSY 방지
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	return &SQLiteStore{db: db, retries: retries, retryDelay: retryDelay}, nil
}

// Watchlist returns every watchlist entry ordered by insertion time
func (s *SQLiteStore) Watchlist(ctx context.Context) ([]contracts.WatchlistEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, name, exchange, added_at
		FROM watchlist
		ORDER BY added_at, symbol
	`)
	if err != nil {
		return nil, fmt.Errorf("query watchlist: %w", err)
	}
	defer rows.Close()

	var entries []contracts.WatchlistEntry
	for rows.Next() {
		var (
			e       contracts.WatchlistEntry
			addedAt string
		)
		if err := rows.Scan(&e.Symbol, &e.Name, &e.Exchange, &addedAt); err != nil {
			return nil, fmt.Errorf("scan watchlist: %w", err)
		}
		if e.AddedAt, err = parseStamp(addedAt); err != nil {
			return nil, fmt.Errorf("watchlist %s added_at: %w", e.Symbol, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const sqliteUpsertWatchlist = `
	INSERT INTO watchlist (symbol, name, exchange, added_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (symbol) DO UPDATE SET
		name = excluded.name,
		exchange = excluded.exchange,
		added_at = excluded.added_at
`

// UpsertWatchlistEntry inserts or overwrites one entry
func (s *SQLiteStore) UpsertWatchlistEntry(ctx context.Context, entry contracts.WatchlistEntry) error {
	_, err := s.db.ExecContext(ctx, sqliteUpsertWatchlist,
		entry.Symbol, entry.Name, entry.Exchange, formatStamp(entry.AddedAt))
	if err != nil {
		return fmt.Errorf("upsert watchlist %s: %w", entry.Symbol, err)
	}
	return nil
}

// ReplaceWatchlist swaps the whole watchlist in one transaction
func (s *SQLiteStore) ReplaceWatchlist(ctx context.Context, entries []contracts.WatchlistEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM watchlist`); err != nil {
		return fmt.Errorf("clear watchlist: %w", err)
	}
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, sqliteUpsertWatchlist,
			e.Symbol, e.Name, e.Exchange, formatStamp(e.AddedAt)); err != nil {
			return fmt.Errorf("insert watchlist %s: %w", e.Symbol, err)
		}
	}

	return tx.Commit()
}

// Stocks returns every stock record
func (s *SQLiteStore) Stocks(ctx context.Context) ([]contracts.StockRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, name, sector, industry, market_cap, series, indicators, last_update
		FROM stocks
		ORDER BY sector, industry, symbol
	`)
	if err != nil {
		return nil, fmt.Errorf("query stocks: %w", err)
	}
	defer rows.Close()

	var records []contracts.StockRecord
	for rows.Next() {
		var (
			r                          contracts.StockRecord
			seriesJSON, indicatorsJSON string
			lastUpdate                 string
		)
		if err := rows.Scan(&r.Symbol, &r.Name, &r.Sector, &r.Industry, &r.MarketCap,
			&seriesJSON, &indicatorsJSON, &lastUpdate); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		if err := decodeDocuments(&r, []byte(seriesJSON), []byte(indicatorsJSON)); err != nil {
			return nil, err
		}
		if r.LastUpdate, err = parseStamp(lastUpdate); err != nil {
			return nil, fmt.Errorf("stock %s last_update: %w", r.Symbol, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// StockSymbols returns the symbols that already have a record
func (s *SQLiteStore) StockSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol FROM stocks ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("query stock symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("scan stock symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	return symbols, rows.Err()
}

// UpsertStock overwrites the record keyed by symbol
func (s *SQLiteStore) UpsertStock(ctx context.Context, record contracts.StockRecord) error {
	seriesJSON, indicatorsJSON, err := encodeDocuments(record)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO stocks (symbol, name, sector, industry, market_cap, series, indicators, last_update)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol) DO UPDATE SET
			name = excluded.name,
			sector = excluded.sector,
			industry = excluded.industry,
			market_cap = excluded.market_cap,
			series = excluded.series,
			indicators = excluded.indicators,
			last_update = excluded.last_update
	`,
		record.Symbol, record.Name, record.Sector, record.Industry, record.MarketCap,
		string(seriesJSON), string(indicatorsJSON), formatStamp(record.LastUpdate),
	)
	if err != nil {
		return fmt.Errorf("upsert stock %s: %w", record.Symbol, err)
	}
	return nil
}

// Ping checks the file is reachable using the reconnect policy
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return database.Retry(ctx, s.retries, s.retryDelay, s.db.PingContext)
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// stampLayout is fixed width so text ordering matches time ordering
const stampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatStamp(t time.Time) string {
	return t.UTC().Format(stampLayout)
}

func parseStamp(s string) (time.Time, error) {
	return time.Parse(stampLayout, s)
}
