package s0_data

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/sectorwatch/internal/contracts"
	"github.com/wonny/sectorwatch/pkg/database"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS watchlist (
		symbol   TEXT PRIMARY KEY,
		name     TEXT NOT NULL DEFAULT '',
		exchange TEXT NOT NULL DEFAULT '',
		added_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stocks (
		symbol      TEXT PRIMARY KEY,
		name        TEXT NOT NULL DEFAULT '',
		sector      TEXT NOT NULL DEFAULT '',
		industry    TEXT NOT NULL DEFAULT '',
		market_cap  DOUBLE PRECISION NOT NULL DEFAULT 0,
		series      JSONB NOT NULL,
		indicators  JSONB NOT NULL,
		last_update TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_stocks_sector ON stocks (sector, industry);
`

// PostgresStore implements contracts.Store on Postgres
// ⭐ SSOT: watchlist/stocks 영속화는 여기서만 (Postgres)
type PostgresStore struct {
	db *database.DB
}

var _ contracts.Store = (*PostgresStore)(nil)

// NewPostgresStore creates the store and ensures the schema exists
func NewPostgresStore(ctx context.Context, db *database.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if _, err := db.Pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}

// Watchlist returns every watchlist entry ordered by insertion time
func (s *PostgresStore) Watchlist(ctx context.Context) ([]contracts.WatchlistEntry, error) {
	query := `
		SELECT symbol, name, exchange, added_at
		FROM watchlist
		ORDER BY added_at, symbol
	`

	rows, err := s.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query watchlist: %w", err)
	}
	defer rows.Close()

	var entries []contracts.WatchlistEntry
	for rows.Next() {
		var e contracts.WatchlistEntry
		if err := rows.Scan(&e.Symbol, &e.Name, &e.Exchange, &e.AddedAt); err != nil {
			return nil, fmt.Errorf("scan watchlist: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const upsertWatchlistSQL = `
	INSERT INTO watchlist (symbol, name, exchange, added_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (symbol) DO UPDATE SET
		name = EXCLUDED.name,
		exchange = EXCLUDED.exchange,
		added_at = EXCLUDED.added_at
`

// UpsertWatchlistEntry inserts or overwrites one entry
func (s *PostgresStore) UpsertWatchlistEntry(ctx context.Context, entry contracts.WatchlistEntry) error {
	_, err := s.db.Pool.Exec(ctx, upsertWatchlistSQL, entry.Symbol, entry.Name, entry.Exchange, entry.AddedAt)
	if err != nil {
		return fmt.Errorf("upsert watchlist %s: %w", entry.Symbol, err)
	}
	return nil
}

// ReplaceWatchlist swaps the whole watchlist in one transaction
func (s *PostgresStore) ReplaceWatchlist(ctx context.Context, entries []contracts.WatchlistEntry) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM watchlist`); err != nil {
		return fmt.Errorf("clear watchlist: %w", err)
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(upsertWatchlistSQL, e.Symbol, e.Name, e.Exchange, e.AddedAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert watchlist: %w", err)
	}

	return tx.Commit(ctx)
}

// Stocks returns every stock record
func (s *PostgresStore) Stocks(ctx context.Context) ([]contracts.StockRecord, error) {
	query := `
		SELECT symbol, name, sector, industry, market_cap, series, indicators, last_update
		FROM stocks
		ORDER BY sector, industry, symbol
	`

	rows, err := s.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query stocks: %w", err)
	}
	defer rows.Close()

	var records []contracts.StockRecord
	for rows.Next() {
		var (
			r              contracts.StockRecord
			seriesJSON     []byte
			indicatorsJSON []byte
		)
		if err := rows.Scan(&r.Symbol, &r.Name, &r.Sector, &r.Industry, &r.MarketCap,
			&seriesJSON, &indicatorsJSON, &r.LastUpdate); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		if err := decodeDocuments(&r, seriesJSON, indicatorsJSON); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// StockSymbols returns the symbols that already have a record
func (s *PostgresStore) StockSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.Pool.Query(ctx, `SELECT symbol FROM stocks ORDER BY symbol`)
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
func (s *PostgresStore) UpsertStock(ctx context.Context, record contracts.StockRecord) error {
	seriesJSON, indicatorsJSON, err := encodeDocuments(record)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO stocks (symbol, name, sector, industry, market_cap, series, indicators, last_update)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol) DO UPDATE SET
			name = EXCLUDED.name,
			sector = EXCLUDED.sector,
			industry = EXCLUDED.industry,
			market_cap = EXCLUDED.market_cap,
			series = EXCLUDED.series,
			indicators = EXCLUDED.indicators,
			last_update = EXCLUDED.last_update
	`

	_, err = s.db.Pool.Exec(ctx, query,
		record.Symbol, record.Name, record.Sector, record.Industry, record.MarketCap,
		seriesJSON, indicatorsJSON, record.LastUpdate,
	)
	if err != nil {
		return fmt.Errorf("upsert stock %s: %w", record.Symbol, err)
	}
	return nil
}

// Ping checks connectivity using the reconnect policy
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.EnsureConnected(ctx)
}

// Close releases the pool
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

// encodeDocuments marshals the JSON columns of a record
func encodeDocuments(record contracts.StockRecord) ([]byte, []byte, error) {
	series := record.Series
	if series.Bars == nil {
		series.Bars = []contracts.Bar{}
	}

	seriesJSON, err := json.Marshal(series)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal series %s: %w", record.Symbol, err)
	}
	indicatorsJSON, err := json.Marshal(record.Indicators)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal indicators %s: %w", record.Symbol, err)
	}
	return seriesJSON, indicatorsJSON, nil
}

func decodeDocuments(r *contracts.StockRecord, seriesJSON, indicatorsJSON []byte) error {
	if err := json.Unmarshal(seriesJSON, &r.Series); err != nil {
		return fmt.Errorf("unmarshal series %s: %w", r.Symbol, err)
	}
	if err := json.Unmarshal(indicatorsJSON, &r.Indicators); err != nil {
		return fmt.Errorf("unmarshal indicators %s: %w", r.Symbol, err)
	}
	return nil
}
