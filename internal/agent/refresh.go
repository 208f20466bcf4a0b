package agent

import (
	"context"
	"fmt"

	"github.com/wonny/sectorwatch/internal/contracts"
	"github.com/wonny/sectorwatch/internal/s0_data"
)

// refreshTracked re-fetches every watchlist symbol and overwrites its record.
// A quota error ends the cycle; other fetch errors skip the symbol.
func (a *Agent) refreshTracked(ctx context.Context, c *cycle) (State, error) {
	watchlist, err := a.store.Watchlist(ctx)
	if err != nil {
		return StateIdle, fmt.Errorf("load watchlist: %w", err)
	}
	c.watchlist = watchlist

	for _, entry := range watchlist {
		// 심볼 간 최소 간격 (AGENT_REFRESH_PACE)
		if a.pacer != nil {
			if err := a.pacer.Wait(ctx); err != nil {
				return StateIdle, err
			}
		}
		if err := ctx.Err(); err != nil {
			return StateIdle, err
		}

		log := a.logger.WithCycle(c.report.CycleID).WithSymbol(entry.Symbol)

		record, err := a.fetchRecord(ctx, entry.Symbol)
		if err != nil {
			if contracts.IsQuotaExceeded(err) {
				a.quotaExhausted(c, StateRefresh, err)
				c.report.Tracked = len(watchlist)
				return StateIdle, nil
			}
			c.report.RefreshFailed++
			log.WithError(err).Warn("refresh failed, keeping previous record")
			continue
		}

		if err := a.store.UpsertStock(ctx, record); err != nil {
			return StateIdle, fmt.Errorf("upsert stock %s: %w", entry.Symbol, err)
		}
		c.report.Refreshed++

		log.WithFields(map[string]interface{}{
			"bars":   record.Series.Len(),
			"status": string(record.Indicators.Status),
		}).Debug("stock refreshed")

		a.publish(contracts.UpdateEvent{
			Type:    contracts.EventStockUpdated,
			CycleID: c.report.CycleID,
			Symbol:  entry.Symbol,
			Data:    record.View(),
		})
	}

	return StateCheckTarget, nil
}

// fetchRecord builds a fresh record from overview and weekly series
func (a *Agent) fetchRecord(ctx context.Context, symbol string) (contracts.StockRecord, error) {
	profile, err := a.provider.Overview(ctx, symbol)
	if err != nil {
		return contracts.StockRecord{}, fmt.Errorf("overview: %w", err)
	}

	raw, err := a.provider.WeeklySeries(ctx, symbol)
	if err != nil {
		return contracts.StockRecord{}, fmt.Errorf("weekly series: %w", err)
	}

	series, malformed := s0_data.Normalize(symbol, raw)
	a.logMalformed(a.logger.WithSymbol(symbol), malformed)

	now := a.now()
	return contracts.NewStockRecord(profile, series, a.indicators(series, now), now), nil
}
