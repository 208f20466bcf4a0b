package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/sectorwatch/internal/contracts"
)

// VerifyReport summarizes one verification pass
type VerifyReport struct {
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Checked    int               `json:"checked"`
	Kept       []string          `json:"kept"`
	Dropped    map[string]string `json:"dropped"` // symbol → reason
	Unverified []string          `json:"unverified"`
}

// Verify re-checks every watchlist entry against the policy and replaces
// the watchlist with the survivors. Stock records are left untouched.
//
// A transient fetch error keeps the entry (unverified); a provider error
// or a rejection drops it. A quota error aborts without writing.
// Profiles are fetched past the overview cache.
func (a *Agent) Verify(ctx context.Context) (*VerifyReport, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx = contracts.SkipCache(ctx)

	report := &VerifyReport{
		StartedAt:  a.now(),
		Kept:       []string{},
		Dropped:    make(map[string]string),
		Unverified: []string{},
	}

	watchlist, err := a.store.Watchlist(ctx)
	if err != nil {
		return report, fmt.Errorf("load watchlist: %w", err)
	}
	a.logger.WithField("entries", len(watchlist)).Info("verification started")

	kept := make([]contracts.WatchlistEntry, 0, len(watchlist))
	for _, entry := range watchlist {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++
		log := a.logger.WithSymbol(entry.Symbol)

		result, err := a.evaluate(ctx, entry.Symbol)
		if err != nil {
			var pe *contracts.ProviderError
			switch {
			case contracts.IsQuotaExceeded(err):
				log.WithError(err).Warn("verification aborted, watchlist unchanged")
				report.FinishedAt = a.now()
				return report, fmt.Errorf("verify aborted: %w", err)
			case errors.As(err, &pe):
				report.Dropped[entry.Symbol] = pe.Message
				log.WithError(err).Info("watchlist entry dropped")
			default:
				kept = append(kept, entry)
				report.Unverified = append(report.Unverified, entry.Symbol)
				log.WithError(err).Warn("could not verify, keeping entry")
			}
			continue
		}

		if !result.decision.Accepted {
			report.Dropped[entry.Symbol] = result.decision.Reason
			log.WithFields(map[string]interface{}{
				"rule":   string(result.decision.Rule),
				"reason": result.decision.Reason,
			}).Info("watchlist entry dropped")
			continue
		}

		kept = append(kept, entry)
		report.Kept = append(report.Kept, entry.Symbol)
	}

	if err := a.store.ReplaceWatchlist(ctx, kept); err != nil {
		return report, fmt.Errorf("replace watchlist: %w", err)
	}
	report.FinishedAt = a.now()

	for symbol, reason := range report.Dropped {
		a.publish(contracts.UpdateEvent{
			Type:   contracts.EventWatchlistPruned,
			Symbol: symbol,
			Data:   map[string]string{"reason": reason},
		})
	}

	a.logger.WithFields(map[string]interface{}{
		"checked":    report.Checked,
		"kept":       len(report.Kept),
		"dropped":    len(report.Dropped),
		"unverified": len(report.Unverified),
	}).Info("verification completed")

	return report, nil
}
