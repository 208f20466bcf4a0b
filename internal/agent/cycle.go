package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/sectorwatch/internal/contracts"
	"github.com/wonny/sectorwatch/internal/s1_universe"
)

// State is one step of the ingestion cycle
type State string

const (
	StateRefresh         State = "refresh"
	StateCheckTarget     State = "check_target"
	StateFetchCandidates State = "fetch_candidates"
	StateFilterExisting  State = "filter_existing"
	StateEvaluate        State = "evaluate"
	StateUpsert          State = "upsert"
	StateIdle            State = "idle"
)

// CycleReport summarizes one cycle
type CycleReport struct {
	CycleID    string    `json:"cycle_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	States     []State   `json:"states"` // visited, in order

	Tracked       int `json:"tracked"`
	Refreshed     int `json:"refreshed"`
	RefreshFailed int `json:"refresh_failed"`

	Need        int                      `json:"need"`
	Candidates  int                      `json:"candidates"` // pool after filtering
	Evaluated   int                      `json:"evaluated"`
	Accepted    []string                 `json:"accepted"`
	Rejected    map[s1_universe.Rule]int `json:"rejected"`
	FetchErrors int                      `json:"fetch_errors"`

	QuotaExhausted bool   `json:"quota_exhausted"`
	Error          string `json:"error,omitempty"`
}

// Duration returns the wall time of the cycle
func (r *CycleReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// cycle is the working state carried between steps
type cycle struct {
	report    *CycleReport
	watchlist []contracts.WatchlistEntry
	pool      []contracts.Candidate
	staged    []staged
}

type staged struct {
	record contracts.StockRecord
	entry  contracts.WatchlistEntry
}

// RunCycle runs one pass of the state machine.
// Returns an error only for cycle-level failures (store or listing unreachable);
// per-symbol failures are counted in the report.
// ⭐ SSOT: Refresh → CheckTarget → FetchCandidates → FilterExisting → Evaluate → Upsert → Idle
func (a *Agent) RunCycle(ctx context.Context) (*CycleReport, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c := &cycle{
		report: &CycleReport{
			CycleID:   a.newID(),
			StartedAt: a.now(),
			Accepted:  []string{},
			Rejected:  make(map[s1_universe.Rule]int),
		},
	}
	log := a.logger.WithCycle(c.report.CycleID)
	log.Info("cycle started")

	state := StateRefresh
	for state != StateIdle {
		c.report.States = append(c.report.States, state)

		next, err := a.step(ctx, c, state)
		if err != nil {
			c.report.FinishedAt = a.now()
			c.report.Error = err.Error()
			a.setLastReport(c.report)
			log.WithError(err).WithField("state", string(state)).Error("cycle failed")
			return c.report, fmt.Errorf("cycle %s: %s: %w", c.report.CycleID, state, err)
		}
		state = next
	}
	c.report.States = append(c.report.States, StateIdle)
	c.report.FinishedAt = a.now()

	a.cyclesRun++
	a.setLastReport(c.report)

	log.WithFields(map[string]interface{}{
		"tracked":         c.report.Tracked,
		"refreshed":       c.report.Refreshed,
		"refresh_failed":  c.report.RefreshFailed,
		"need":            c.report.Need,
		"candidates":      c.report.Candidates,
		"evaluated":       c.report.Evaluated,
		"accepted":        len(c.report.Accepted),
		"fetch_errors":    c.report.FetchErrors,
		"quota_exhausted": c.report.QuotaExhausted,
		"duration":        c.report.Duration().String(),
	}).Info("cycle completed")

	a.publish(contracts.UpdateEvent{
		Type:    contracts.EventCycleCompleted,
		CycleID: c.report.CycleID,
		Data:    c.report,
	})

	return c.report, nil
}

func (a *Agent) step(ctx context.Context, c *cycle, state State) (State, error) {
	switch state {
	case StateRefresh:
		return a.refreshTracked(ctx, c)
	case StateCheckTarget:
		return a.checkTarget(c), nil
	case StateFetchCandidates:
		return a.fetchCandidates(ctx, c)
	case StateFilterExisting:
		return a.filterExisting(ctx, c)
	case StateEvaluate:
		return a.evaluateCandidates(ctx, c)
	case StateUpsert:
		return a.upsertStaged(ctx, c)
	default:
		return StateIdle, fmt.Errorf("unknown state %q", state)
	}
}

// checkTarget sizes this cycle's batch: 35 on the first cycle, top-up afterwards
func (a *Agent) checkTarget(c *cycle) State {
	tracked := len(c.watchlist)
	c.report.Tracked = tracked

	if tracked >= a.cfg.TargetSize {
		a.logger.WithFields(map[string]interface{}{
			"cycle_id": c.report.CycleID,
			"tracked":  tracked,
			"target":   a.cfg.TargetSize,
		}).Debug("watchlist at target")
		return StateIdle
	}

	batch := a.cfg.TopUpSize
	if a.cyclesRun == 0 {
		batch = a.cfg.InitialBatch
	}

	need := a.cfg.TargetSize - tracked
	if batch < need {
		need = batch
	}
	if need <= 0 {
		return StateIdle
	}
	c.report.Need = need
	return StateFetchCandidates
}

func (a *Agent) fetchCandidates(ctx context.Context, c *cycle) (State, error) {
	candidates, err := a.provider.ListCandidates(ctx)
	if err != nil {
		if contracts.IsQuotaExceeded(err) {
			a.quotaExhausted(c, StateFetchCandidates, err)
			return StateIdle, nil
		}
		return StateIdle, fmt.Errorf("list candidates: %w", err)
	}
	c.pool = candidates
	return StateFilterExisting, nil
}

// filterExisting removes symbols already tracked or stored, then shuffles
func (a *Agent) filterExisting(ctx context.Context, c *cycle) (State, error) {
	stored, err := a.store.StockSymbols(ctx)
	if err != nil {
		return StateIdle, fmt.Errorf("load stock symbols: %w", err)
	}

	known := make(map[string]struct{}, len(stored)+len(c.watchlist))
	for _, symbol := range stored {
		known[symbol] = struct{}{}
	}
	for _, entry := range c.watchlist {
		known[entry.Symbol] = struct{}{}
	}

	pool := make([]contracts.Candidate, 0, len(c.pool))
	for _, candidate := range c.pool {
		if _, ok := known[candidate.Symbol]; ok {
			continue
		}
		known[candidate.Symbol] = struct{}{} // 리스팅 중복 제거
		pool = append(pool, candidate)
	}

	if a.shuffle != nil {
		a.shuffle(pool)
	}
	c.pool = pool
	c.report.Candidates = len(pool)

	if len(pool) == 0 {
		a.logger.WithCycle(c.report.CycleID).Warn("no new candidates in listing")
		return StateIdle, nil
	}
	return StateEvaluate, nil
}

// evaluateCandidates stages accepted candidates until need is met or the pool runs out
func (a *Agent) evaluateCandidates(ctx context.Context, c *cycle) (State, error) {
	for _, candidate := range c.pool {
		if len(c.staged) >= c.report.Need {
			break
		}
		if err := ctx.Err(); err != nil {
			return StateIdle, err
		}

		log := a.logger.WithCycle(c.report.CycleID).WithSymbol(candidate.Symbol)
		c.report.Evaluated++

		result, err := a.evaluate(ctx, candidate.Symbol)
		if err != nil {
			if contracts.IsQuotaExceeded(err) {
				a.quotaExhausted(c, StateEvaluate, err)
				break
			}
			c.report.FetchErrors++
			log.WithError(err).Warn("candidate skipped")
			continue
		}
		a.logMalformed(log, result.malformed)

		if !result.decision.Accepted {
			c.report.Rejected[result.decision.Rule]++
			log.WithFields(map[string]interface{}{
				"rule":   string(result.decision.Rule),
				"reason": result.decision.Reason,
			}).Info("candidate rejected")
			continue
		}

		now := a.now()
		record := contracts.NewStockRecord(result.profile, result.series, a.indicators(result.series, now), now)
		c.staged = append(c.staged, staged{
			record: record,
			entry: contracts.WatchlistEntry{
				Symbol:   candidate.Symbol,
				Name:     candidate.Name,
				Exchange: candidate.Exchange,
				AddedAt:  now,
			},
		})
		log.WithFields(map[string]interface{}{
			"market_cap": result.profile.MarketCap,
			"price":      result.quote.Price,
			"bars":       result.series.Len(),
		}).Info("candidate accepted")
	}

	if len(c.staged) == 0 {
		return StateIdle, nil
	}
	return StateUpsert, nil
}

// upsertStaged persists staged records, then their watchlist entries
func (a *Agent) upsertStaged(ctx context.Context, c *cycle) (State, error) {
	for _, s := range c.staged {
		if err := a.store.UpsertStock(ctx, s.record); err != nil {
			return StateIdle, fmt.Errorf("upsert stock %s: %w", s.record.Symbol, err)
		}
		if err := a.store.UpsertWatchlistEntry(ctx, s.entry); err != nil {
			return StateIdle, fmt.Errorf("upsert watchlist %s: %w", s.entry.Symbol, err)
		}
		c.report.Accepted = append(c.report.Accepted, s.entry.Symbol)

		a.publish(contracts.UpdateEvent{
			Type:    contracts.EventWatchlistAdded,
			CycleID: c.report.CycleID,
			Symbol:  s.entry.Symbol,
			Data:    s.record.View(),
		})
	}
	return StateIdle, nil
}

func (a *Agent) quotaExhausted(c *cycle, state State, err error) {
	c.report.QuotaExhausted = true
	a.logger.WithError(err).WithFields(map[string]interface{}{
		"cycle_id": c.report.CycleID,
		"state":    string(state),
	}).Warn("provider quota exhausted, ending cycle early")
}
