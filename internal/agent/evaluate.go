package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/sectorwatch/internal/contracts"
	"github.com/wonny/sectorwatch/internal/s0_data"
	"github.com/wonny/sectorwatch/internal/s1_universe"
	"github.com/wonny/sectorwatch/internal/s2_signals"
	"github.com/wonny/sectorwatch/pkg/logger"
)

// evaluation holds everything fetched for one symbol
type evaluation struct {
	profile   contracts.Profile
	quote     contracts.Quote
	series    contracts.Series
	malformed []*contracts.MalformedBarError
	decision  s1_universe.Decision
}

// evaluate fetches overview, quote and weekly series, then applies the policy.
// The first fetch error aborts the symbol.
func (a *Agent) evaluate(ctx context.Context, symbol string) (*evaluation, error) {
	profile, err := a.provider.Overview(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("overview: %w", err)
	}

	quote, err := a.provider.Quote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("quote: %w", err)
	}

	raw, err := a.provider.WeeklySeries(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("weekly series: %w", err)
	}
	series, malformed := s0_data.Normalize(symbol, raw)

	return &evaluation{
		profile:   profile,
		quote:     quote,
		series:    series,
		malformed: malformed,
		decision:  a.policy.Evaluate(profile, quote, series),
	}, nil
}

func (a *Agent) indicators(series contracts.Series, at time.Time) contracts.IndicatorSet {
	return s2_signals.Compute(series, at)
}

func (a *Agent) logMalformed(log *logger.Logger, malformed []*contracts.MalformedBarError) {
	if len(malformed) == 0 {
		return
	}
	log.WithFields(map[string]interface{}{
		"dropped": len(malformed),
		"first":   malformed[0].Error(),
	}).Warn("malformed bars dropped")
}
