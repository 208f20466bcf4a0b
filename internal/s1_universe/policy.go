package s1_universe

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/wonny/sectorwatch/internal/contracts"
)

// Rule identifies which check decided a candidate
type Rule string

const (
	RuleNone           Rule = ""
	RuleMarketCap      Rule = "market_cap"
	RulePrice          Rule = "price"
	RuleHistory        Rule = "history"
	RuleClassification Rule = "classification"
)

// Decision is the outcome of one evaluation.
// A rejection is not an error.
type Decision struct {
	Accepted bool
	Rule     Rule   // first failing rule; RuleNone when accepted
	Reason   string // human readable, empty when accepted
}

// Policy decides whether a candidate belongs on the watchlist
// Does not log; callers report decisions themselves.
type Policy struct {
	config  Config
	unknown map[string]struct{}
}

// NewPolicy creates a policy from thresholds
func NewPolicy(config Config) *Policy {
	unknown := make(map[string]struct{}, len(config.UnknownLabels))
	for _, label := range config.UnknownLabels {
		unknown[strings.ToLower(strings.TrimSpace(label))] = struct{}{}
	}
	return &Policy{config: config, unknown: unknown}
}

// Config returns the thresholds in use
func (p *Policy) Config() Config {
	return p.config
}

// Evaluate checks the rules in order and reports only the first failure
// ⭐ SSOT: 종목 선정 규칙은 여기서만
func (p *Policy) Evaluate(profile contracts.Profile, quote contracts.Quote, series contracts.Series) Decision {
	// 1. 시가총액
	if profile.MarketCap < p.config.MinMarketCap {
		return reject(RuleMarketCap, fmt.Sprintf("market cap too low: $%s", humanize.Commaf(profile.MarketCap)))
	}

	// 2. 가격 상한
	if quote.Price >= p.config.MaxPrice {
		return reject(RulePrice, fmt.Sprintf("price too high: $%s", humanize.CommafWithDigits(quote.Price, 2)))
	}

	// 3. 히스토리
	if series.Len() == 0 {
		return reject(RuleHistory, "no historical data")
	}

	// 4. 섹터/산업 분류
	if p.isUnknown(profile.Sector) || p.isUnknown(profile.Industry) {
		return reject(RuleClassification, fmt.Sprintf("unknown sector/industry: %q/%q", profile.Sector, profile.Industry))
	}

	return Decision{Accepted: true}
}

func (p *Policy) isUnknown(label string) bool {
	_, ok := p.unknown[strings.ToLower(strings.TrimSpace(label))]
	return ok
}

func reject(rule Rule, reason string) Decision {
	return Decision{Accepted: false, Rule: rule, Reason: reason}
}
