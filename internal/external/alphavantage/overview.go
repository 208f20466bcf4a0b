package alphavantage

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/wonny/sectorwatch/internal/contracts"
	"github.com/wonny/sectorwatch/pkg/redis"
)

// overviewResponse is the subset of OVERVIEW the selection needs
type overviewResponse struct {
	Symbol               string `json:"Symbol"`
	Name                 string `json:"Name"`
	Sector               string `json:"Sector"`
	Industry             string `json:"Industry"`
	MarketCapitalization string `json:"MarketCapitalization"`
}

// Overview fetches the company profile.
// 기업 개요는 자주 바뀌지 않으므로 캐시 사용; contracts.SkipCache(ctx)면 항상 새로 조회
func (c *Client) Overview(ctx context.Context, symbol string) (contracts.Profile, error) {
	key := redis.OverviewKey(symbol)

	if !contracts.CacheSkipped(ctx) {
		var cached contracts.Profile
		if found, err := c.cache.Get(ctx, key, &cached); err == nil && found {
			return cached, nil
		}
	}

	body, err := c.query(ctx, FunctionOverview, symbol)
	if err != nil {
		return contracts.Profile{}, err
	}

	profile, err := parseOverview(symbol, body)
	if err != nil {
		return contracts.Profile{}, err
	}

	if err := c.cache.Set(ctx, key, profile, c.cacheTTL); err != nil {
		c.logger.WithSymbol(symbol).WithError(err).Warn("Failed to cache overview")
	}

	return profile, nil
}

func parseOverview(symbol string, body []byte) (contracts.Profile, error) {
	top, err := decodeObject(FunctionOverview, symbol, body)
	if err != nil {
		return contracts.Profile{}, err
	}

	// unknown symbols come back as {}
	if _, ok := top["Symbol"]; !ok {
		return contracts.Profile{}, missingKey(FunctionOverview, symbol, top, "Symbol")
	}

	var resp overviewResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return contracts.Profile{}, &contracts.ProviderError{
			Operation: FunctionOverview,
			Symbol:    symbol,
			Message:   "invalid overview: " + err.Error(),
		}
	}

	return contracts.Profile{
		Symbol:    symbol,
		Name:      strings.TrimSpace(resp.Name),
		Sector:    strings.TrimSpace(resp.Sector),
		Industry:  strings.TrimSpace(resp.Industry),
		MarketCap: parseAmount(resp.MarketCapitalization),
	}, nil
}

// parseAmount reads a provider number; "None", "-" and garbage are 0
func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
