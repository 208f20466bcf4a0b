package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wonny/sectorwatch/internal/contracts"
)

const (
	globalQuoteKey = "Global Quote"
	priceField     = "05. price"
)

// Quote fetches the latest traded price
func (c *Client) Quote(ctx context.Context, symbol string) (contracts.Quote, error) {
	body, err := c.query(ctx, FunctionQuote, symbol)
	if err != nil {
		return contracts.Quote{}, err
	}
	return parseQuote(symbol, body)
}

func parseQuote(symbol string, body []byte) (contracts.Quote, error) {
	top, err := decodeObject(FunctionQuote, symbol, body)
	if err != nil {
		return contracts.Quote{}, err
	}

	raw, ok := top[globalQuoteKey]
	if !ok {
		return contracts.Quote{}, missingKey(FunctionQuote, symbol, top, globalQuoteKey)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || len(fields) == 0 {
		return contracts.Quote{}, &contracts.ProviderError{
			Operation: FunctionQuote,
			Symbol:    symbol,
			Message:   "empty quote",
		}
	}

	priceRaw, ok := fields[priceField]
	if !ok {
		return contracts.Quote{}, missingKey(FunctionQuote, symbol, top, priceField)
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(rawString(priceRaw)), 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return contracts.Quote{}, &contracts.ProviderError{
			Operation: FunctionQuote,
			Symbol:    symbol,
			Message:   fmt.Sprintf("invalid price %q", rawString(priceRaw)),
		}
	}

	return contracts.Quote{Symbol: symbol, Price: price}, nil
}
