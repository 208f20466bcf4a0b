package alphavantage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/wonny/sectorwatch/internal/contracts"
)

const weeklySeriesKey = "Weekly Time Series"

// WeeklySeries fetches the raw weekly bars in document order.
// Normalization happens in s0_data; labels are passed through untouched.
func (c *Client) WeeklySeries(ctx context.Context, symbol string) (contracts.RawSeries, error) {
	body, err := c.query(ctx, FunctionWeekly, symbol)
	if err != nil {
		return nil, err
	}

	raw, err := parseWeekly(symbol, body)
	if err != nil {
		return nil, err
	}

	c.logger.WithSymbol(symbol).WithField("bars", len(raw)).Debug("Fetched weekly series")
	return raw, nil
}

func parseWeekly(symbol string, body []byte) (contracts.RawSeries, error) {
	top, err := decodeObject(FunctionWeekly, symbol, body)
	if err != nil {
		return nil, err
	}

	if _, ok := top[weeklySeriesKey]; !ok {
		return nil, missingKey(FunctionWeekly, symbol, top, weeklySeriesKey)
	}

	raw, err := streamSeries(body)
	if err != nil {
		return nil, &contracts.ProviderError{
			Operation: FunctionWeekly,
			Symbol:    symbol,
			Message:   "invalid weekly series: " + err.Error(),
		}
	}
	return raw, nil
}

// streamSeries walks the body token by token.
// map 디코딩은 키 순서를 잃으므로 직접 순회함 (중복 날짜는 나중 것이 이김)
func streamSeries(body []byte) (contracts.RawSeries, error) {
	dec := json.NewDecoder(bytes.NewReader(body))

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var out contracts.RawSeries
	for dec.More() {
		key, err := stringToken(dec)
		if err != nil {
			return nil, err
		}

		if key != weeklySeriesKey {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, err
			}
			continue
		}

		if err := expectDelim(dec, '{'); err != nil {
			return nil, err
		}
		for dec.More() {
			date, err := stringToken(dec)
			if err != nil {
				return nil, err
			}

			var fields map[string]json.RawMessage
			if err := dec.Decode(&fields); err != nil {
				return nil, fmt.Errorf("bar %s: %w", date, err)
			}

			bar := contracts.RawBar{Date: date, Fields: make(map[string]string, len(fields))}
			for k, v := range fields {
				bar.Fields[k] = rawString(v)
			}
			out = append(out, bar)
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return s, nil
}
