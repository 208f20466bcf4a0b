package alphavantage

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/wonny/sectorwatch/internal/contracts"
	"github.com/wonny/sectorwatch/pkg/redis"
)

// ListCandidates fetches the active equity listing
// ⭐ SSOT: 리스팅 조회는 이 함수에서만
func (c *Client) ListCandidates(ctx context.Context) ([]contracts.Candidate, error) {
	var cached []contracts.Candidate
	if found, err := c.cache.Get(ctx, redis.ListingKey(), &cached); err == nil && found {
		return cached, nil
	}

	body, err := c.query(ctx, FunctionListing, "")
	if err != nil {
		return nil, err
	}

	// 정상 응답은 CSV, 에러/한도 메시지는 JSON으로 옴
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '{' {
		top, err := decodeObject(FunctionListing, "", trimmed)
		if err != nil {
			return nil, err
		}
		return nil, missingKey(FunctionListing, "", top, "CSV listing")
	}

	candidates, skipped := parseListing(body)

	c.logger.WithFields(map[string]interface{}{
		"count":   len(candidates),
		"skipped": skipped,
	}).Info("Fetched listing")

	if len(candidates) > 0 {
		if err := c.cache.Set(ctx, redis.ListingKey(), candidates, redis.TTLDaily); err != nil {
			c.logger.WithError(err).Warn("Failed to cache listing")
		}
	}

	return candidates, nil
}

// parseListing keeps Active Stock rows whose column count matches the header.
// Returns the candidates and the number of malformed rows discarded.
func parseListing(body []byte) ([]contracts.Candidate, int) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, 0
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}

	col := func(row []string, name string) string {
		i, ok := index[name]
		if !ok {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var candidates []contracts.Candidate
	skipped := 0

	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			skipped++
			continue
		}
		if err != nil {
			break
		}

		if len(row) != len(header) {
			skipped++
			continue
		}

		if col(row, "status") != "Active" || col(row, "assetType") != "Stock" {
			continue
		}

		symbol := col(row, "symbol")
		if symbol == "" {
			skipped++
			continue
		}

		candidates = append(candidates, contracts.Candidate{
			Symbol:   symbol,
			Name:     col(row, "name"),
			Exchange: col(row, "exchange"),
		})
	}

	return candidates, skipped
}
