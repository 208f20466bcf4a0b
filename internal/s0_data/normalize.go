package s0_data

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/sectorwatch/internal/contracts"
)

// Provider field labels of a weekly bar
// ⭐ SSOT: 제공자 라벨 매핑은 여기서만
const (
	FieldOpen   = "1. open"
	FieldHigh   = "2. high"
	FieldLow    = "3. low"
	FieldClose  = "4. close"
	FieldVolume = "5. volume"
)

// Normalize converts provider bars into a date-ascending series.
// Bad bars are dropped and reported; the rest survive.
// Among valid bars sharing a date the later-seen one wins.
func Normalize(symbol string, raw contracts.RawSeries) (contracts.Series, []*contracts.MalformedBarError) {
	series := contracts.Series{Symbol: symbol, Bars: []contracts.Bar{}}
	if len(raw) == 0 {
		return series, nil
	}

	var malformed []*contracts.MalformedBarError
	byDate := make(map[time.Time]int, len(raw))

	for _, rb := range raw {
		bar, err := parseBar(symbol, rb)
		if err != nil {
			malformed = append(malformed, err)
			continue
		}

		if i, ok := byDate[bar.Date]; ok {
			series.Bars[i] = bar
			continue
		}
		byDate[bar.Date] = len(series.Bars)
		series.Bars = append(series.Bars, bar)
	}

	sort.Slice(series.Bars, func(i, j int) bool {
		return series.Bars[i].Date.Before(series.Bars[j].Date)
	})

	return series, malformed
}

func parseBar(symbol string, rb contracts.RawBar) (contracts.Bar, *contracts.MalformedBarError) {
	bad := func(field, reason string) *contracts.MalformedBarError {
		return &contracts.MalformedBarError{Symbol: symbol, Date: rb.Date, Field: field, Reason: reason}
	}

	date, err := time.Parse(contracts.DateLayout, strings.TrimSpace(rb.Date))
	if err != nil {
		return contracts.Bar{}, bad("", "invalid date")
	}

	bar := contracts.Bar{Date: date}

	prices := []struct {
		field string
		dest  *float64
	}{
		{FieldOpen, &bar.Open},
		{FieldHigh, &bar.High},
		{FieldLow, &bar.Low},
		{FieldClose, &bar.Close},
	}

	for _, p := range prices {
		s, ok := rb.Fields[p.field]
		if !ok {
			return contracts.Bar{}, bad(p.field, "missing")
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return contracts.Bar{}, bad(p.field, "not a number")
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return contracts.Bar{}, bad(p.field, "must be finite and positive")
		}
		*p.dest = v
	}

	vs, ok := rb.Fields[FieldVolume]
	if !ok {
		return contracts.Bar{}, bad(FieldVolume, "missing")
	}
	volume, err := strconv.ParseInt(strings.TrimSpace(vs), 10, 64)
	if err != nil {
		return contracts.Bar{}, bad(FieldVolume, "not an integer")
	}
	if volume < 0 {
		return contracts.Bar{}, bad(FieldVolume, "must not be negative")
	}
	bar.Volume = volume

	return bar, nil
}

// Denormalize renders a series back into provider form.
// Normalize(Denormalize(s)) reproduces s exactly.
func Denormalize(series contracts.Series) contracts.RawSeries {
	raw := make(contracts.RawSeries, 0, len(series.Bars))
	for _, b := range series.Bars {
		raw = append(raw, contracts.RawBar{
			Date: b.Date.Format(contracts.DateLayout),
			Fields: map[string]string{
				FieldOpen:   strconv.FormatFloat(b.Open, 'f', -1, 64),
				FieldHigh:   strconv.FormatFloat(b.High, 'f', -1, 64),
				FieldLow:    strconv.FormatFloat(b.Low, 'f', -1, 64),
				FieldClose:  strconv.FormatFloat(b.Close, 'f', -1, 64),
				FieldVolume: strconv.FormatInt(b.Volume, 10),
			},
		})
	}
	return raw
}
