package contracts

import "time"

// Candidate is one row of the provider's active listing
// ⭐ SSOT: 후보 종목은 리스팅에서만 생성
type Candidate struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
}

// Profile is the company overview used for selection
type Profile struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Sector    string  `json:"sector"`   // may be empty or "None"
	Industry  string  `json:"industry"` // may be empty or "None"
	MarketCap float64 `json:"market_cap"`
}

// Quote is the latest traded price
type Quote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// WatchlistEntry is a symbol the agent keeps refreshed
type WatchlistEntry struct {
	Symbol   string    `json:"symbol"`
	Name     string    `json:"name"`
	Exchange string    `json:"exchange"`
	AddedAt  time.Time `json:"added_at"`
}

// StockRecord is the persisted document per symbol.
// Upserts overwrite the whole record.
// ⭐ SSOT: stocks 컬렉션 문서 구조
type StockRecord struct {
	Symbol     string       `json:"symbol"`
	Name       string       `json:"name"`
	Sector     string       `json:"sector"`
	Industry   string       `json:"industry"`
	MarketCap  float64      `json:"market_cap"`
	Series     Series       `json:"series"`
	Indicators IndicatorSet `json:"indicators"`
	LastUpdate time.Time    `json:"last_update"`
}

// StockView is the presentation projection of a record
type StockView struct {
	Symbol       string    `json:"symbol"`
	Name         string    `json:"name"`
	Sector       string    `json:"sector"`
	Industry     string    `json:"industry"`
	MarketCap    float64   `json:"market_cap"`
	LatestPrice  *float64  `json:"latest_price"`
	LatestVolume *int64    `json:"latest_volume"`
	Oscillator   *float64  `json:"ao"`
	Acceleration *float64  `json:"ac"`
	LastUpdate   time.Time `json:"last_update"`
}

// NewStockRecord assembles a record from one evaluation
func NewStockRecord(profile Profile, series Series, indicators IndicatorSet, now time.Time) StockRecord {
	return StockRecord{
		Symbol:     series.Symbol,
		Name:       profile.Name,
		Sector:     profile.Sector,
		Industry:   profile.Industry,
		MarketCap:  profile.MarketCap,
		Series:     series,
		Indicators: indicators,
		LastUpdate: now,
	}
}

// View projects the record for display.
// Price and volume are nil when the series is empty.
func (r StockRecord) View() StockView {
	v := StockView{
		Symbol:       r.Symbol,
		Name:         r.Name,
		Sector:       r.Sector,
		Industry:     r.Industry,
		MarketCap:    r.MarketCap,
		Oscillator:   r.Indicators.Oscillator,
		Acceleration: r.Indicators.Acceleration,
		LastUpdate:   r.LastUpdate,
	}

	if latest, ok := r.Series.Latest(); ok {
		price := latest.Close
		volume := latest.Volume
		v.LatestPrice = &price
		v.LatestVolume = &volume
	}

	return v
}
