package contracts

import "time"

// DateLayout is the provider's bar date format
const DateLayout = "2006-01-02"

// Bar is one weekly OHLCV bar
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Median returns (high+low)/2
func (b Bar) Median() float64 {
	return (b.High + b.Low) / 2
}

// Series is a normalized bar sequence, dates strictly increasing.
// An empty series is valid and distinct from a fetch error.
// ⭐ SSOT: 정규화된 주봉 시계열
type Series struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

// Len returns the number of bars
func (s Series) Len() int {
	return len(s.Bars)
}

// Latest returns the most recent bar
func (s Series) Latest() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Oldest returns the earliest bar
func (s Series) Oldest() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[0], true
}

// RawBar is one bar exactly as the provider sent it
type RawBar struct {
	Date   string
	Fields map[string]string
}

// RawSeries keeps provider document order so "later-seen" is well defined
type RawSeries []RawBar

// IndicatorStatus describes how much of the indicator set is defined
type IndicatorStatus string

const (
	IndicatorComplete            IndicatorStatus = "complete"
	IndicatorOscillatorOnly      IndicatorStatus = "oscillator_only"
	IndicatorInsufficientHistory IndicatorStatus = "insufficient_history"
)

// IndicatorSet holds the momentum indicators; nil means undefined
type IndicatorSet struct {
	Oscillator   *float64        `json:"ao"`
	Acceleration *float64        `json:"ac"`
	Status       IndicatorStatus `json:"status"`
	ComputedAt   time.Time       `json:"computed_at"`
}
