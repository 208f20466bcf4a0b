package s2_signals

import (
	"math"
	"time"

	"github.com/wonny/sectorwatch/internal/contracts"
)

// Bill Williams oscillator windows (in bars)
const (
	FastPeriod         = 5
	SlowPeriod         = 34
	AccelerationPeriod = 5

	// MinBarsOscillator is the history needed for AO
	MinBarsOscillator = SlowPeriod
	// MinBarsAcceleration is the history needed for AC: every lagged AO needs a full slow window
	MinBarsAcceleration = SlowPeriod + AccelerationPeriod
)

// Compute derives the Awesome Oscillator and Acceleration/Deceleration from a series.
// Insufficient history is a status, not an error.
// ⭐ SSOT: AO/AC 계산은 여기서만
func Compute(series contracts.Series, at time.Time) contracts.IndicatorSet {
	set := contracts.IndicatorSet{
		Status:     contracts.IndicatorInsufficientHistory,
		ComputedAt: at,
	}

	n := series.Len()
	if n < MinBarsOscillator {
		return set
	}

	medians := make([]float64, n)
	for i, b := range series.Bars {
		medians[i] = b.Median()
	}

	// 반올림은 마지막에만 (중간값은 float64 그대로)
	ao := oscillatorAt(medians, n)
	aoRounded := round4(ao)
	set.Oscillator = &aoRounded
	set.Status = contracts.IndicatorOscillatorOnly

	if n < MinBarsAcceleration {
		return set
	}

	// AO over bars[:n-k] for k = 1..5
	var lagged float64
	for k := 1; k <= AccelerationPeriod; k++ {
		lagged += oscillatorAt(medians, n-k)
	}
	ac := round4(ao - lagged/AccelerationPeriod)
	set.Acceleration = &ac
	set.Status = contracts.IndicatorComplete

	return set
}

// oscillatorAt is AO over medians[:end]; end must be >= SlowPeriod
func oscillatorAt(medians []float64, end int) float64 {
	return mean(medians[end-FastPeriod:end]) - mean(medians[end-SlowPeriod:end])
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
