package types

import (
	"math"
	"time"

	"github.com/tehqua/QuantFlow/pkg/errors"
)

// Bar is a single OHLCV candle for one symbol and timeframe.
type Bar struct {
	Time   time.Time `yaml:"time" json:"time" csv:"time" validate:"required"`
	Symbol string    `yaml:"symbol" json:"symbol" csv:"symbol" validate:"required"`
	Open   float64   `yaml:"open" json:"open" csv:"open"`
	High   float64   `yaml:"high" json:"high" csv:"high"`
	Low    float64   `yaml:"low" json:"low" csv:"low"`
	Close  float64   `yaml:"close" json:"close" csv:"close"`
	Volume float64   `yaml:"volume" json:"volume" csv:"volume"`
}

// Validate checks the bar's internal consistency. Prices must be finite and
// non-negative, High must bound Open and Close from above, Low from below.
func (b *Bar) Validate() error {
	if b.Time.IsZero() {
		return errors.New(errors.ErrCodeInvalidBar, "bar time is zero")
	}

	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Newf(errors.ErrCodeInvalidBar, "bar at %s has non-finite field", b.Time)
		}

		if v < 0 {
			return errors.Newf(errors.ErrCodeInvalidBar, "bar at %s has negative field", b.Time)
		}
	}

	if b.High < math.Max(b.Open, b.Close) {
		return errors.Newf(errors.ErrCodeInvalidBar, "bar at %s: high %f below open/close", b.Time, b.High)
	}

	if b.Low > math.Min(b.Open, b.Close) {
		return errors.Newf(errors.ErrCodeInvalidBar, "bar at %s: low %f above open/close", b.Time, b.Low)
	}

	return nil
}

// Timeframe is the sampling interval of a bar series.
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe30m Timeframe = "30m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
	Timeframe1w  Timeframe = "1w"
)

var timeframeDurations = map[Timeframe]time.Duration{
	Timeframe1m:  time.Minute,
	Timeframe5m:  5 * time.Minute,
	Timeframe15m: 15 * time.Minute,
	Timeframe30m: 30 * time.Minute,
	Timeframe1h:  time.Hour,
	Timeframe4h:  4 * time.Hour,
	Timeframe1d:  24 * time.Hour,
	Timeframe1w:  7 * 24 * time.Hour,
}

// Validate returns an error if the timeframe is not one of the supported intervals.
func (t Timeframe) Validate() error {
	if _, ok := timeframeDurations[t]; !ok {
		return errors.Newf(errors.ErrCodeInvalidTimeframe, "unsupported timeframe %q", string(t))
	}

	return nil
}

// Duration returns the bar interval. Unsupported timeframes return 0.
func (t Timeframe) Duration() time.Duration {
	return timeframeDurations[t]
}

// PeriodsPerYear returns how many bars of this timeframe fit in a 365-day
// year. It is the annualization base for Sharpe ratio calculations.
func (t Timeframe) PeriodsPerYear() float64 {
	d := t.Duration()
	if d <= 0 {
		return 0
	}

	return float64(365*24*time.Hour) / float64(d)
}
