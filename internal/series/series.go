// Package series holds validated bar history and hands out immutable,
// end-indexed views of it for strategies.
package series

import (
	"github.com/tehqua/QuantFlow/internal/types"
	"github.com/tehqua/QuantFlow/pkg/errors"
)

// Series is an append-only sequence of bars for one symbol and timeframe.
// Bars are validated at ingestion and must arrive with strictly increasing
// timestamps, so every consumer downstream can trust the data without
// re-checking it.
//
// A Series is not safe for concurrent use; the engine goroutine owns it.
type Series struct {
	symbol    string
	timeframe types.Timeframe
	maxBars   int
	bars      []types.Bar
}

// NewSeries creates an unbounded series.
func NewSeries(symbol string, timeframe types.Timeframe) (*Series, error) {
	return NewBoundedSeries(symbol, timeframe, 0)
}

// NewBoundedSeries creates a series that keeps at most maxBars bars,
// evicting the oldest on overflow. maxBars of 0 means unbounded. Live
// sessions use a bound so memory stays flat over long runs.
func NewBoundedSeries(symbol string, timeframe types.Timeframe, maxBars int) (*Series, error) {
	if symbol == "" {
		return nil, errors.New(errors.ErrCodeInvalidSymbol, "symbol is required")
	}

	if err := timeframe.Validate(); err != nil {
		return nil, err
	}

	if maxBars < 0 {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "maxBars cannot be negative")
	}

	return &Series{
		symbol:    symbol,
		timeframe: timeframe,
		maxBars:   maxBars,
		bars:      nil,
	}, nil
}

// Append validates the bar and adds it to the series. Bars with a timestamp
// at or before the last bar are rejected so the series stays strictly
// ordered.
func (s *Series) Append(bar types.Bar) error {
	if err := bar.Validate(); err != nil {
		return err
	}

	if bar.Symbol != s.symbol {
		return errors.Newf(errors.ErrCodeInvalidSymbol, "bar symbol %q does not match series symbol %q", bar.Symbol, s.symbol)
	}

	if n := len(s.bars); n > 0 && !bar.Time.After(s.bars[n-1].Time) {
		return errors.Newf(errors.ErrCodeOutOfOrderBar, "bar at %s does not advance past %s", bar.Time, s.bars[n-1].Time)
	}

	if s.maxBars > 0 && len(s.bars) >= s.maxBars {
		// Reallocate instead of shifting in place so earlier History views
		// stay valid.
		next := make([]types.Bar, len(s.bars)-1, s.maxBars)
		copy(next, s.bars[1:])
		s.bars = next
	}

	s.bars = append(s.bars, bar)

	return nil
}

// Symbol returns the series symbol.
func (s *Series) Symbol() string {
	return s.symbol
}

// Timeframe returns the series timeframe.
func (s *Series) Timeframe() types.Timeframe {
	return s.timeframe
}

// Len returns the number of bars in the series.
func (s *Series) Len() int {
	return len(s.bars)
}

// History returns an immutable view of all bars appended so far. The view
// stays valid and unchanged as the series grows.
func (s *Series) History() History {
	return History{bars: s.bars[:len(s.bars):len(s.bars)]}
}

// History is a read-only window over a series, indexed from the end:
// index -1 is the current bar, -2 the one before it. Non-negative indexes
// address bars from the start as usual.
type History struct {
	bars []types.Bar
}

// Len returns the number of bars in the view.
func (h History) Len() int {
	return len(h.bars)
}

// Bar returns the bar at index i. Negative i counts back from the end.
// The boolean is false when i is out of range.
func (h History) Bar(i int) (types.Bar, bool) {
	if i < 0 {
		i += len(h.bars)
	}

	if i < 0 || i >= len(h.bars) {
		return types.Bar{}, false
	}

	return h.bars[i], true
}

// Last returns the most recent bar. The boolean is false on an empty view.
func (h History) Last() (types.Bar, bool) {
	return h.Bar(-1)
}

// Close returns the close price at index i, or 0 when out of range.
func (h History) Close(i int) float64 {
	bar, ok := h.Bar(i)
	if !ok {
		return 0
	}

	return bar.Close
}

// Open returns the open price at index i, or 0 when out of range.
func (h History) Open(i int) float64 {
	bar, ok := h.Bar(i)
	if !ok {
		return 0
	}

	return bar.Open
}

// High returns the high price at index i, or 0 when out of range.
func (h History) High(i int) float64 {
	bar, ok := h.Bar(i)
	if !ok {
		return 0
	}

	return bar.High
}

// Low returns the low price at index i, or 0 when out of range.
func (h History) Low(i int) float64 {
	bar, ok := h.Bar(i)
	if !ok {
		return 0
	}

	return bar.Low
}

// Closes returns the last n close prices in chronological order. When fewer
// than n bars exist it returns an InsufficientDataError.
func (h History) Closes(n int) ([]float64, error) {
	if n <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "n must be positive")
	}

	if len(h.bars) < n {
		return nil, errors.NewInsufficientDataErrorf(n, len(h.bars), "", "need %d bars, have %d", n, len(h.bars))
	}

	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		closes[i] = h.bars[len(h.bars)-n+i].Close
	}

	return closes, nil
}

// SMA returns the simple moving average of the last period closes ending at
// index -1.
func (h History) SMA(period int) (float64, error) {
	closes, err := h.Closes(period)
	if err != nil {
		return 0, err
	}

	var sum float64
	for _, c := range closes {
		sum += c
	}

	return sum / float64(period), nil
}
