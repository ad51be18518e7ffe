// Package barsource abstracts where bars come from so the engine can run
// the same pipeline over recorded history and live streams.
package barsource

import (
	"context"
	stderrors "errors"

	"github.com/tehqua/QuantFlow/internal/types"
	"github.com/tehqua/QuantFlow/pkg/errors"
)

// ErrEndOfStream is returned by Next when a finite source has delivered its
// last bar. Live sources never return it.
var ErrEndOfStream = stderrors.New("end of stream")

// BarSource delivers bars one at a time in chronological order.
type BarSource interface {
	// Next blocks until the next bar is available, the source is exhausted
	// (ErrEndOfStream), or ctx is cancelled.
	Next(ctx context.Context) (types.Bar, error)
}

// SeriesSource replays a fixed slice of bars. It is restartable via Reset,
// which is what makes repeated backtests over the same data deterministic.
type SeriesSource struct {
	bars []types.Bar
	pos  int
}

var _ BarSource = (*SeriesSource)(nil)

// NewSeriesSource copies bars so later mutation of the caller's slice cannot
// change a running backtest.
func NewSeriesSource(bars []types.Bar) *SeriesSource {
	owned := make([]types.Bar, len(bars))
	copy(owned, bars)

	return &SeriesSource{bars: owned, pos: 0}
}

// Next returns the next bar or ErrEndOfStream.
func (s *SeriesSource) Next(ctx context.Context) (types.Bar, error) {
	if err := ctx.Err(); err != nil {
		return types.Bar{}, err
	}

	if s.pos >= len(s.bars) {
		return types.Bar{}, ErrEndOfStream
	}

	bar := s.bars[s.pos]
	s.pos++

	return bar, nil
}

// Reset rewinds the source to the first bar.
func (s *SeriesSource) Reset() {
	s.pos = 0
}

// Len returns the total number of bars the source replays.
func (s *SeriesSource) Len() int {
	return len(s.bars)
}

// StreamSource adapts a live bar channel. It is single-use: once the channel
// closes the source is dead and every Next reports the interruption.
type StreamSource struct {
	bars <-chan types.Bar
}

var _ BarSource = (*StreamSource)(nil)

// NewStreamSource wraps a channel produced by a feed client.
func NewStreamSource(bars <-chan types.Bar) *StreamSource {
	return &StreamSource{bars: bars}
}

// Next waits for the next bar. A closed channel means the upstream feed
// dropped, which is an error for a live source.
func (s *StreamSource) Next(ctx context.Context) (types.Bar, error) {
	select {
	case <-ctx.Done():
		return types.Bar{}, ctx.Err()
	case bar, ok := <-s.bars:
		if !ok {
			return types.Bar{}, errors.New(errors.ErrCodeStreamInterrupted, "bar stream closed")
		}

		return bar, nil
	}
}
