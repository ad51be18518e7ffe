// Package feed provides market data inputs for live sessions and downloads:
// streaming bars over websocket and historical bars over REST.
package feed

import (
	"context"
	"time"

	"github.com/tehqua/QuantFlow/internal/types"
)

// BarStream delivers completed bars for one symbol as they close on the
// venue. The returned channel is closed when the stream ends, whether by
// Close or by a transport failure.
type BarStream interface {
	Open(ctx context.Context, symbol string, timeframe types.Timeframe) (<-chan types.Bar, error)
	Close() error
}

// HistoricalProvider fetches closed bars for a time range, oldest first.
type HistoricalProvider interface {
	Range(ctx context.Context, symbol string, timeframe types.Timeframe, start, end time.Time) ([]types.Bar, error)
}
