// Package exchange contains the outbound order leg for live sessions: the
// OrderExecutor port and its paper and Binance implementations. Backtests
// never touch this package; fills there are simulated by the ledger.
package exchange

import (
	"context"
	"time"

	"github.com/tehqua/QuantFlow/internal/types"
)

// ExecutionReport describes what the venue did with an order.
type ExecutionReport struct {
	OrderID    string
	Symbol     string
	Side       types.Side
	Quantity   float64
	Price      float64
	ExecutedAt time.Time
}

// OrderExecutor places orders on an external venue. Implementations must be
// safe for concurrent use; the live controller calls Place from its feed
// goroutine and CancelAll from the caller's goroutine on kill.
type OrderExecutor interface {
	// Place submits a market order and returns the resulting execution.
	Place(ctx context.Context, order types.Order) (ExecutionReport, error)
	// CancelAll cancels every open order for the executor's symbol.
	CancelAll(ctx context.Context) error
}
