package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// Position is the single net holding for a symbol. The ledger maintains at
// most one position per symbol; a fill in the opposite direction reduces or
// flips it.
type Position struct {
	Symbol     string  `yaml:"symbol" json:"symbol"`
	Side       Side    `yaml:"side" json:"side"`
	Quantity   float64 `yaml:"quantity" json:"quantity"`
	EntryPrice float64 `yaml:"entry_price" json:"entry_price"`
	// CurrentPrice is refreshed on every mark to market.
	CurrentPrice float64                  `yaml:"current_price" json:"current_price"`
	OpenedAt     time.Time                `yaml:"opened_at" json:"opened_at"`
	StopLoss     optional.Option[float64] `yaml:"stop_loss" json:"stop_loss"`
	TakeProfit   optional.Option[float64] `yaml:"take_profit" json:"take_profit"`
}

// UnrealizedPnL returns the open profit at the current mark. Short positions
// gain when price falls.
func (p *Position) UnrealizedPnL() decimal.Decimal {
	entry := decimal.NewFromFloat(p.EntryPrice)
	current := decimal.NewFromFloat(p.CurrentPrice)
	qty := decimal.NewFromFloat(p.Quantity)

	diff := current.Sub(entry)
	if p.Side == SideSell {
		diff = entry.Sub(current)
	}

	return diff.Mul(qty)
}

// Trade is recorded when a position is fully or partially closed, never when
// one is opened or extended. Trades are immutable once recorded.
type Trade struct {
	ID       string  `yaml:"id" json:"id"`
	Symbol   string  `yaml:"symbol" json:"symbol"`
	Side     Side    `yaml:"side" json:"side"`
	Price    float64 `yaml:"price" json:"price"`
	Quantity float64 `yaml:"quantity" json:"quantity"`
	// Timestamp is the time of the bar on which the fill happened.
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	// RealizedPnL is the profit of the closed leg, signed.
	RealizedPnL float64 `yaml:"realized_pnl" json:"realized_pnl"`
	Reason      string  `yaml:"reason" json:"reason"`
}

// RealizedPnL computes the profit of closing quantity qty of a position
// entered at entry, at price exit. The side is the side of the position
// being closed.
func RealizedPnL(side Side, entry, exit, qty float64) float64 {
	entryDec := decimal.NewFromFloat(entry)
	exitDec := decimal.NewFromFloat(exit)
	qtyDec := decimal.NewFromFloat(qty)

	diff := exitDec.Sub(entryDec)
	if side == SideSell {
		diff = entryDec.Sub(exitDec)
	}

	result, _ := diff.Mul(qtyDec).Float64()

	return result
}
