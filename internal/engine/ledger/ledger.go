// Package ledger tracks cash, the single net position, pending orders and
// the realized trade history for one run.
package ledger

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/tehqua/QuantFlow/internal/types"
	"github.com/tehqua/QuantFlow/pkg/errors"
)

// Ledger applies fills and maintains the account state. It uses netting:
// at most one open position per symbol, and an opposite-side fill reduces,
// closes or flips it.
//
// Cash only moves when profit is realized by closing (all or part of) a
// position; opening costs nothing in this margin-style accounting, so
// equity is always cash plus unrealized PnL.
//
// A Ledger is not safe for concurrent use; the engine goroutine owns it.
type Ledger struct {
	symbol    string
	cash      float64
	lastPrice float64
	position  *types.Position
	pending   []types.Order
	trades    []types.Trade
}

// New creates a ledger with the given starting cash.
func New(symbol string, startingCash float64) (*Ledger, error) {
	if symbol == "" {
		return nil, errors.New(errors.ErrCodeInvalidSymbol, "symbol is required")
	}

	if startingCash <= 0 || math.IsNaN(startingCash) || math.IsInf(startingCash, 0) {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "starting cash must be a positive finite number")
	}

	return &Ledger{
		symbol:    symbol,
		cash:      startingCash,
		lastPrice: 0,
		position:  nil,
		pending:   nil,
		trades:    nil,
	}, nil
}

// Submit validates an intent and queues it as a pending order. The order is
// stamped with the time of the bar it was submitted on and fills at the next
// bar's open.
func (l *Ledger) Submit(intent types.OrderIntent, at time.Time) (string, error) {
	if err := intent.Validate(); err != nil {
		return "", err
	}

	order := types.Order{
		ID:          uuid.New().String(),
		Symbol:      l.symbol,
		Side:        intent.Side,
		Quantity:    intent.Quantity,
		RequestedAt: at,
		StopLoss:    intent.StopLoss,
		TakeProfit:  intent.TakeProfit,
		Reason:      types.OrderReasonStrategy,
	}

	l.pending = append(l.pending, order)

	return order.ID, nil
}

// FillPending executes every pending order at the given bar's open price, in
// submission order, then clears the queue. It returns the trades produced;
// fills that open or extend a position emit no Trade, only closes do.
func (l *Ledger) FillPending(bar types.Bar) []types.Trade {
	if len(l.pending) == 0 {
		return nil
	}

	var fills []types.Trade

	for _, order := range l.pending {
		fills = append(fills, l.fill(order, bar.Open, bar.Time)...)
	}

	l.pending = nil

	return fills
}

// MarkToMarket refreshes the position's current price from the bar close.
// It never produces trades.
func (l *Ledger) MarkToMarket(bar types.Bar) {
	l.lastPrice = bar.Close

	if l.position != nil {
		l.position.CurrentPrice = bar.Close
	}
}

// CheckProtectiveStops evaluates the open position's stop-loss and
// take-profit against the bar's range. When both trigger on the same bar the
// stop-loss wins. A level the bar gapped through fills at the bar's open
// instead of the level itself.
func (l *Ledger) CheckProtectiveStops(bar types.Bar) []types.Trade {
	if l.position == nil {
		return nil
	}

	pos := l.position

	if pos.StopLoss.IsSome() {
		sl := pos.StopLoss.Unwrap()

		if pos.Side == types.SideBuy && bar.Low <= sl {
			return l.closePosition(math.Min(sl, bar.Open), bar.Time, types.OrderReasonStopLoss)
		}

		if pos.Side == types.SideSell && bar.High >= sl {
			return l.closePosition(math.Max(sl, bar.Open), bar.Time, types.OrderReasonStopLoss)
		}
	}

	if pos.TakeProfit.IsSome() {
		tp := pos.TakeProfit.Unwrap()

		if pos.Side == types.SideBuy && bar.High >= tp {
			return l.closePosition(math.Max(tp, bar.Open), bar.Time, types.OrderReasonTakeProfit)
		}

		if pos.Side == types.SideSell && bar.Low <= tp {
			return l.closePosition(math.Min(tp, bar.Open), bar.Time, types.OrderReasonTakeProfit)
		}
	}

	return nil
}

// CloseAll closes the open position at the last marked price, discards any
// pending orders and returns the closing trades. It is idempotent: with no
// position and no pending orders it does nothing.
func (l *Ledger) CloseAll(reason string, at time.Time) []types.Trade {
	l.pending = nil

	if l.position == nil {
		return nil
	}

	return l.closePosition(l.lastPrice, at, reason)
}

// Cash returns the realized cash balance.
func (l *Ledger) Cash() float64 {
	return l.cash
}

// Equity returns cash plus the open position's unrealized PnL.
func (l *Ledger) Equity() float64 {
	if l.position == nil {
		return l.cash
	}

	equity, _ := decimal.NewFromFloat(l.cash).Add(l.position.UnrealizedPnL()).Float64()

	return equity
}

// Position returns a copy of the open position, or None.
func (l *Ledger) Position() optional.Option[types.Position] {
	if l.position == nil {
		return optional.None[types.Position]()
	}

	return optional.Some(*l.position)
}

// Trades returns a copy of the realized trade history in execution order.
func (l *Ledger) Trades() []types.Trade {
	trades := make([]types.Trade, len(l.trades))
	copy(trades, l.trades)

	return trades
}

// PendingOrders returns a copy of the orders waiting to fill.
func (l *Ledger) PendingOrders() []types.Order {
	pending := make([]types.Order, len(l.pending))
	copy(pending, l.pending)

	return pending
}

// fill applies one order at the given price. Trades are recorded only when
// existing exposure is closed; opening or extending a position is not a
// Trade. A flip therefore produces exactly one trade, for its closing leg.
func (l *Ledger) fill(order types.Order, price float64, at time.Time) []types.Trade {
	if l.position == nil {
		l.open(order.Side, order.Quantity, price, at, order.StopLoss, order.TakeProfit)

		return nil
	}

	if l.position.Side == order.Side {
		l.extend(order, price)

		return nil
	}

	switch {
	case order.Quantity < l.position.Quantity:
		return []types.Trade{l.reduce(order.Quantity, price, at, order.Reason)}
	case order.Quantity == l.position.Quantity:
		return l.closePosition(price, at, order.Reason)
	default:
		remainder := order.Quantity - l.position.Quantity
		fills := l.closePosition(price, at, types.OrderReasonReversal)
		l.open(order.Side, remainder, price, at, order.StopLoss, order.TakeProfit)

		return fills
	}
}

func (l *Ledger) open(side types.Side, qty, price float64, at time.Time, sl, tp optional.Option[float64]) {
	l.position = &types.Position{
		Symbol:       l.symbol,
		Side:         side,
		Quantity:     qty,
		EntryPrice:   price,
		CurrentPrice: price,
		OpenedAt:     at,
		StopLoss:     sl,
		TakeProfit:   tp,
	}
}

// extend grows a same-side position, blending the entry price by quantity.
// Protective levels on the order replace the position's existing ones.
func (l *Ledger) extend(order types.Order, price float64) {
	pos := l.position

	oldAmount := decimal.NewFromFloat(pos.EntryPrice).Mul(decimal.NewFromFloat(pos.Quantity))
	newAmount := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(order.Quantity))
	totalQty := decimal.NewFromFloat(pos.Quantity).Add(decimal.NewFromFloat(order.Quantity))

	entry, _ := oldAmount.Add(newAmount).Div(totalQty).Float64()

	pos.EntryPrice = entry
	pos.Quantity, _ = totalQty.Float64()
	pos.CurrentPrice = price

	if order.StopLoss.IsSome() {
		pos.StopLoss = order.StopLoss
	}

	if order.TakeProfit.IsSome() {
		pos.TakeProfit = order.TakeProfit
	}
}

func (l *Ledger) reduce(qty, price float64, at time.Time, reason string) types.Trade {
	pos := l.position
	realized := types.RealizedPnL(pos.Side, pos.EntryPrice, price, qty)

	l.cash, _ = decimal.NewFromFloat(l.cash).Add(decimal.NewFromFloat(realized)).Float64()
	pos.Quantity, _ = decimal.NewFromFloat(pos.Quantity).Sub(decimal.NewFromFloat(qty)).Float64()
	pos.CurrentPrice = price

	return l.record(pos.Side.Opposite(), price, qty, at, realized, reason)
}

func (l *Ledger) closePosition(price float64, at time.Time, reason string) []types.Trade {
	pos := l.position
	realized := types.RealizedPnL(pos.Side, pos.EntryPrice, price, pos.Quantity)

	l.cash, _ = decimal.NewFromFloat(l.cash).Add(decimal.NewFromFloat(realized)).Float64()
	l.lastPrice = price

	trade := l.record(pos.Side.Opposite(), price, pos.Quantity, at, realized, reason)
	l.position = nil

	return []types.Trade{trade}
}

func (l *Ledger) record(side types.Side, price, qty float64, at time.Time, realized float64, reason string) types.Trade {
	// Content-addressed ID: two identical runs must produce identical trade
	// lists, so no randomness may reach a recorded Trade.
	seed := fmt.Sprintf("%s|%s|%d", l.symbol, at.Format(time.RFC3339Nano), len(l.trades))
	trade := types.Trade{
		ID:          uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String(),
		Symbol:      l.symbol,
		Side:        side,
		Price:       price,
		Quantity:    qty,
		Timestamp:   at,
		RealizedPnL: realized,
		Reason:      reason,
	}

	l.trades = append(l.trades, trade)

	return trade
}
