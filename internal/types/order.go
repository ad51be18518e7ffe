package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/tehqua/QuantFlow/pkg/errors"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the closing side for this side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}

	return SideBuy
}

const (
	OrderReasonStrategy   string = "strategy"
	OrderReasonStopLoss   string = "stop_loss"
	OrderReasonTakeProfit string = "take_profit"
	OrderReasonReversal   string = "reversal"
	OrderReasonEndOfData  string = "end_of_data"
	OrderReasonKillSwitch string = "kill_switch"
)

// OrderIntent is what a strategy returns from a bar callback: a request to
// trade that has not yet been accepted by the ledger.
type OrderIntent struct {
	Side     Side    `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	Quantity float64 `yaml:"quantity" json:"quantity" validate:"required,gt=0"`
	// StopLoss is the protective stop price. Can be None if not set.
	StopLoss optional.Option[float64] `yaml:"stop_loss" json:"stop_loss"`
	// TakeProfit is the profit target price. Can be None if not set.
	TakeProfit optional.Option[float64] `yaml:"take_profit" json:"take_profit"`
}

// Validate validates the OrderIntent struct.
func (oi *OrderIntent) Validate() error {
	validate := validator.New()
	if err := validate.Struct(oi); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidQuantity, "invalid order intent", err)
	}

	if oi.StopLoss.IsSome() && oi.StopLoss.Unwrap() <= 0 {
		return errors.New(errors.ErrCodeInvalidStopLoss, "stop loss must be positive")
	}

	if oi.TakeProfit.IsSome() && oi.TakeProfit.Unwrap() <= 0 {
		return errors.New(errors.ErrCodeInvalidTakeProfit, "take profit must be positive")
	}

	return nil
}

// Order is an accepted intent waiting to fill at the next bar's open.
type Order struct {
	ID       string  `yaml:"id" json:"id" validate:"required,uuid"`
	Symbol   string  `yaml:"symbol" json:"symbol" validate:"required"`
	Side     Side    `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	Quantity float64 `yaml:"quantity" json:"quantity" validate:"required,gt=0"`
	// RequestedAt is the time of the bar on which the order was submitted,
	// never the wall clock.
	RequestedAt time.Time                `yaml:"requested_at" json:"requested_at" validate:"required"`
	StopLoss    optional.Option[float64] `yaml:"stop_loss" json:"stop_loss"`
	TakeProfit  optional.Option[float64] `yaml:"take_profit" json:"take_profit"`
	// Reason records what produced the order: "strategy", "stop_loss",
	// "take_profit", "reversal", "end_of_data" or "kill_switch".
	Reason string `yaml:"reason" json:"reason" validate:"required"`
}

// Validate validates the Order struct.
func (o *Order) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order", err)
	}

	return nil
}
