// Package strategy defines the contract user strategies implement and the
// registry that creates them by name.
package strategy

import (
	"github.com/moznion/go-optional"
	"github.com/tehqua/QuantFlow/internal/logger"
	"github.com/tehqua/QuantFlow/internal/series"
	"github.com/tehqua/QuantFlow/internal/types"
)

// Strategy is the contract the engine drives. Init runs once before the
// first bar; OnBar runs for every bar after the pipeline has applied fills
// and protective stops. Returning no intents is a valid outcome of a tick.
//
// Strategies must be deterministic: decisions may depend only on the
// Context. Returning an error from either method aborts the run.
type Strategy interface {
	// Name identifies the strategy in results and logs.
	Name() string
	// APIVersion is the strategy contract version this implementation was
	// written against, e.g. "1.0.0".
	APIVersion() string
	Init(ctx *Context) error
	OnBar(ctx *Context) ([]types.OrderIntent, error)
}

// Context is the read-only view of the run a strategy sees. The engine
// rebuilds it every bar; everything reachable from it is a copy or an
// immutable view, so a strategy cannot corrupt engine state.
type Context struct {
	symbol    string
	timeframe types.Timeframe
	history   series.History
	position  optional.Option[types.Position]
	equity    float64
	logger    *logger.Logger
}

// NewContext assembles a strategy context. The engine is the usual caller;
// tests build them directly.
func NewContext(symbol string, timeframe types.Timeframe, history series.History, position optional.Option[types.Position], equity float64, log *logger.Logger) *Context {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Context{
		symbol:    symbol,
		timeframe: timeframe,
		history:   history,
		position:  position,
		equity:    equity,
		logger:    log,
	}
}

// Symbol returns the traded symbol.
func (c *Context) Symbol() string {
	return c.symbol
}

// Timeframe returns the bar interval of the run.
func (c *Context) Timeframe() types.Timeframe {
	return c.timeframe
}

// History returns the bar history up to and including the current bar,
// indexed from the end: Close(-1) is the current close.
func (c *Context) History() series.History {
	return c.history
}

// Position returns a copy of the open position, or None when flat.
func (c *Context) Position() optional.Option[types.Position] {
	return c.position
}

// Equity returns the account equity as of the current bar's mark.
func (c *Context) Equity() float64 {
	return c.equity
}

// Logger returns the run's logger.
func (c *Context) Logger() *logger.Logger {
	return c.logger
}
