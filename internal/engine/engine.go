// Package engine drives a strategy one bar at a time against the ledger.
// The same pipeline runs backtests and live sessions; only the bar source
// and the clock differ.
package engine

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/tehqua/QuantFlow/internal/engine/barsource"
	"github.com/tehqua/QuantFlow/internal/engine/ledger"
	"github.com/tehqua/QuantFlow/internal/engine/metrics"
	"github.com/tehqua/QuantFlow/internal/logger"
	"github.com/tehqua/QuantFlow/internal/series"
	"github.com/tehqua/QuantFlow/internal/strategy"
	"github.com/tehqua/QuantFlow/internal/types"
	"github.com/tehqua/QuantFlow/pkg/errors"
	"go.uber.org/zap"
)

// Config describes one engine run.
type Config struct {
	Symbol         string          `yaml:"symbol" json:"symbol" validate:"required"`
	Timeframe      types.Timeframe `yaml:"timeframe" json:"timeframe" validate:"required"`
	StartingEquity float64         `yaml:"starting_equity" json:"starting_equity" validate:"required,gt=0"`
	// MaxHistoryBars bounds the in-memory bar history. Zero keeps
	// everything, which is what backtests want; live sessions set a bound so
	// memory stays flat.
	MaxHistoryBars int `yaml:"max_history_bars" json:"max_history_bars" validate:"gte=0"`
}

// Validate validates the config.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeRunConfigError, "invalid engine config", err)
	}

	return c.Timeframe.Validate()
}

// Callbacks are optional hooks invoked from the engine goroutine during a
// run. A nil field is skipped. Callbacks must not block.
type Callbacks struct {
	// OnStatusChange fires on every run state transition.
	OnStatusChange *func(status types.RunStatus)
	// OnTrade fires for every recorded trade, in execution order.
	OnTrade *func(trade types.Trade)
	// OnOrder fires when the ledger accepts an order for the next bar.
	OnOrder *func(order types.Order)
	// OnBarEnd fires after the full per-bar pipeline, with the equity sample
	// just appended.
	OnBarEnd *func(bar types.Bar, equity float64)
}

// Engine executes one run. It owns the ledger, the bar history and the
// equity curve for the duration of the run; nothing else mutates them.
type Engine struct {
	config    Config
	strategy  strategy.Strategy
	log       *logger.Logger
	clock     Clock
	callbacks Callbacks

	status      types.RunStatus
	ledger      *ledger.Ledger
	history     *series.Series
	equityCurve []types.EquityPoint
}

// Option configures an Engine.
type Option func(*Engine)

// WithCallbacks attaches lifecycle callbacks.
func WithCallbacks(callbacks Callbacks) Option {
	return func(e *Engine) {
		e.callbacks = callbacks
	}
}

// WithClock replaces the wall clock, which only stamps result metadata.
// Decisions inside the run are always timed by bar timestamps.
func WithClock(clock Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// New creates an engine in the PENDING state.
func New(config Config, strat strategy.Strategy, log *logger.Logger, opts ...Option) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if strat == nil {
		return nil, errors.New(errors.ErrCodeRunConfigError, "strategy is required")
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	book, err := ledger.New(config.Symbol, config.StartingEquity)
	if err != nil {
		return nil, err
	}

	history, err := series.NewBoundedSeries(config.Symbol, config.Timeframe, config.MaxHistoryBars)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:   config,
		strategy: strat,
		log:      log,
		clock:    WallClock{},
		status:   types.RunStatusPending,
		ledger:   book,
		history:  history,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Status returns the current run status.
func (e *Engine) Status() types.RunStatus {
	return e.status
}

// Run drives the strategy over the source until it ends, the strategy
// fails, or ctx is cancelled. The returned result carries whatever trades
// and equity samples were produced, even on failure.
//
// Run must be called at most once per Engine.
func (e *Engine) Run(ctx context.Context, source barsource.BarSource) (*types.BacktestResult, error) {
	if e.status != types.RunStatusPending {
		return nil, errors.Newf(errors.ErrCodeRunInitFailed, "engine already ran (status %s)", e.status)
	}

	result := &types.BacktestResult{
		ID:             uuid.New().String(),
		StrategyID:     e.strategy.Name(),
		Symbol:         e.config.Symbol,
		Timeframe:      e.config.Timeframe,
		StartingEquity: e.config.StartingEquity,
		CreatedAt:      e.clock.Now(),
	}

	e.setStatus(types.RunStatusRunning)

	if err := e.initStrategy(); err != nil {
		return e.finish(result, types.RunStatusFailed, err), err
	}

	var lastBar types.Bar

	for {
		// Cancellation is observed at the top of every iteration, before the
		// next bar is consumed.
		if ctx.Err() != nil {
			e.log.Info("run cancelled", zap.String("symbol", e.config.Symbol))

			return e.finish(result, types.RunStatusCancelled, nil), nil
		}

		bar, err := source.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, barsource.ErrEndOfStream):
				for _, trade := range e.ledger.CloseAll(types.OrderReasonEndOfData, lastBar.Time) {
					e.emitTrade(trade)
				}

				return e.finish(result, types.RunStatusCompleted, nil), nil
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				return e.finish(result, types.RunStatusCancelled, nil), nil
			default:
				err = errors.Wrap(errors.ErrCodeStreamInterrupted, "bar source failed", err)

				return e.finish(result, types.RunStatusFailed, err), err
			}
		}

		if err := e.processBar(bar); err != nil {
			return e.finish(result, types.RunStatusFailed, err), err
		}

		lastBar = bar
	}
}

// processBar runs the six-step pipeline for one bar: mark to market,
// protective stops, pending fills at this bar's open, the strategy
// callback, intent submission, equity sample.
func (e *Engine) processBar(bar types.Bar) error {
	if err := e.history.Append(bar); err != nil {
		return err
	}

	e.ledger.MarkToMarket(bar)

	for _, trade := range e.ledger.CheckProtectiveStops(bar) {
		e.emitTrade(trade)
	}

	for _, trade := range e.ledger.FillPending(bar) {
		e.emitTrade(trade)
	}

	intents, err := e.callOnBar()
	if err != nil {
		e.log.Error("strategy failed",
			zap.String("strategy", e.strategy.Name()),
			zap.Time("bar", bar.Time),
			zap.Error(err))

		return err
	}

	for _, intent := range intents {
		if _, err := e.ledger.Submit(intent, bar.Time); err != nil {
			return errors.Wrapf(errors.ErrCodeStrategyRuntimeError, err, "strategy %q produced an invalid intent", e.strategy.Name())
		}

		if e.callbacks.OnOrder != nil {
			pending := e.ledger.PendingOrders()
			(*e.callbacks.OnOrder)(pending[len(pending)-1])
		}
	}

	equity := e.ledger.Equity()
	e.equityCurve = append(e.equityCurve, types.EquityPoint{Time: bar.Time, Equity: equity})

	if e.callbacks.OnBarEnd != nil {
		(*e.callbacks.OnBarEnd)(bar, equity)
	}

	return nil
}

func (e *Engine) initStrategy() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.ErrCodeStrategyInitFailed, "strategy init panicked: %v", r)
		}
	}()

	if err := e.strategy.Init(e.strategyContext()); err != nil {
		return errors.Wrapf(errors.ErrCodeStrategyInitFailed, err, "strategy %q failed to initialize", e.strategy.Name())
	}

	return nil
}

func (e *Engine) callOnBar() (intents []types.OrderIntent, err error) {
	defer func() {
		if r := recover(); r != nil {
			intents = nil
			err = errors.Newf(errors.ErrCodeStrategyRuntimeError, "strategy panicked: %v", r)
		}
	}()

	intents, err = e.strategy.OnBar(e.strategyContext())
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStrategyRuntimeError, err, "strategy %q failed", e.strategy.Name())
	}

	return intents, nil
}

func (e *Engine) strategyContext() *strategy.Context {
	return strategy.NewContext(
		e.config.Symbol,
		e.config.Timeframe,
		e.history.History(),
		e.ledger.Position(),
		e.ledger.Equity(),
		e.log,
	)
}

// finish seals the result: terminal status, trades, curve and metrics.
// Partial output is preserved on failure and cancellation for diagnostics.
func (e *Engine) finish(result *types.BacktestResult, status types.RunStatus, runErr error) *types.BacktestResult {
	e.setStatus(status)

	result.Status = status
	result.Trades = e.ledger.Trades()
	result.EquityCurve = append([]types.EquityPoint(nil), e.equityCurve...)
	result.FinalEquity = e.ledger.Equity()
	result.Metrics = metrics.Compute(result.Trades, result.EquityCurve, e.config.StartingEquity, e.config.Timeframe)

	if runErr != nil {
		result.Error = runErr.Error()
	}

	return result
}

func (e *Engine) setStatus(status types.RunStatus) {
	e.status = status

	if e.callbacks.OnStatusChange != nil {
		(*e.callbacks.OnStatusChange)(status)
	}
}

func (e *Engine) emitTrade(trade types.Trade) {
	if e.callbacks.OnTrade != nil {
		(*e.callbacks.OnTrade)(trade)
	}
}

// Ledger exposes the run's ledger for snapshotting by the live controller.
// Callers must only use it from the engine goroutine or after Run returns.
func (e *Engine) Ledger() *ledger.Ledger {
	return e.ledger
}

// RunBacktest builds an engine and runs the strategy over the source. It is
// the one-call entry point the CLI and the stores use.
func RunBacktest(ctx context.Context, config Config, strat strategy.Strategy, source barsource.BarSource, log *logger.Logger, opts ...Option) (*types.BacktestResult, error) {
	e, err := New(config, strat, log, opts...)
	if err != nil {
		return nil, err
	}

	return e.Run(ctx, source)
}
