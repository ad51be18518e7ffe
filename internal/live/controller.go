// Package live drives a strategy against streaming market data. The
// Controller owns the session lifecycle: it opens the feed, runs the
// execution engine on its own goroutine, mirrors accepted orders to the
// exchange, and keeps a bounded activity log for UI consumption.
package live

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tehqua/QuantFlow/internal/engine"
	"github.com/tehqua/QuantFlow/internal/engine/barsource"
	"github.com/tehqua/QuantFlow/internal/exchange"
	"github.com/tehqua/QuantFlow/internal/feed"
	"github.com/tehqua/QuantFlow/internal/logger"
	"github.com/tehqua/QuantFlow/internal/strategy"
	"github.com/tehqua/QuantFlow/internal/types"
	"github.com/tehqua/QuantFlow/pkg/errors"
)

// LogRingCapacity is how many recent log entries a session retains.
const LogRingCapacity = 100

// StreamFactory produces a fresh bar stream for each session.
type StreamFactory func() feed.BarStream

// ExecutorFactory produces the order executor for a session. LIVE mode
// receives the credentials the caller passed to Start.
type ExecutorFactory func(mode types.TradingMode, credentials types.Credentials, symbol string) (exchange.OrderExecutor, error)

// Snapshot is a point-in-time copy of the session state, safe to retain.
type Snapshot struct {
	State      types.SessionState
	Mode       types.TradingMode
	IsRunning  bool
	Equity     float64
	Positions  []types.Position
	RecentLogs []types.LogEntry
}

// Controller manages one trading session at a time. IDLE and RUNNING are the
// only states; Start moves to RUNNING, Stop and Kill return to IDLE.
type Controller struct {
	config      engine.Config
	strat       strategy.Strategy
	log         *logger.Logger
	newStream   StreamFactory
	newExecutor ExecutorFactory

	mu       sync.Mutex
	state    types.SessionState
	mode     types.TradingMode
	engine   *engine.Engine
	stream   feed.BarStream
	executor exchange.OrderExecutor
	cancel   context.CancelFunc
	done     chan struct{}

	statsMu   sync.Mutex
	equity    float64
	positions []types.Position

	logs *logRing
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithStreamFactory replaces the default Binance kline stream factory.
func WithStreamFactory(factory StreamFactory) ControllerOption {
	return func(c *Controller) {
		c.newStream = factory
	}
}

// WithExecutorFactory replaces the default executor factory.
func WithExecutorFactory(factory ExecutorFactory) ControllerOption {
	return func(c *Controller) {
		c.newExecutor = factory
	}
}

// NewController creates an idle controller.
func NewController(config engine.Config, strat strategy.Strategy, log *logger.Logger, opts ...ControllerOption) (*Controller, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if strat == nil {
		return nil, errors.New(errors.ErrCodeRunConfigError, "strategy is required")
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	c := &Controller{
		config: config,
		strat:  strat,
		log:    log,
		state:  types.SessionStateIdle,
		mode:   types.TradingModePaper,
		equity: config.StartingEquity,
		logs:   newLogRing(LogRingCapacity),
	}

	c.newStream = func() feed.BarStream {
		return feed.NewBinanceKlineStream(log)
	}

	c.newExecutor = func(mode types.TradingMode, credentials types.Credentials, symbol string) (exchange.OrderExecutor, error) {
		if mode == types.TradingModeLive {
			return exchange.NewBinanceExecutor(credentials, symbol, false)
		}

		return exchange.NewPaperExecutor(), nil
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Start opens the feed and launches the session goroutine. Starting a
// running session is a no-op. A LIVE session requires complete credentials;
// without them, no feed is opened and the controller stays IDLE.
func (c *Controller) Start(ctx context.Context, mode types.TradingMode, credentials types.Credentials) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == types.SessionStateRunning {
		return nil
	}

	if mode == types.TradingModeLive && !credentials.IsComplete() {
		return errors.New(errors.ErrCodeMissingCredentials, "live trading requires an API key and secret")
	}

	executor, err := c.newExecutor(mode, credentials, c.config.Symbol)
	if err != nil {
		return err
	}

	stream := c.newStream()

	bars, err := stream.Open(ctx, c.config.Symbol, c.config.Timeframe)
	if err != nil {
		return err
	}

	eng, err := engine.New(c.config, c.strat, c.log, engine.WithCallbacks(c.sessionCallbacks(executor)))
	if err != nil {
		stream.Close()

		return err
	}

	sessionCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.state = types.SessionStateRunning
	c.mode = mode
	c.engine = eng
	c.stream = stream
	c.executor = executor
	c.cancel = cancel
	c.done = done

	c.statsMu.Lock()
	c.equity = c.config.StartingEquity
	c.positions = nil
	c.statsMu.Unlock()

	c.logs.Append(types.NewLogEntry(time.Now().UTC(), types.LogLevelInfo,
		fmt.Sprintf("session started in %s mode for %s %s", mode, c.config.Symbol, c.config.Timeframe)))

	go c.run(sessionCtx, eng, stream, barsource.NewStreamSource(bars), done)

	return nil
}

// run hosts the engine for the session's lifetime. It owns teardown for
// sessions that end on their own, typically after a feed failure.
func (c *Controller) run(ctx context.Context, eng *engine.Engine, stream feed.BarStream, source barsource.BarSource, done chan struct{}) {
	defer close(done)

	result, err := eng.Run(ctx, source)

	stream.Close()

	if err != nil {
		c.log.Warn("session ended with error", zap.Error(err))
		c.logs.Append(types.NewLogEntry(time.Now().UTC(), types.LogLevelWarning,
			fmt.Sprintf("session ended: %v", err)))
	} else if result != nil {
		c.logs.Append(types.NewLogEntry(time.Now().UTC(), types.LogLevelInfo,
			fmt.Sprintf("session ended with status %s", result.Status)))
	}

	c.mu.Lock()
	if c.done == done {
		c.state = types.SessionStateIdle
		c.cancel = nil
	}
	c.mu.Unlock()
}

// Stop cancels the session and waits for the engine goroutine to exit.
// Open positions are left as they are. Stopping an idle session is a no-op.
func (c *Controller) Stop() {
	c.mu.Lock()

	if c.state != types.SessionStateRunning {
		c.mu.Unlock()

		return
	}

	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	cancel()
	<-done

	c.mu.Lock()
	c.state = types.SessionStateIdle
	c.mu.Unlock()

	c.logs.Append(types.NewLogEntry(time.Now().UTC(), types.LogLevelInfo, "session stopped"))
}

// Kill stops the session, flattens every position, and cancels resting
// orders on the venue. Cancel failures are logged, never returned; the kill
// switch must always leave the session flat and idle. Safe to call twice.
func (c *Controller) Kill(ctx context.Context) {
	c.mu.Lock()

	var (
		cancel  context.CancelFunc
		done    chan struct{}
		running = c.state == types.SessionStateRunning
	)

	if running {
		cancel = c.cancel
		done = c.done
	}

	eng := c.engine
	executor := c.executor
	c.mu.Unlock()

	if running {
		cancel()
		<-done
	}

	if eng != nil {
		trades := eng.Ledger().CloseAll(types.OrderReasonKillSwitch, time.Now().UTC())
		for _, trade := range trades {
			c.logs.Append(types.NewLogEntry(trade.Timestamp, types.LogLevelWarning,
				fmt.Sprintf("kill switch closed %s %.4f at %.2f", trade.Side, trade.Quantity, trade.Price)))
		}

		c.statsMu.Lock()
		c.equity = eng.Ledger().Equity()
		c.positions = nil
		c.statsMu.Unlock()
	}

	if executor != nil {
		if err := executor.CancelAll(ctx); err != nil {
			c.log.Warn("kill switch could not cancel venue orders", zap.Error(err))
			c.logs.Append(types.NewLogEntry(time.Now().UTC(), types.LogLevelWarning,
				fmt.Sprintf("could not cancel venue orders: %v", err)))
		}
	}

	c.mu.Lock()
	if c.state == types.SessionStateRunning {
		c.state = types.SessionStateIdle
	}
	c.mu.Unlock()
}

// Snapshot returns a deep copy of the session state for concurrent readers.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	state := c.state
	mode := c.mode
	c.mu.Unlock()

	c.statsMu.Lock()
	equity := c.equity
	positions := make([]types.Position, len(c.positions))
	copy(positions, c.positions)
	c.statsMu.Unlock()

	return Snapshot{
		State:      state,
		Mode:       mode,
		IsRunning:  state == types.SessionStateRunning,
		Equity:     equity,
		Positions:  positions,
		RecentLogs: c.logs.Snapshot(),
	}
}

// sessionCallbacks wires engine events into the activity log, the snapshot
// stats, and the outbound executor. All callbacks run on the engine
// goroutine.
func (c *Controller) sessionCallbacks(executor exchange.OrderExecutor) engine.Callbacks {
	onBarEnd := func(bar types.Bar, equity float64) {
		if paper, ok := executor.(*exchange.PaperExecutor); ok {
			paper.SetMarkPrice(bar.Close)
		}

		c.mu.Lock()
		eng := c.engine
		c.mu.Unlock()

		c.statsMu.Lock()
		c.equity = equity
		c.positions = nil

		if eng != nil {
			if position, err := eng.Ledger().Position().Take(); err == nil {
				c.positions = append(c.positions, position)
			}
		}
		c.statsMu.Unlock()

		c.logs.Append(types.NewLogEntry(bar.Time, types.LogLevelInfo,
			fmt.Sprintf("bar %s close %.2f equity %.2f", bar.Time.Format(time.RFC3339), bar.Close, equity)))
	}

	onTrade := func(trade types.Trade) {
		level := types.LogLevelSuccess
		if trade.RealizedPnL < 0 {
			level = types.LogLevelWarning
		}

		c.logs.Append(types.NewLogEntry(trade.Timestamp, level,
			fmt.Sprintf("closed %.4f %s at %.2f, realized %.2f (%s)",
				trade.Quantity, trade.Symbol, trade.Price, trade.RealizedPnL, trade.Reason)))
	}

	onOrder := func(order types.Order) {
		if _, err := executor.Place(context.Background(), order); err != nil {
			c.log.Warn("order mirror failed",
				zap.String("order_id", order.ID),
				zap.Error(err))
			c.logs.Append(types.NewLogEntry(order.RequestedAt, types.LogLevelError,
				fmt.Sprintf("order %s %.4f rejected by venue: %v", order.Side, order.Quantity, err)))

			return
		}

		c.logs.Append(types.NewLogEntry(order.RequestedAt, types.LogLevelInfo,
			fmt.Sprintf("submitted %s %.4f %s", order.Side, order.Quantity, order.Symbol)))
	}

	return engine.Callbacks{
		OnBarEnd: &onBarEnd,
		OnTrade:  &onTrade,
		OnOrder:  &onOrder,
	}
}
