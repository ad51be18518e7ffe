package live

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/tehqua/QuantFlow/internal/engine"
	"github.com/tehqua/QuantFlow/internal/exchange"
	"github.com/tehqua/QuantFlow/internal/feed"
	"github.com/tehqua/QuantFlow/internal/strategy"
	"github.com/tehqua/QuantFlow/internal/types"
	"github.com/tehqua/QuantFlow/internal/version"
	"github.com/tehqua/QuantFlow/pkg/errors"
)

// buyOnceStrategy buys a fixed quantity on the first bar it sees.
type buyOnceStrategy struct {
	quantity float64
	bought   bool
}

func (s *buyOnceStrategy) Name() string { return "buy_once" }

func (s *buyOnceStrategy) APIVersion() string { return version.StrategyAPIVersion }

func (s *buyOnceStrategy) Init(_ *strategy.Context) error { return nil }

func (s *buyOnceStrategy) OnBar(_ *strategy.Context) ([]types.OrderIntent, error) {
	if s.bought {
		return nil, nil
	}

	s.bought = true

	return []types.OrderIntent{{
		Side:       types.SideBuy,
		Quantity:   s.quantity,
		StopLoss:   optional.None[float64](),
		TakeProfit: optional.None[float64](),
	}}, nil
}

// fakeStream feeds bars from a test-controlled channel.
type fakeStream struct {
	mu        sync.Mutex
	bars      chan types.Bar
	openCalls int
	closed    bool
}

func newFakeStream() *fakeStream {
	return &fakeStream{bars: make(chan types.Bar, 16)}
}

func (f *fakeStream) Open(_ context.Context, _ string, _ types.Timeframe) (<-chan types.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.openCalls++

	return f.bars, nil
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.closed {
		f.closed = true
		close(f.bars)
	}

	return nil
}

func (f *fakeStream) Push(bar types.Bar) {
	f.bars <- bar
}

func (f *fakeStream) OpenCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.openCalls
}

// fakeExecutor records mirrored orders and cancel calls.
type fakeExecutor struct {
	mu          sync.Mutex
	placed      []types.Order
	cancelCalls int
	cancelErr   error
}

func (f *fakeExecutor) Place(_ context.Context, order types.Order) (exchange.ExecutionReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.placed = append(f.placed, order)

	return exchange.ExecutionReport{
		OrderID:    order.ID,
		Symbol:     order.Symbol,
		Side:       order.Side,
		Quantity:   order.Quantity,
		ExecutedAt: order.RequestedAt,
	}, nil
}

func (f *fakeExecutor) CancelAll(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cancelCalls++

	return f.cancelErr
}

func (f *fakeExecutor) Placed() []types.Order {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]types.Order, len(f.placed))
	copy(out, f.placed)

	return out
}

func (f *fakeExecutor) CancelCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.cancelCalls
}

func liveBar(i int) types.Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	price := 100.0 + float64(i)

	return types.Bar{
		Time:   base.Add(time.Duration(i) * time.Hour),
		Symbol: "BTCUSDT",
		Open:   price,
		High:   price + 1,
		Low:    price - 1,
		Close:  price + 0.5,
		Volume: 10,
	}
}

type ControllerTestSuite struct {
	suite.Suite
	stream     *fakeStream
	executor   *fakeExecutor
	controller *Controller
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerTestSuite))
}

func (s *ControllerTestSuite) SetupTest() {
	s.stream = newFakeStream()
	s.executor = &fakeExecutor{}

	config := engine.Config{
		Symbol:         "BTCUSDT",
		Timeframe:      types.Timeframe1h,
		StartingEquity: 10000,
	}

	controller, err := NewController(config, &buyOnceStrategy{quantity: 0.1}, nil,
		WithStreamFactory(func() feed.BarStream { return s.stream }),
		WithExecutorFactory(func(_ types.TradingMode, _ types.Credentials, _ string) (exchange.OrderExecutor, error) {
			return s.executor, nil
		}),
	)
	s.Require().NoError(err)
	s.controller = controller
}

func (s *ControllerTestSuite) TearDownTest() {
	s.controller.Kill(context.Background())
}

func (s *ControllerTestSuite) TestStartRunsPaperSession() {
	s.Require().NoError(s.controller.Start(context.Background(), types.TradingModePaper, types.Credentials{}))

	snapshot := s.controller.Snapshot()
	s.Assert().Equal(types.SessionStateRunning, snapshot.State)
	s.Assert().True(snapshot.IsRunning)
	s.Assert().Equal(types.TradingModePaper, snapshot.Mode)

	s.stream.Push(liveBar(0))
	s.stream.Push(liveBar(1))

	// Bar 0 triggers the buy, bar 1 fills it at the open.
	s.Require().Eventually(func() bool {
		return len(s.controller.Snapshot().Positions) == 1
	}, 2*time.Second, 10*time.Millisecond)

	position := s.controller.Snapshot().Positions[0]
	s.Assert().Equal(types.SideBuy, position.Side)
	s.Assert().Equal(0.1, position.Quantity)
	s.Assert().Equal(liveBar(1).Open, position.EntryPrice)

	s.controller.Stop()

	snapshot = s.controller.Snapshot()
	s.Assert().Equal(types.SessionStateIdle, snapshot.State)
	s.Assert().False(snapshot.IsRunning)
	s.Assert().NotEmpty(snapshot.RecentLogs)
}

func (s *ControllerTestSuite) TestLiveModeRequiresCredentials() {
	err := s.controller.Start(context.Background(), types.TradingModeLive, types.Credentials{})
	s.Require().Error(err)
	s.Assert().True(errors.HasCode(err, errors.ErrCodeMissingCredentials))

	// The feed must not have been touched.
	s.Assert().Equal(0, s.stream.OpenCalls())
	s.Assert().False(s.controller.Snapshot().IsRunning)
}

func (s *ControllerTestSuite) TestLiveModeStartsWithCredentials() {
	credentials := types.Credentials{APIKey: "key", APISecret: "secret"}

	s.Require().NoError(s.controller.Start(context.Background(), types.TradingModeLive, credentials))
	s.Assert().Equal(types.TradingModeLive, s.controller.Snapshot().Mode)
}

func (s *ControllerTestSuite) TestStartWhileRunningIsNoOp() {
	s.Require().NoError(s.controller.Start(context.Background(), types.TradingModePaper, types.Credentials{}))
	s.Require().NoError(s.controller.Start(context.Background(), types.TradingModePaper, types.Credentials{}))

	s.Assert().Equal(1, s.stream.OpenCalls())
}

func (s *ControllerTestSuite) TestOrdersAreMirroredToExecutor() {
	s.Require().NoError(s.controller.Start(context.Background(), types.TradingModePaper, types.Credentials{}))

	s.stream.Push(liveBar(0))

	s.Require().Eventually(func() bool {
		return len(s.executor.Placed()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	order := s.executor.Placed()[0]
	s.Assert().Equal(types.SideBuy, order.Side)
	s.Assert().Equal(0.1, order.Quantity)
	s.Assert().Equal("BTCUSDT", order.Symbol)
}

func (s *ControllerTestSuite) TestKillFlattensPositions() {
	s.Require().NoError(s.controller.Start(context.Background(), types.TradingModePaper, types.Credentials{}))

	s.stream.Push(liveBar(0))
	s.stream.Push(liveBar(1))

	s.Require().Eventually(func() bool {
		return len(s.controller.Snapshot().Positions) == 1
	}, 2*time.Second, 10*time.Millisecond)

	s.controller.Kill(context.Background())

	snapshot := s.controller.Snapshot()
	s.Assert().False(snapshot.IsRunning)
	s.Assert().Empty(snapshot.Positions)
	s.Assert().Equal(1, s.executor.CancelCalls())
}

func (s *ControllerTestSuite) TestKillIsIdempotent() {
	s.Require().NoError(s.controller.Start(context.Background(), types.TradingModePaper, types.Credentials{}))

	s.controller.Kill(context.Background())
	s.controller.Kill(context.Background())

	s.Assert().False(s.controller.Snapshot().IsRunning)
}

func (s *ControllerTestSuite) TestKillBeforeStartIsSafe() {
	s.controller.Kill(context.Background())
	s.Assert().False(s.controller.Snapshot().IsRunning)
}

func (s *ControllerTestSuite) TestKillCancelFailureIsWarningOnly() {
	s.executor.cancelErr = stderrors.New("venue unreachable")

	s.Require().NoError(s.controller.Start(context.Background(), types.TradingModePaper, types.Credentials{}))
	s.controller.Kill(context.Background())

	snapshot := s.controller.Snapshot()
	s.Assert().False(snapshot.IsRunning)

	found := false

	for _, entry := range snapshot.RecentLogs {
		if entry.Level == types.LogLevelWarning && entry.Message == "could not cancel venue orders: venue unreachable" {
			found = true
		}
	}

	s.Assert().True(found, "expected a warning about the failed cancel")
}

func (s *ControllerTestSuite) TestFeedFailureEndsSession() {
	s.Require().NoError(s.controller.Start(context.Background(), types.TradingModePaper, types.Credentials{}))

	s.stream.Push(liveBar(0))
	s.stream.Close()

	s.Require().Eventually(func() bool {
		return !s.controller.Snapshot().IsRunning
	}, 2*time.Second, 10*time.Millisecond)

	var warned bool

	for _, entry := range s.controller.Snapshot().RecentLogs {
		if entry.Level == types.LogLevelWarning {
			warned = true
		}
	}

	s.Assert().True(warned, "expected a warning log after the feed dropped")
}

func (s *ControllerTestSuite) TestSnapshotIsDeepCopy() {
	s.Require().NoError(s.controller.Start(context.Background(), types.TradingModePaper, types.Credentials{}))

	s.stream.Push(liveBar(0))
	s.stream.Push(liveBar(1))

	s.Require().Eventually(func() bool {
		return len(s.controller.Snapshot().Positions) == 1
	}, 2*time.Second, 10*time.Millisecond)

	snapshot := s.controller.Snapshot()
	snapshot.Positions[0].Quantity = 999

	s.Assert().Equal(0.1, s.controller.Snapshot().Positions[0].Quantity)
}

func (s *ControllerTestSuite) TestLogRingCapsAtLimit() {
	s.Require().NoError(s.controller.Start(context.Background(), types.TradingModePaper, types.Credentials{}))

	for i := 0; i < LogRingCapacity+20; i++ {
		s.stream.Push(liveBar(i))
	}

	s.Require().Eventually(func() bool {
		return len(s.controller.Snapshot().RecentLogs) == LogRingCapacity
	}, 5*time.Second, 10*time.Millisecond)

	s.controller.Stop()
	s.Assert().Len(s.controller.Snapshot().RecentLogs, LogRingCapacity)
}
