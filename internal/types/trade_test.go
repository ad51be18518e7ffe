package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type TradeTestSuite struct {
	suite.Suite
}

func TestTradeSuite(t *testing.T) {
	suite.Run(t, new(TradeTestSuite))
}

func (suite *TradeTestSuite) TestLongUnrealizedPnL() {
	pos := Position{
		Symbol:       "BTCUSDT",
		Side:         SideBuy,
		Quantity:     0.5,
		EntryPrice:   100,
		CurrentPrice: 110,
		OpenedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	pnl, _ := pos.UnrealizedPnL().Float64()
	suite.InDelta(5.0, pnl, 1e-9)
}

func (suite *TradeTestSuite) TestShortUnrealizedPnL() {
	pos := Position{
		Symbol:       "BTCUSDT",
		Side:         SideSell,
		Quantity:     2,
		EntryPrice:   100,
		CurrentPrice: 90,
	}
	pnl, _ := pos.UnrealizedPnL().Float64()
	suite.InDelta(20.0, pnl, 1e-9)
}

func (suite *TradeTestSuite) TestShortUnrealizedLoss() {
	pos := Position{
		Side:         SideSell,
		Quantity:     1,
		EntryPrice:   100,
		CurrentPrice: 105,
	}
	pnl, _ := pos.UnrealizedPnL().Float64()
	suite.InDelta(-5.0, pnl, 1e-9)
}

func (suite *TradeTestSuite) TestRealizedPnLLong() {
	// buy at 103, close at 99, qty 0.1
	suite.InDelta(-0.4, RealizedPnL(SideBuy, 103, 99, 0.1), 1e-9)
}

func (suite *TradeTestSuite) TestRealizedPnLShort() {
	suite.InDelta(4.0, RealizedPnL(SideSell, 103, 99, 1), 1e-9)
}

func (suite *TradeTestSuite) TestRealizedPnLAvoidsFloatDrift() {
	// 0.1 and 0.2 are classic binary-float traps; decimal math keeps the
	// result exact.
	suite.Equal(0.01, RealizedPnL(SideBuy, 0.1, 0.2, 0.1))
}

func (suite *TradeTestSuite) TestRunStatusTerminal() {
	suite.False(RunStatusPending.IsTerminal())
	suite.False(RunStatusRunning.IsTerminal())
	suite.True(RunStatusCompleted.IsTerminal())
	suite.True(RunStatusFailed.IsTerminal())
	suite.True(RunStatusCancelled.IsTerminal())
}

func (suite *TradeTestSuite) TestCredentialsComplete() {
	suite.False(Credentials{}.IsComplete())
	suite.False(Credentials{APIKey: "key"}.IsComplete())
	suite.False(Credentials{APISecret: "secret"}.IsComplete())
	suite.True(Credentials{APIKey: "key", APISecret: "secret"}.IsComplete())
}
