package ledger

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/tehqua/QuantFlow/internal/types"
	"github.com/tehqua/QuantFlow/pkg/errors"
)

type LedgerTestSuite struct {
	suite.Suite
	ledger *Ledger
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}

func (suite *LedgerTestSuite) SetupTest() {
	l, err := New("BTCUSDT", 10000)
	suite.Require().NoError(err)
	suite.ledger = l
}

func (suite *LedgerTestSuite) bar(hour int, open, high, low, close float64) types.Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	return types.Bar{
		Time:   base.Add(time.Duration(hour) * time.Hour),
		Symbol: "BTCUSDT",
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: 100,
	}
}

func (suite *LedgerTestSuite) buy(qty float64) types.OrderIntent {
	return types.OrderIntent{Side: types.SideBuy, Quantity: qty}
}

func (suite *LedgerTestSuite) sell(qty float64) types.OrderIntent {
	return types.OrderIntent{Side: types.SideSell, Quantity: qty}
}

func (suite *LedgerTestSuite) at(hour int) time.Time {
	return time.Date(2024, 1, 1, hour, 0, 0, 0, time.UTC)
}

func (suite *LedgerTestSuite) TestNewValidation() {
	_, err := New("", 1000)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidSymbol))

	_, err = New("BTCUSDT", 0)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))

	_, err = New("BTCUSDT", -5)
	suite.Error(err)
}

func (suite *LedgerTestSuite) TestSubmitRejectsInvalidQuantity() {
	_, err := suite.ledger.Submit(suite.buy(0), suite.at(0))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidQuantity))
	suite.Empty(suite.ledger.PendingOrders())
}

func (suite *LedgerTestSuite) TestSubmitQueuesPendingOrder() {
	id, err := suite.ledger.Submit(suite.buy(0.1), suite.at(0))
	suite.Require().NoError(err)
	suite.NotEmpty(id)

	pending := suite.ledger.PendingOrders()
	suite.Require().Len(pending, 1)
	suite.Equal(id, pending[0].ID)
	suite.Equal(suite.at(0), pending[0].RequestedAt)
	suite.Equal(types.OrderReasonStrategy, pending[0].Reason)

	// No trade and no position until the next bar fills it.
	suite.Empty(suite.ledger.Trades())
	suite.True(suite.ledger.Position().IsNone())
}

func (suite *LedgerTestSuite) TestFillPendingAtNextBarOpen() {
	_, err := suite.ledger.Submit(suite.buy(0.1), suite.at(0))
	suite.Require().NoError(err)

	fills := suite.ledger.FillPending(suite.bar(1, 103, 104, 102, 103.5))
	// Opening a position is not a Trade.
	suite.Empty(fills)

	pos := suite.ledger.Position()
	suite.Require().True(pos.IsSome())
	suite.InDelta(103, pos.Unwrap().EntryPrice, 1e-9)
	suite.InDelta(0.1, pos.Unwrap().Quantity, 1e-9)
	suite.Empty(suite.ledger.PendingOrders())
}

func (suite *LedgerTestSuite) TestOpenDoesNotMoveCash() {
	_, err := suite.ledger.Submit(suite.buy(1), suite.at(0))
	suite.Require().NoError(err)
	suite.ledger.FillPending(suite.bar(1, 100, 101, 99, 100))

	suite.InDelta(10000, suite.ledger.Cash(), 1e-9)
}

func (suite *LedgerTestSuite) TestCloseRealizesExactPnL() {
	// Buy 0.1 at 103, sell at 99: realized = (99-103)*0.1 = -0.4 exactly.
	_, err := suite.ledger.Submit(suite.buy(0.1), suite.at(0))
	suite.Require().NoError(err)
	suite.ledger.FillPending(suite.bar(1, 103, 104, 102, 103))

	_, err = suite.ledger.Submit(suite.sell(0.1), suite.at(1))
	suite.Require().NoError(err)

	fills := suite.ledger.FillPending(suite.bar(2, 99, 100, 98, 99))
	suite.Require().Len(fills, 1)
	suite.Equal(-0.4, fills[0].RealizedPnL)
	suite.Equal(types.SideSell, fills[0].Side)

	suite.True(suite.ledger.Position().IsNone())
	suite.Equal(9999.6, suite.ledger.Cash())
	// The whole round trip produced exactly one Trade.
	suite.Len(suite.ledger.Trades(), 1)
}

func (suite *LedgerTestSuite) TestExtendBlendsEntryPrice() {
	_, err := suite.ledger.Submit(suite.buy(1), suite.at(0))
	suite.Require().NoError(err)
	suite.ledger.FillPending(suite.bar(1, 100, 101, 99, 100))

	_, err = suite.ledger.Submit(suite.buy(1), suite.at(1))
	suite.Require().NoError(err)
	suite.ledger.FillPending(suite.bar(2, 110, 111, 109, 110))

	pos := suite.ledger.Position()
	suite.Require().True(pos.IsSome())
	suite.InDelta(105, pos.Unwrap().EntryPrice, 1e-9)
	suite.InDelta(2, pos.Unwrap().Quantity, 1e-9)
}

func (suite *LedgerTestSuite) TestPartialReduce() {
	_, err := suite.ledger.Submit(suite.buy(2), suite.at(0))
	suite.Require().NoError(err)
	suite.ledger.FillPending(suite.bar(1, 100, 101, 99, 100))

	_, err = suite.ledger.Submit(suite.sell(0.5), suite.at(1))
	suite.Require().NoError(err)

	fills := suite.ledger.FillPending(suite.bar(2, 110, 111, 109, 110))
	suite.Require().Len(fills, 1)
	suite.InDelta(5, fills[0].RealizedPnL, 1e-9)

	pos := suite.ledger.Position()
	suite.Require().True(pos.IsSome())
	suite.InDelta(1.5, pos.Unwrap().Quantity, 1e-9)
	suite.Equal(types.SideBuy, pos.Unwrap().Side)
	suite.InDelta(10005, suite.ledger.Cash(), 1e-9)
}

func (suite *LedgerTestSuite) TestFlipClosesThenOpensRemainder() {
	_, err := suite.ledger.Submit(suite.buy(1), suite.at(0))
	suite.Require().NoError(err)
	suite.ledger.FillPending(suite.bar(1, 100, 101, 99, 100))

	_, err = suite.ledger.Submit(suite.sell(3), suite.at(1))
	suite.Require().NoError(err)

	fills := suite.ledger.FillPending(suite.bar(2, 110, 111, 109, 110))
	// Only the closing leg is a Trade; the short remainder is an open.
	suite.Require().Len(fills, 1)
	suite.Equal(types.OrderReasonReversal, fills[0].Reason)
	suite.InDelta(10, fills[0].RealizedPnL, 1e-9)
	suite.InDelta(1, fills[0].Quantity, 1e-9)

	pos := suite.ledger.Position()
	suite.Require().True(pos.IsSome())
	suite.Equal(types.SideSell, pos.Unwrap().Side)
	suite.InDelta(2, pos.Unwrap().Quantity, 1e-9)
	suite.InDelta(110, pos.Unwrap().EntryPrice, 1e-9)
}

func (suite *LedgerTestSuite) TestMarkToMarketUpdatesEquityNotCash() {
	_, err := suite.ledger.Submit(suite.buy(1), suite.at(0))
	suite.Require().NoError(err)
	suite.ledger.FillPending(suite.bar(1, 100, 101, 99, 100))

	suite.ledger.MarkToMarket(suite.bar(2, 100, 106, 99, 105))

	suite.InDelta(10000, suite.ledger.Cash(), 1e-9)
	suite.InDelta(10005, suite.ledger.Equity(), 1e-9)
	suite.Empty(suite.ledger.Trades())
}

func (suite *LedgerTestSuite) openLong(qty float64, sl, tp optional.Option[float64]) {
	_, err := suite.ledger.Submit(types.OrderIntent{
		Side:       types.SideBuy,
		Quantity:   qty,
		StopLoss:   sl,
		TakeProfit: tp,
	}, suite.at(0))
	suite.Require().NoError(err)
	suite.ledger.FillPending(suite.bar(1, 100, 101, 99, 100))
}

func (suite *LedgerTestSuite) TestStopLossTriggersOnLow() {
	suite.openLong(1, optional.Some(95.0), optional.None[float64]())

	fills := suite.ledger.CheckProtectiveStops(suite.bar(2, 98, 99, 94, 96))
	suite.Require().Len(fills, 1)
	suite.Equal(types.OrderReasonStopLoss, fills[0].Reason)
	suite.InDelta(95, fills[0].Price, 1e-9)
	suite.InDelta(-5, fills[0].RealizedPnL, 1e-9)
	suite.True(suite.ledger.Position().IsNone())
}

func (suite *LedgerTestSuite) TestStopLossGapThroughFillsAtOpen() {
	suite.openLong(1, optional.Some(95.0), optional.None[float64]())

	// Opens below the stop: fill at the open, not the stop level.
	fills := suite.ledger.CheckProtectiveStops(suite.bar(2, 90, 92, 89, 91))
	suite.Require().Len(fills, 1)
	suite.InDelta(90, fills[0].Price, 1e-9)
	suite.InDelta(-10, fills[0].RealizedPnL, 1e-9)
}

func (suite *LedgerTestSuite) TestTakeProfitTriggersOnHigh() {
	suite.openLong(1, optional.None[float64](), optional.Some(110.0))

	fills := suite.ledger.CheckProtectiveStops(suite.bar(2, 105, 112, 104, 108))
	suite.Require().Len(fills, 1)
	suite.Equal(types.OrderReasonTakeProfit, fills[0].Reason)
	suite.InDelta(110, fills[0].Price, 1e-9)
	suite.InDelta(10, fills[0].RealizedPnL, 1e-9)
}

func (suite *LedgerTestSuite) TestStopLossWinsWhenBothTrigger() {
	suite.openLong(1, optional.Some(95.0), optional.Some(110.0))

	// Range covers both levels on the same bar.
	fills := suite.ledger.CheckProtectiveStops(suite.bar(2, 100, 112, 94, 100))
	suite.Require().Len(fills, 1)
	suite.Equal(types.OrderReasonStopLoss, fills[0].Reason)
}

func (suite *LedgerTestSuite) TestShortStopLossTriggersOnHigh() {
	_, err := suite.ledger.Submit(types.OrderIntent{
		Side:     types.SideSell,
		Quantity: 1,
		StopLoss: optional.Some(105.0),
	}, suite.at(0))
	suite.Require().NoError(err)
	suite.ledger.FillPending(suite.bar(1, 100, 101, 99, 100))

	fills := suite.ledger.CheckProtectiveStops(suite.bar(2, 103, 106, 102, 104))
	suite.Require().Len(fills, 1)
	suite.Equal(types.OrderReasonStopLoss, fills[0].Reason)
	suite.InDelta(105, fills[0].Price, 1e-9)
	suite.InDelta(-5, fills[0].RealizedPnL, 1e-9)
}

func (suite *LedgerTestSuite) TestNoStopsNoTrades() {
	suite.openLong(1, optional.None[float64](), optional.None[float64]())

	fills := suite.ledger.CheckProtectiveStops(suite.bar(2, 50, 200, 40, 100))
	suite.Empty(fills)
	suite.True(suite.ledger.Position().IsSome())
}

func (suite *LedgerTestSuite) TestCloseAllAtLastMark() {
	suite.openLong(1, optional.None[float64](), optional.None[float64]())
	suite.ledger.MarkToMarket(suite.bar(2, 100, 108, 99, 107))

	fills := suite.ledger.CloseAll(types.OrderReasonEndOfData, suite.at(2))
	suite.Require().Len(fills, 1)
	suite.Equal(types.OrderReasonEndOfData, fills[0].Reason)
	suite.InDelta(107, fills[0].Price, 1e-9)
	suite.InDelta(7, fills[0].RealizedPnL, 1e-9)
	suite.True(suite.ledger.Position().IsNone())
}

func (suite *LedgerTestSuite) TestCloseAllIsIdempotent() {
	suite.openLong(1, optional.None[float64](), optional.None[float64]())

	first := suite.ledger.CloseAll(types.OrderReasonKillSwitch, suite.at(2))
	suite.Len(first, 1)

	again := suite.ledger.CloseAll(types.OrderReasonKillSwitch, suite.at(3))
	suite.Empty(again)
}

func (suite *LedgerTestSuite) TestCloseAllDiscardsPending() {
	_, err := suite.ledger.Submit(suite.buy(1), suite.at(0))
	suite.Require().NoError(err)

	suite.ledger.CloseAll(types.OrderReasonKillSwitch, suite.at(1))
	suite.Empty(suite.ledger.PendingOrders())

	// Nothing left to fill on the next bar.
	suite.Empty(suite.ledger.FillPending(suite.bar(2, 100, 101, 99, 100)))
}

func (suite *LedgerTestSuite) TestTradesReturnsCopy() {
	suite.openLong(1, optional.None[float64](), optional.None[float64]())
	suite.ledger.MarkToMarket(suite.bar(2, 100, 101, 99, 100))
	suite.ledger.CloseAll(types.OrderReasonEndOfData, suite.at(2))

	trades := suite.ledger.Trades()
	suite.Require().Len(trades, 1)
	trades[0].RealizedPnL = 12345

	suite.Zero(suite.ledger.Trades()[0].RealizedPnL)
}

func (suite *LedgerTestSuite) TestTradeOrderingFollowsExecution() {
	roundTrip := func(openHour int) {
		_, err := suite.ledger.Submit(suite.buy(1), suite.at(openHour))
		suite.Require().NoError(err)
		suite.ledger.FillPending(suite.bar(openHour+1, 100, 101, 99, 100))

		_, err = suite.ledger.Submit(suite.sell(1), suite.at(openHour+1))
		suite.Require().NoError(err)
		suite.ledger.FillPending(suite.bar(openHour+2, 105, 106, 104, 105))
	}

	roundTrip(0)
	roundTrip(3)

	trades := suite.ledger.Trades()
	suite.Require().Len(trades, 2)
	suite.True(trades[0].Timestamp.Before(trades[1].Timestamp))
	suite.Equal(types.SideSell, trades[0].Side)
	suite.Equal(types.SideSell, trades[1].Side)
}
