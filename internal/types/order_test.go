package types

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/tehqua/QuantFlow/pkg/errors"
)

type OrderTestSuite struct {
	suite.Suite
}

func TestOrderSuite(t *testing.T) {
	suite.Run(t, new(OrderTestSuite))
}

func (suite *OrderTestSuite) TestSideOpposite() {
	suite.Equal(SideSell, SideBuy.Opposite())
	suite.Equal(SideBuy, SideSell.Opposite())
}

func (suite *OrderTestSuite) TestValidIntent() {
	intent := OrderIntent{
		Side:     SideBuy,
		Quantity: 0.1,
		StopLoss: optional.Some(95.0),
	}
	suite.NoError(intent.Validate())
}

func (suite *OrderTestSuite) TestIntentZeroQuantity() {
	intent := OrderIntent{
		Side:     SideBuy,
		Quantity: 0,
	}
	err := intent.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidQuantity))
}

func (suite *OrderTestSuite) TestIntentNegativeQuantity() {
	intent := OrderIntent{
		Side:     SideSell,
		Quantity: -1,
	}
	suite.Error(intent.Validate())
}

func (suite *OrderTestSuite) TestIntentInvalidSide() {
	intent := OrderIntent{
		Side:     Side("HOLD"),
		Quantity: 1,
	}
	suite.Error(intent.Validate())
}

func (suite *OrderTestSuite) TestIntentNegativeStopLoss() {
	intent := OrderIntent{
		Side:     SideBuy,
		Quantity: 1,
		StopLoss: optional.Some(-5.0),
	}
	err := intent.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidStopLoss))
}

func (suite *OrderTestSuite) TestIntentNegativeTakeProfit() {
	intent := OrderIntent{
		Side:       SideBuy,
		Quantity:   1,
		TakeProfit: optional.Some(0.0),
	}
	err := intent.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidTakeProfit))
}

func (suite *OrderTestSuite) TestValidOrder() {
	order := Order{
		ID:          uuid.New().String(),
		Symbol:      "BTCUSDT",
		Side:        SideBuy,
		Quantity:    0.1,
		RequestedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Reason:      OrderReasonStrategy,
	}
	suite.NoError(order.Validate())
}

func (suite *OrderTestSuite) TestOrderMissingID() {
	order := Order{
		Symbol:      "BTCUSDT",
		Side:        SideBuy,
		Quantity:    0.1,
		RequestedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Reason:      OrderReasonStrategy,
	}
	err := order.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidOrder))
}
