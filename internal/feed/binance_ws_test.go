package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/tehqua/QuantFlow/internal/feed/feedtest"
	"github.com/tehqua/QuantFlow/internal/types"
	"github.com/tehqua/QuantFlow/pkg/errors"
)

func scriptedBars(count int) []types.Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, 0, count)

	for i := 0; i < count; i++ {
		price := 100.0 + float64(i)
		bars = append(bars, types.Bar{
			Time:   base.Add(time.Duration(i) * time.Hour),
			Symbol: "BTCUSDT",
			Open:   price,
			High:   price + 1,
			Low:    price - 1,
			Close:  price + 0.5,
			Volume: 10,
		})
	}

	return bars
}

type BinanceKlineStreamTestSuite struct {
	suite.Suite
	server *feedtest.Server
	stream *BinanceKlineStream
}

func TestBinanceKlineStreamSuite(t *testing.T) {
	suite.Run(t, new(BinanceKlineStreamTestSuite))
}

func (s *BinanceKlineStreamTestSuite) SetupTest() {
	s.server = feedtest.NewServer(scriptedBars(3))
	s.Require().NoError(s.server.Start(""))
	s.stream = NewBinanceKlineStreamWithURL(s.server.WebSocketURL(), nil)
}

func (s *BinanceKlineStreamTestSuite) TearDownTest() {
	s.stream.Close()
	s.server.Stop()
}

func (s *BinanceKlineStreamTestSuite) TestStreamDeliversFinalBars() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	bars, err := s.stream.Open(ctx, "BTCUSDT", types.Timeframe1h)
	s.Require().NoError(err)

	want := scriptedBars(3)

	for i := 0; i < len(want); i++ {
		select {
		case bar, ok := <-bars:
			s.Require().True(ok, "stream closed before all bars arrived")
			s.Assert().Equal(want[i].Time, bar.Time)
			s.Assert().Equal(want[i].Symbol, bar.Symbol)
			s.Assert().Equal(want[i].Open, bar.Open)
			s.Assert().Equal(want[i].High, bar.High)
			s.Assert().Equal(want[i].Low, bar.Low)
			s.Assert().Equal(want[i].Close, bar.Close)
			s.Assert().Equal(want[i].Volume, bar.Volume)
		case <-ctx.Done():
			s.FailNow("timed out waiting for bar")
		}
	}
}

func (s *BinanceKlineStreamTestSuite) TestCloseEndsStream() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	bars, err := s.stream.Open(ctx, "BTCUSDT", types.Timeframe1h)
	s.Require().NoError(err)

	// Drain the script, then close and expect the channel to end.
	for i := 0; i < 3; i++ {
		select {
		case <-bars:
		case <-ctx.Done():
			s.FailNow("timed out waiting for bar")
		}
	}

	s.Require().NoError(s.stream.Close())

	select {
	case _, ok := <-bars:
		s.Assert().False(ok)
	case <-ctx.Done():
		s.FailNow("channel did not close after Close")
	}
}

func (s *BinanceKlineStreamTestSuite) TestOpenRequiresSymbol() {
	_, err := s.stream.Open(context.Background(), "", types.Timeframe1h)
	s.Require().Error(err)
	s.Assert().True(errors.HasCode(err, errors.ErrCodeInvalidSymbol))
}

func (s *BinanceKlineStreamTestSuite) TestOpenRejectsBadTimeframe() {
	_, err := s.stream.Open(context.Background(), "BTCUSDT", types.Timeframe("7m"))
	s.Require().Error(err)
	s.Assert().True(errors.HasCode(err, errors.ErrCodeInvalidTimeframe))
}

func (s *BinanceKlineStreamTestSuite) TestOpenTwiceFails() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.stream.Open(ctx, "BTCUSDT", types.Timeframe1h)
	s.Require().NoError(err)

	_, err = s.stream.Open(ctx, "BTCUSDT", types.Timeframe1h)
	s.Require().Error(err)
	s.Assert().True(errors.HasCode(err, errors.ErrCodeDataSourceUnavailable))
}

func (s *BinanceKlineStreamTestSuite) TestDialFailureIsWrapped() {
	stream := NewBinanceKlineStreamWithURL("ws://127.0.0.1:1", nil)

	_, err := stream.Open(context.Background(), "BTCUSDT", types.Timeframe1h)
	s.Require().Error(err)
	s.Assert().True(errors.HasCode(err, errors.ErrCodeDataSourceUnavailable))
}
