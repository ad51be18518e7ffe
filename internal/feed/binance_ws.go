package feed

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tehqua/QuantFlow/internal/logger"
	"github.com/tehqua/QuantFlow/internal/types"
	"github.com/tehqua/QuantFlow/pkg/errors"
)

// BinanceWebSocketURL is the production Binance spot stream endpoint.
const BinanceWebSocketURL = "wss://stream.binance.com:9443"

// binanceKlineEvent is the wire format of a kline stream event.
// Ref: https://binance-docs.github.io/apidocs/spot/en/#kline-candlestick-streams
type binanceKlineEvent struct {
	EventType string       `json:"e"`
	EventTime int64        `json:"E"`
	Symbol    string       `json:"s"`
	Kline     binanceKline `json:"k"`
}

type binanceKline struct {
	StartTime int64  `json:"t"`
	EndTime   int64  `json:"T"`
	Symbol    string `json:"s"`
	Interval  string `json:"i"`
	Open      string `json:"o"`
	Close     string `json:"c"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Volume    string `json:"v"`
	IsFinal   bool   `json:"x"`
}

// toBar converts the event to a bar stamped with the kline's open time.
func (e *binanceKlineEvent) toBar() types.Bar {
	open, _ := strconv.ParseFloat(e.Kline.Open, 64)
	high, _ := strconv.ParseFloat(e.Kline.High, 64)
	low, _ := strconv.ParseFloat(e.Kline.Low, 64)
	closePrice, _ := strconv.ParseFloat(e.Kline.Close, 64)
	volume, _ := strconv.ParseFloat(e.Kline.Volume, 64)

	return types.Bar{
		Time:   time.UnixMilli(e.Kline.StartTime).UTC(),
		Symbol: e.Kline.Symbol,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}
}

// BinanceKlineStream streams completed klines from a Binance websocket
// endpoint. Only final klines become bars; in-progress updates are dropped.
type BinanceKlineStream struct {
	baseURL string
	log     *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	done      chan struct{}
	closeOnce sync.Once
}

// NewBinanceKlineStream creates a stream against the production endpoint.
func NewBinanceKlineStream(log *logger.Logger) *BinanceKlineStream {
	return NewBinanceKlineStreamWithURL(BinanceWebSocketURL, log)
}

// NewBinanceKlineStreamWithURL creates a stream against a custom endpoint,
// used for testnet and for tests.
func NewBinanceKlineStreamWithURL(baseURL string, log *logger.Logger) *BinanceKlineStream {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &BinanceKlineStream{
		baseURL: baseURL,
		log:     log,
		done:    make(chan struct{}),
	}
}

// Open dials the kline stream for the symbol and starts the read loop.
// A stream can be opened once; reuse requires a new BinanceKlineStream.
func (s *BinanceKlineStream) Open(ctx context.Context, symbol string, timeframe types.Timeframe) (<-chan types.Bar, error) {
	if symbol == "" {
		return nil, errors.New(errors.ErrCodeInvalidSymbol, "symbol is required to open a kline stream")
	}

	if err := timeframe.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return nil, errors.New(errors.ErrCodeDataSourceUnavailable, "kline stream is already open")
	}

	url := fmt.Sprintf("%s/ws/%s@kline_%s", s.baseURL, strings.ToLower(symbol), timeframe)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to dial %s", url)
	}

	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	s.conn = conn
	bars := make(chan types.Bar)

	go s.readLoop(conn, bars)

	return bars, nil
}

// readLoop pumps final klines into the channel until the connection drops
// or the stream is closed. The channel is always closed on exit so
// downstream consumers observe the interruption.
func (s *BinanceKlineStream) readLoop(conn *websocket.Conn, bars chan<- types.Bar) {
	defer close(bars)

	for {
		var event binanceKlineEvent
		if err := conn.ReadJSON(&event); err != nil {
			select {
			case <-s.done:
				// Closed deliberately, not an error.
			default:
				s.log.Warn("kline stream read failed", zap.Error(err))
			}

			return
		}

		if !event.Kline.IsFinal {
			continue
		}

		bar := event.toBar()
		if err := bar.Validate(); err != nil {
			s.log.Warn("dropping malformed kline",
				zap.String("symbol", event.Symbol),
				zap.Error(err))

			continue
		}

		select {
		case bars <- bar:
		case <-s.done:
			return
		}
	}
}

// Close tears down the connection. Safe to call more than once.
func (s *BinanceKlineStream) Close() error {
	var err error

	s.closeOnce.Do(func() {
		close(s.done)

		s.mu.Lock()
		defer s.mu.Unlock()

		if s.conn != nil {
			err = s.conn.Close()
		}
	})

	return err
}

var _ BarStream = (*BinanceKlineStream)(nil)
