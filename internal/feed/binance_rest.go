package feed

import (
	"context"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"

	"github.com/tehqua/QuantFlow/internal/types"
	"github.com/tehqua/QuantFlow/pkg/errors"
)

// binanceKlinesPageSize is the maximum number of klines Binance returns per
// request. Ranges longer than one page are fetched with pagination.
const binanceKlinesPageSize = 500

// KlinesService interface for fetching klines, extracted for mocking.
type KlinesService interface {
	Symbol(symbol string) KlinesService
	Interval(interval string) KlinesService
	StartTime(startTime int64) KlinesService
	EndTime(endTime int64) KlinesService
	Limit(limit int) KlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// KlinesClient abstracts the Binance client for testing.
type KlinesClient interface {
	NewKlinesService() KlinesService
}

type realKlinesClient struct {
	client *binance.Client
}

func (r *realKlinesClient) NewKlinesService() KlinesService {
	return &realKlinesService{service: r.client.NewKlinesService()}
}

type realKlinesService struct {
	service *binance.KlinesService
}

func (s *realKlinesService) Symbol(symbol string) KlinesService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realKlinesService) Interval(interval string) KlinesService {
	s.service = s.service.Interval(interval)

	return s
}

func (s *realKlinesService) StartTime(startTime int64) KlinesService {
	s.service = s.service.StartTime(startTime)

	return s
}

func (s *realKlinesService) EndTime(endTime int64) KlinesService {
	s.service = s.service.EndTime(endTime)

	return s
}

func (s *realKlinesService) Limit(limit int) KlinesService {
	s.service = s.service.Limit(limit)

	return s
}

func (s *realKlinesService) Do(ctx context.Context) ([]*binance.Kline, error) {
	return s.service.Do(ctx)
}

// BinanceHistoricalProvider downloads closed klines from the public Binance
// REST API. No credentials are needed; klines are public market data.
type BinanceHistoricalProvider struct {
	client KlinesClient
}

// NewBinanceHistoricalProvider creates a provider against the production API.
func NewBinanceHistoricalProvider() *BinanceHistoricalProvider {
	return NewBinanceHistoricalProviderWithBaseURL("")
}

// NewBinanceHistoricalProviderWithBaseURL creates a provider against a custom
// base URL, used for testnet and for tests.
func NewBinanceHistoricalProviderWithBaseURL(baseURL string) *BinanceHistoricalProvider {
	client := binance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = baseURL
	}

	return &BinanceHistoricalProvider{
		client: &realKlinesClient{client: client},
	}
}

// newBinanceHistoricalProviderWithClient is used by tests to inject a mock.
func newBinanceHistoricalProviderWithClient(client KlinesClient) *BinanceHistoricalProvider {
	return &BinanceHistoricalProvider{client: client}
}

// Range fetches bars between start and end, paginating past the per-request
// limit. The next page starts at the close time of the last kline plus one
// millisecond to avoid duplicates.
func (p *BinanceHistoricalProvider) Range(ctx context.Context, symbol string, timeframe types.Timeframe, start, end time.Time) ([]types.Bar, error) {
	if symbol == "" {
		return nil, errors.New(errors.ErrCodeInvalidSymbol, "symbol is required for a historical range")
	}

	if err := timeframe.Validate(); err != nil {
		return nil, err
	}

	if !end.After(start) {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "range end must be after start")
	}

	endMillis := end.UnixMilli()
	currentStart := start.UnixMilli()

	var bars []types.Bar

	for {
		klines, err := p.client.NewKlinesService().
			Symbol(symbol).
			Interval(string(timeframe)).
			StartTime(currentStart).
			EndTime(endMillis).
			Limit(binanceKlinesPageSize).
			Do(ctx)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeHistoricalDataFailed, "failed to fetch klines from Binance", err)
		}

		for _, k := range klines {
			bar, convErr := convertKlineToBar(symbol, k)
			if convErr != nil {
				return nil, convErr
			}

			bars = append(bars, bar)
		}

		if len(klines) < binanceKlinesPageSize {
			break
		}

		currentStart = klines[len(klines)-1].CloseTime + 1
		if currentStart >= endMillis {
			break
		}
	}

	return bars, nil
}

// convertKlineToBar converts a REST kline to a bar stamped with its open time.
func convertKlineToBar(symbol string, k *binance.Kline) (types.Bar, error) {
	open, _ := strconv.ParseFloat(k.Open, 64)
	high, _ := strconv.ParseFloat(k.High, 64)
	low, _ := strconv.ParseFloat(k.Low, 64)
	closePrice, _ := strconv.ParseFloat(k.Close, 64)
	volume, _ := strconv.ParseFloat(k.Volume, 64)

	bar := types.Bar{
		Time:   time.UnixMilli(k.OpenTime).UTC(),
		Symbol: symbol,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}

	if err := bar.Validate(); err != nil {
		return types.Bar{}, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "malformed kline at %d", k.OpenTime)
	}

	return bar, nil
}

var _ HistoricalProvider = (*BinanceHistoricalProvider)(nil)
