package feed

import (
	"context"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/tehqua/QuantFlow/internal/types"
	"github.com/tehqua/QuantFlow/pkg/errors"
)

// polygonAggsLimit is the maximum aggregates per page Polygon allows.
const polygonAggsLimit = 50000

// PolygonHistoricalProvider downloads aggregate bars from Polygon.io.
type PolygonHistoricalProvider struct {
	client *polygon.Client
}

// NewPolygonHistoricalProvider creates a provider. Polygon requires an API
// key for every request.
func NewPolygonHistoricalProvider(apiKey string) (*PolygonHistoricalProvider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeMissingCredentials, "polygon provider requires an API key")
	}

	return &PolygonHistoricalProvider{
		client: polygon.New(apiKey),
	}, nil
}

// Range fetches aggregate bars between start and end, oldest first. The
// client-side iterator handles pagination.
func (p *PolygonHistoricalProvider) Range(ctx context.Context, symbol string, timeframe types.Timeframe, start, end time.Time) ([]types.Bar, error) {
	if symbol == "" {
		return nil, errors.New(errors.ErrCodeInvalidSymbol, "symbol is required for a historical range")
	}

	if !end.After(start) {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "range end must be after start")
	}

	timespan, multiplier, err := timeframeToPolygon(timeframe)
	if err != nil {
		return nil, err
	}

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(start),
		To:         models.Millis(end),
	}.WithLimit(polygonAggsLimit)

	iter := p.client.ListAggs(ctx, params)

	var bars []types.Bar

	for iter.Next() {
		agg := iter.Item()
		bar := types.Bar{
			Time:   time.Time(agg.Timestamp).UTC(),
			Symbol: symbol,
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		}

		if validateErr := bar.Validate(); validateErr != nil {
			return nil, errors.Wrapf(errors.ErrCodeDataParseFailed, validateErr, "malformed aggregate at %s", bar.Time)
		}

		bars = append(bars, bar)
	}

	if iter.Err() != nil {
		return nil, errors.Wrap(errors.ErrCodeHistoricalDataFailed, "failed to list aggregates from Polygon", iter.Err())
	}

	return bars, nil
}

// timeframeToPolygon maps a bar timeframe to Polygon's timespan/multiplier
// pair. Polygon has no weekly multiplier above one.
func timeframeToPolygon(timeframe types.Timeframe) (models.Timespan, int, error) {
	switch timeframe {
	case types.Timeframe1m:
		return models.Minute, 1, nil
	case types.Timeframe5m:
		return models.Minute, 5, nil
	case types.Timeframe15m:
		return models.Minute, 15, nil
	case types.Timeframe30m:
		return models.Minute, 30, nil
	case types.Timeframe1h:
		return models.Hour, 1, nil
	case types.Timeframe4h:
		return models.Hour, 4, nil
	case types.Timeframe1d:
		return models.Day, 1, nil
	case types.Timeframe1w:
		return models.Week, 1, nil
	default:
		return "", 0, errors.Newf(errors.ErrCodeInvalidTimeframe, "unsupported timeframe for Polygon: %q", string(timeframe))
	}
}

var _ HistoricalProvider = (*PolygonHistoricalProvider)(nil)
