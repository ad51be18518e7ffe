package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/tehqua/QuantFlow/internal/feed"
	"github.com/tehqua/QuantFlow/internal/logger"
	"github.com/tehqua/QuantFlow/internal/types"
	"github.com/tehqua/QuantFlow/pkg/errors"
)

// downloadChunk bounds how much of the range is fetched between progress
// updates.
const downloadChunk = 24 * time.Hour

func downloadCommand() *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "Download historical bars into the local database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "symbol",
				Aliases:  []string{"s"},
				Usage:    "Trading symbol (e.g. BTCUSDT)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "timeframe",
				Aliases: []string{"t"},
				Usage:   "Bar interval (1m 5m 15m 30m 1h 4h 1d 1w)",
				Value:   "1h",
			},
			&cli.TimestampFlag{
				Name:     "start",
				Usage:    "Range start in `YYYY-MM-DD` format",
				Required: true,
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.TimestampFlag{
				Name:  "end",
				Usage: "Range end in `YYYY-MM-DD` format. Defaults to today.",
				Value: time.Now(),
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   "Data provider: binance or polygon",
				Value:   "binance",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "Path to the bar database",
				Value: "data/quantflow.db",
			},
		},
		Action: downloadAction,
	}
}

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	symbol := cmd.String("symbol")
	timeframe := types.Timeframe(cmd.String("timeframe"))
	start := cmd.Timestamp("start").UTC()
	end := cmd.Timestamp("end").UTC()

	if err := timeframe.Validate(); err != nil {
		return err
	}

	if !end.After(start) {
		return errors.New(errors.ErrCodeInvalidParameter, "end must be after start")
	}

	provider, err := newHistoricalProvider(cmd.String("provider"))
	if err != nil {
		return err
	}

	log, err := logger.NewLogger()
	if err != nil {
		return err
	}

	store, err := openStore(cmd.String("db"), log)
	if err != nil {
		return err
	}
	defer store.Close()

	chunks := int(end.Sub(start)/downloadChunk) + 1
	progress := progressbar.NewOptions(chunks,
		progressbar.OptionSetDescription(fmt.Sprintf("Downloading %s", symbol)),
		progressbar.OptionShowCount())

	total := 0

	for chunkStart := start; chunkStart.Before(end); chunkStart = chunkStart.Add(downloadChunk) {
		chunkEnd := chunkStart.Add(downloadChunk)
		if chunkEnd.After(end) {
			chunkEnd = end
		}

		bars, err := provider.Range(ctx, symbol, timeframe, chunkStart, chunkEnd)
		if err != nil {
			return err
		}

		if err := store.SaveBars(symbol, timeframe, bars); err != nil {
			return err
		}

		total += len(bars)
		progress.Add(1)
	}

	progress.Finish()
	fmt.Printf("\nDownloaded %d bars for %s (%s)\n", total, symbol, timeframe)

	return nil
}

func newHistoricalProvider(name string) (feed.HistoricalProvider, error) {
	switch name {
	case "binance":
		return feed.NewBinanceHistoricalProvider(), nil
	case "polygon":
		return feed.NewPolygonHistoricalProvider(os.Getenv("POLYGON_API_KEY"))
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported provider %q", name)
	}
}
