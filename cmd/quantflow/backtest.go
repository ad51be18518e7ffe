package main

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/tehqua/QuantFlow/internal/config"
	"github.com/tehqua/QuantFlow/internal/datagen"
	"github.com/tehqua/QuantFlow/internal/engine"
	"github.com/tehqua/QuantFlow/internal/engine/barsource"
	"github.com/tehqua/QuantFlow/internal/feed"
	"github.com/tehqua/QuantFlow/internal/logger"
	"github.com/tehqua/QuantFlow/internal/persistence"
	"github.com/tehqua/QuantFlow/internal/strategy"
	"github.com/tehqua/QuantFlow/internal/types"
	"github.com/tehqua/QuantFlow/pkg/errors"
)

func backtestCommand() *cli.Command {
	return &cli.Command{
		Name:  "backtest",
		Usage: "Run a strategy over historical data",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Path to the backtest config YAML",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "Path to the result database",
				Value: "data/quantflow.db",
			},
		},
		Action: backtestAction,
	}
}

func backtestAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.LoadBacktestConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	log, err := logger.NewLogger()
	if err != nil {
		return err
	}

	strat, err := strategy.NewDefaultRegistry().Create(cfg.Strategy.Name, cfg.Strategy.Config)
	if err != nil {
		return err
	}

	bars, err := fetchBars(ctx, cfg)
	if err != nil {
		return err
	}

	if len(bars) == 0 {
		return errors.New(errors.ErrCodeDataNotFound, "no bars in the requested range")
	}

	progress := progressbar.NewOptions(len(bars),
		progressbar.OptionSetDescription(fmt.Sprintf("Backtesting %s", cfg.Engine.Symbol)),
		progressbar.OptionShowCount())
	onBarEnd := func(types.Bar, float64) {
		progress.Add(1)
	}

	result, runErr := engine.RunBacktest(ctx, cfg.Engine, strat, barsource.NewSeriesSource(bars), log,
		engine.WithCallbacks(engine.Callbacks{OnBarEnd: &onBarEnd}))

	progress.Finish()
	fmt.Println()

	if result != nil {
		if err := saveResult(cmd.String("db"), cfg.Output, result, log); err != nil {
			return err
		}

		printSummary(result)
	}

	return runErr
}

func fetchBars(ctx context.Context, cfg *config.BacktestConfig) ([]types.Bar, error) {
	switch cfg.Data.Provider {
	case config.ProviderSynthetic:
		generatorConfig := datagen.DefaultConfig()
		generatorConfig.Symbol = cfg.Engine.Symbol
		generatorConfig.Timeframe = cfg.Engine.Timeframe
		generatorConfig.Count = cfg.Data.Bars

		if !cfg.Data.Start.IsZero() {
			generatorConfig.StartTime = cfg.Data.Start
		}

		return datagen.NewGenerator(cfg.Data.Seed).Generate(generatorConfig), nil

	case config.ProviderBinance:
		provider := feed.NewBinanceHistoricalProvider()

		return provider.Range(ctx, cfg.Engine.Symbol, cfg.Engine.Timeframe, cfg.Data.Start, cfg.Data.End)

	case config.ProviderPolygon:
		provider, err := feed.NewPolygonHistoricalProvider(os.Getenv("POLYGON_API_KEY"))
		if err != nil {
			return nil, err
		}

		return provider.Range(ctx, cfg.Engine.Symbol, cfg.Engine.Timeframe, cfg.Data.Start, cfg.Data.End)

	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported data provider %q", cfg.Data.Provider)
	}
}

// openStore opens the local database and makes sure the built-in strategy
// templates are present.
func openStore(path string, log *logger.Logger) (*persistence.Store, error) {
	store, err := persistence.NewStore(path, log)
	if err != nil {
		return nil, err
	}

	if err := store.SeedTemplates(); err != nil {
		store.Close()

		return nil, err
	}

	return store, nil
}

func saveResult(dbPath, outputPath string, result *types.BacktestResult, log *logger.Logger) error {
	store, err := openStore(dbPath, log)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SaveResult(result); err != nil {
		return err
	}

	if outputPath != "" {
		if err := result.Write(outputPath); err != nil {
			return err
		}
	}

	return nil
}

func printSummary(result *types.BacktestResult) {
	fmt.Printf("Run %s finished with status %s\n", result.ID, result.Status)

	if result.Error != "" {
		fmt.Printf("Error: %s\n", result.Error)
	}

	fmt.Printf("Final equity:  %.2f (started at %.2f)\n", result.FinalEquity, result.StartingEquity)
	fmt.Printf("Total return:  %.2f%%\n", result.Metrics.TotalReturn)
	fmt.Printf("Trades:        %d (win rate %.1f%%)\n", result.Metrics.TotalTrades, result.Metrics.WinRate)
	fmt.Printf("Profit factor: %s\n", formatProfitFactor(result.Metrics.ProfitFactor))
	fmt.Printf("Max drawdown:  %.2f%%\n", result.Metrics.MaxDrawdown)
	fmt.Printf("Sharpe ratio:  %.2f (%s)\n", result.Metrics.SharpeRatio, result.Metrics.SharpeAnnualization)
}

func formatProfitFactor(profitFactor float64) string {
	if math.IsInf(profitFactor, 1) {
		return "inf (no losing trades)"
	}

	return fmt.Sprintf("%.2f", profitFactor)
}
