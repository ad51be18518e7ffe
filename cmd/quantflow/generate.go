package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v2"

	"github.com/tehqua/QuantFlow/internal/config"
	"github.com/tehqua/QuantFlow/internal/engine"
	"github.com/tehqua/QuantFlow/internal/types"
	"github.com/tehqua/QuantFlow/pkg/errors"
)

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Generate config JSON schemas and sample config files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory",
				Value:   "config",
			},
		},
		Action: generateAction,
	}
}

func generateAction(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.String("output")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to create output directory", err)
	}

	backtestSchema, err := config.BacktestConfigSchema()
	if err != nil {
		return err
	}

	liveSchema, err := config.LiveConfigSchema()
	if err != nil {
		return err
	}

	if err := writeSchemaAndSample(dir, "backtest-config", backtestSchema, sampleBacktestConfig()); err != nil {
		return err
	}

	if err := writeSchemaAndSample(dir, "live-config", liveSchema, sampleLiveConfig()); err != nil {
		return err
	}

	fmt.Printf("Schemas and sample configs written to %s\n", dir)

	return nil
}

// writeSchemaAndSample writes <name>.json and, when it does not already
// exist, a <name>.yaml sample pointing at the schema for editor completion.
func writeSchemaAndSample(dir, name, schema string, sample any) error {
	schemaName := name + ".json"

	if err := os.WriteFile(filepath.Join(dir, schemaName), []byte(schema), 0644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to write schema", err)
	}

	samplePath := filepath.Join(dir, name+".yaml")
	if _, err := os.Stat(samplePath); err == nil {
		return nil
	}

	yamlBytes, err := yaml.Marshal(sample)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to marshal sample config", err)
	}

	yamlBytes = append([]byte("# yaml-language-server: $schema="+schemaName+"\n"), yamlBytes...)

	if err := os.WriteFile(samplePath, yamlBytes, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to write sample config", err)
	}

	return nil
}

func sampleBacktestConfig() config.BacktestConfig {
	return config.BacktestConfig{
		Engine: engine.Config{
			Symbol:         "BTCUSDT",
			Timeframe:      types.Timeframe1h,
			StartingEquity: 10000,
		},
		Strategy: config.StrategyConfig{
			Name:   "sma_crossover",
			Config: "fast_period: 10\nslow_period: 20\nquantity: 0.1\n",
		},
		Data: config.DataConfig{
			Provider: config.ProviderSynthetic,
			Seed:     1,
			Bars:     500,
		},
	}
}

func sampleLiveConfig() config.LiveConfig {
	return config.LiveConfig{
		Engine: engine.Config{
			Symbol:         "BTCUSDT",
			Timeframe:      types.Timeframe1m,
			StartingEquity: 10000,
			MaxHistoryBars: 1000,
		},
		Strategy: config.StrategyConfig{
			Name:   "sma_crossover",
			Config: "fast_period: 10\nslow_period: 20\nquantity: 0.1\n",
		},
		Mode: types.TradingModePaper,
	}
}
