package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/tehqua/QuantFlow/internal/config"
	"github.com/tehqua/QuantFlow/internal/live"
	"github.com/tehqua/QuantFlow/internal/logger"
	"github.com/tehqua/QuantFlow/internal/strategy"
)

func liveCommand() *cli.Command {
	return &cli.Command{
		Name:  "live",
		Usage: "Run a live trading session with a terminal monitor",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Path to the live session config YAML",
				Required: true,
			},
		},
		Action: liveAction,
	}
}

func liveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.LoadLiveConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	strat, err := strategy.NewDefaultRegistry().Create(cfg.Strategy.Name, cfg.Strategy.Config)
	if err != nil {
		return err
	}

	// The monitor owns the terminal; zap output would tear it up, so the
	// controller logs only into its session ring.
	controller, err := live.NewController(cfg.Engine, strat, logger.NewNopLogger())
	if err != nil {
		return err
	}

	if err := controller.Start(ctx, cfg.Mode, cfg.ResolveCredentials()); err != nil {
		return err
	}

	program := tea.NewProgram(NewModel(controller), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		controller.Stop()

		return fmt.Errorf("monitor failed: %w", err)
	}

	controller.Stop()

	return nil
}
