// Command quantflow runs backtests, live trading sessions, config schema
// generation and historical data downloads from one binary.
package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "quantflow",
		Usage: "Strategy backtesting and live trading",
		Commands: []*cli.Command{
			backtestCommand(),
			liveCommand(),
			downloadCommand(),
			generateCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
