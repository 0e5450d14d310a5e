package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

const version = "0.1.0"

func main() {
	app := &cli.Command{
		Name:    "watchdog",
		Usage:   "Local telemetry backend with monitors, SLOs, synthetics and live tail",
		Version: version,
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			validateCommand(),
			decodeCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
