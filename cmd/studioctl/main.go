// Command studioctl runs maintenance and reporting tasks against the
// configured key-value store from the shell.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	runner := NewRunner(RunnerConfig{
		Logger: logger,
		Out:    os.Stdout,
	})

	app := &cli.Command{
		Name:     "studioctl",
		Usage:    "Inspect and maintain avatarstudio data",
		Version:  "1.0.0",
		Before:   runner.Open,
		After:    runner.Close,
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "studioctl: %v\n", err)
		os.Exit(1)
	}
}
