package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/tdx/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	runner := NewRunner(RunnerOpts{Logger: logger})
	defer runner.Close()

	app := newApp(runner)

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		runner.Close()
		logger.Fatalf("application error: %v", err)
	}
}

// newApp builds the root command.
func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tdx",
		Usage:   "Manage your tasks from the terminal",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   shared.DefaultConfigPath(),
				Sources: cli.EnvVars(shared.EnvConfigPath),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Before:   r.Before,
		Commands: r.register(),
	}
}
