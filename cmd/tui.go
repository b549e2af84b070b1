package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tdx/internal/shared"
	"github.com/desertthunder/tdx/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive dashboard.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(shared.ExpandPath(r.config.Log.TUIFile))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	r.SetLogger(fileLogger)

	ctx, err = r.withSession(ctx)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, r.ctrl, ui.Options{Verify: cmd.Bool("verify")})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
