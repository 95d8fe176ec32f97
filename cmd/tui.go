package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/vibemix/internal/shared"
	"github.com/desertthunder/vibemix/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for playlist generation.
//
// Saving is offered only when the library can be opened and the Spotify user resolved.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/vibemix-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	engine, err := r.pipeline()
	if err != nil {
		return err
	}

	var library ui.Library
	userID, err := r.currentUser(ctx)
	if err != nil {
		r.logger.Warn("library disabled, could not resolve user", "error", err)
	} else if gateway, err := r.gateway(); err != nil {
		r.logger.Warn("library disabled", "error", err)
	} else {
		library = gateway
	}

	model := ui.NewModel(ctx, engine, library, userID)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
