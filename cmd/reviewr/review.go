package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/robby/reviewr/internal/fetch"
	"github.com/robby/reviewr/internal/nav"
	"github.com/robby/reviewr/internal/tui"
	"github.com/spf13/cobra"
)

func newReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review <subject>",
		Short: "Fetch activity for subject and browse it interactively",
		Args:  cobra.ExactArgs(1),
		RunE:  runReview,
	}
	cmd.Flags().IntVarP(&daysFlag, "days", "d", 0, "Lookback window in days (default from config, 30)")
	return cmd
}

func runReview(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.closer.Close()

	subject, days := args[0], e.days()
	orch := fetch.New(fetch.WithLogger(e.logger))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Configuration errors are reported before the terminal is taken over.
	session, err := orch.Start(ctx, e.registry, subject, days)
	if errors.Is(err, fetch.ErrNoConfiguredPlatforms) {
		return fmt.Errorf("%w\n\nAdd a platform to %s/config.toml or run 'reviewr platforms'", err, e.dataDir)
	}
	if err != nil {
		return err
	}

	machine := nav.New(e.registry, session.Platforms)
	app := tui.NewAppModel(ctx, machine, session, tui.WithRefresh(func(ctx context.Context) (*fetch.Session, error) {
		return orch.Start(ctx, e.registry, subject, days)
	}))

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("program error: %w", err)
	}
	return nil
}
