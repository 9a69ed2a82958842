package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const healthTimeout = 15 * time.Second

func newPlatformsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List platforms and check their connections",
		Args:  cobra.NoArgs,
		RunE:  runPlatforms,
	}
}

func runPlatforms(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.closer.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), healthTimeout)
	defer cancel()

	for _, r := range e.registry.TestAll(ctx) {
		fmt.Printf("%s %-12s %-14s %s %s\n", r.Handle.Icon, r.Handle.Name, r.Handle.ID, r.Status.Icon(), r.Status)
	}
	return nil
}
