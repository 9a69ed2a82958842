package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/robby/reviewr/internal/auth"
	"github.com/spf13/cobra"
)

func newCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage secrets stored in the OS keychain",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <platform-id>",
		Short: "Store a secret read from stdin",
		Example: `  echo "$TOKEN" | reviewr credentials set github
  reviewr credentials set gitlab:work`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(os.Stderr, "Secret for %s: ", args[0])
			secret, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && secret == "" {
				return fmt.Errorf("failed to read secret: %w", err)
			}
			if err := (auth.KeyringProvider{}).Store(args[0], strings.TrimSpace(secret)); err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr)
			fmt.Printf("Stored credential for %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <platform-id>",
		Short: "Remove a stored secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := (auth.KeyringProvider{}).Delete(args[0])
			if errors.Is(err, auth.ErrNoCredential) {
				fmt.Printf("No stored credential for %s\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("Deleted credential for %s\n", args[0])
			return nil
		},
	})

	return cmd
}
