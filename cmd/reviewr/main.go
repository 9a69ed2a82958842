package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/robby/reviewr/internal/auth"
	"github.com/robby/reviewr/internal/config"
	"github.com/robby/reviewr/internal/logging"
	"github.com/robby/reviewr/internal/platform"
	"github.com/spf13/cobra"
)

var (
	// CLI flags
	dataPathFlag string
	verboseFlag  bool
	daysFlag     int
)

// env holds what every subcommand needs, built before it runs.
type env struct {
	dataDir  string
	cfg      *config.Config
	logger   *slog.Logger
	registry *platform.Registry
	closer   io.Closer
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "reviewr",
		Short: "Activity across Gerrit, Jira, GitLab and GitHub in one terminal view",
		Long: `reviewr fetches a person's recent activity from every configured platform
concurrently and lets you browse it by platform and category.

Configuration lives in ~/.reviewr/config.toml. Secrets missing from the file
are read from REVIEWR_<PLATFORM>_TOKEN, the GitHub CLI (for github) and the
OS keychain (see 'reviewr credentials').`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataPathFlag, "data-path", "", "Data directory (default ~/.reviewr, or REVIEWR_DATA_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Log at debug level")

	rootCmd.AddCommand(
		newReviewCmd(),
		newFetchCmd(),
		newPlatformsCmd(),
		newCredentialsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads the config, opens the log and builds the registry.
func setup() (*env, error) {
	dir, err := config.DataDir(dataPathFlag)
	if err != nil {
		return nil, err
	}

	level := logging.ParseLevel(os.Getenv("REVIEWR_LOG_LEVEL"))
	if verboseFlag {
		level = slog.LevelDebug
	}
	logger, closer, err := logging.New(dir, level)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(dir)
	if err != nil {
		closer.Close()
		return nil, err
	}
	for _, key := range cfg.Unknown {
		logger.Warn("unknown config key", "key", key, "file", cfg.Path)
	}

	reg, err := config.BuildRegistry(cfg, config.BuildOptions{
		Secrets: auth.DefaultChain(nil),
		Logger:  logger,
	})
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("failed to set up platforms: %w", err)
	}

	return &env{dataDir: dir, cfg: cfg, logger: logger, registry: reg, closer: closer}, nil
}

// days is the --days flag, or the configured default when unset.
func (e *env) days() int {
	if daysFlag > 0 {
		return daysFlag
	}
	return e.cfg.UI.DefaultDays
}
