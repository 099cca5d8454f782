package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newhook/triage/internal/config"
	"github.com/newhook/triage/internal/logging"
	cosignal "github.com/newhook/triage/internal/signal"
)

var (
	// rootCtx holds the signal-cancellable context for the application
	rootCtx    context.Context
	rootCancel context.CancelFunc

	flagConfig   string
	flagStateDir string
	flagVerbose  bool

	// appConfig is loaded before any subcommand runs
	appConfig = &config.Config{}
)

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Find known problems in Minecraft launcher logs",
	Long: `triage scans a launcher log for known failure signatures and prints a short
explanation and fix for each one it recognizes.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		rootCtx, rootCancel = cosignal.WithCancel(context.Background())
		logging.Init(flagStateDir, flagVerbose)

		// config init creates the file, so it may not exist yet.
		cfg, err := loadConfig(cmd == configInitCmd)
		if err != nil {
			return err
		}
		appConfig = cfg
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if rootCancel != nil {
			rootCancel()
		}
		_ = logging.Close()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetContext returns the root context that is cancelled on SIGINT/SIGTERM.
func GetContext() context.Context {
	if rootCtx == nil {
		return context.Background()
	}
	return rootCtx
}

// loadConfig reads --config when given, otherwise the config in the state directory
// if there is one. A missing --config file is an error unless allowMissing is set.
func loadConfig(allowMissing bool) (*config.Config, error) {
	if flagConfig != "" {
		load := config.LoadConfig
		if allowMissing {
			load = config.LoadOrDefault
		}
		cfg, err := load(flagConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", flagConfig, err)
		}
		return cfg, nil
	}
	cfg, err := config.LoadOrDefault(config.DefaultPath(flagStateDir))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: <state-dir>/config.toml)")
	rootCmd.PersistentFlags().StringVar(&flagStateDir, "state-dir", config.StateDir, "directory for config, catalog overrides and debug log")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "also print debug logs to stderr")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(configCmd)
}
