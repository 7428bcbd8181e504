package main

import (
	"fmt"
	"os"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/simulation"
	"github.com/spf13/cobra"
	"github.com/tochemey/goakt/v3/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "flock",
		Short: "Boids flocking simulation",
		Long: `flock simulates a fixed population of boids steered by separation,
alignment, cohesion, boundary containment and an optional scout bias.

Run it in a window with 'flock view' or headless with 'flock run'.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "Configuration file (.json, .yaml or .yml); defaults when empty")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info or error")

	rootCmd.AddCommand(
		newRunCmd(),
		newViewCmd(),
		newConfigCmd(),
	)
	return rootCmd
}

// loadConfig reads --config, falling back to the defaults.
func loadConfig(cmd *cobra.Command) (*simulation.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return simulation.DefaultConfig(), nil
	}
	cfg, err := simulation.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return cfg, nil
}

// newLogger builds the logger selected by --log-level, writing to stderr.
func newLogger(cmd *cobra.Command) (log.Logger, error) {
	level, _ := cmd.Flags().GetString("log-level")
	switch level {
	case "debug":
		return log.New(log.DebugLevel, os.Stderr), nil
	case "info":
		return log.New(log.InfoLevel, os.Stderr), nil
	case "error":
		return log.New(log.ErrorLevel, os.Stderr), nil
	default:
		return nil, fmt.Errorf("unknown log level %q: use debug, info or error", level)
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Print the configuration selected by --config, or the defaults, as YAML.
The output is a valid configuration file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			b, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
}
