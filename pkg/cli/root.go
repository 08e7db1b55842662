package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/rewind/pkg/config"
)

const (
	// Version is the current version of rewind
	Version = "1.0.0"
)

// Config holds the global configuration for the rewind CLI
type Config struct {
	ConfigDir string
	Debug     bool

	// Settings are resolved from the config file in PersistentPreRunE.
	Settings config.Config
	Logger   *slog.Logger
}

// GlobalConfig is the shared configuration instance
var GlobalConfig = &Config{}

// NewRootCommand creates the root cobra command for rewind
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rewind",
		Short: "rewind - evaluate JavaScript files statement by statement",
		Long: `rewind evaluates every top-level statement of a JavaScript file in a sandbox,
annotates each one with its result, console output or error, and keeps a
navigable history of how every binding evolved.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Initialize configuration
			if err := initConfig(); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			// Setup logging
			GlobalConfig.Logger = newLogger(cmd.ErrOrStderr(), GlobalConfig.Debug)
			return nil
		},
	}

	// Persistent flags (available to all subcommands)
	cmd.PersistentFlags().BoolVar(&GlobalConfig.Debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&GlobalConfig.ConfigDir, "config-dir", "", "Configuration directory (default: ~/.rewind)")

	// Add subcommands
	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewCheckCommand())
	cmd.AddCommand(NewHistoryCommand())
	cmd.AddCommand(NewWatchCommand())

	return cmd
}

// newLogger returns a debug-level text logger on w, or a logger that drops
// everything when debug is off.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	if !debug {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// initConfig resolves the config directory, creates a default rewind.yaml
// there if none exists and loads the settings.
func initConfig() error {
	// Environment variable always takes priority (for testing)
	if envDir := os.Getenv(config.DirEnv); envDir != "" {
		GlobalConfig.ConfigDir = envDir
	} else if GlobalConfig.ConfigDir == "" {
		dir, err := config.Dir()
		if err != nil {
			return err
		}
		GlobalConfig.ConfigDir = dir
	}

	if err := config.WriteDefault(GlobalConfig.ConfigDir); err != nil {
		return err
	}

	settings, err := config.LoadDir(GlobalConfig.ConfigDir)
	if err != nil {
		return err
	}
	GlobalConfig.Settings = settings
	return nil
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}

// ExecuteContext runs the root command with ctx, which long-running
// commands such as watch use to stop.
func ExecuteContext(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
