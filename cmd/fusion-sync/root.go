package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fusion-sync/internal/config"
)

var (
	// Global flags
	cfgPath   string
	logLevel  string
	logFormat string
	globalCfg *config.Config
	logger    = slog.Default()

	// Set by commands that open adapters, closed after the command runs
	globalApp *app
)

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fusion-sync",
		Short: "Synchronise Oracle Fusion General Ledger data into APEX",
		Long: `fusion-sync extracts General Ledger data (journal batches, headers, lines,
chart of accounts and ledgers) from the Oracle Fusion REST API, maps it onto
the APEX schema and saves it through the APEX REST endpoints in FK-safe order.

Configuration is read from a YAML file and environment variables. Secrets such
as FUSION_PASSWORD and APEX_TOKEN are best supplied through the environment.`,
		Example: `  fusion-sync run
  fusion-sync run --entities batches,headers,lines --from 2024-01-01 --to 2024-01-31
  fusion-sync test-connection
  fusion-sync serve
  fusion-sync runs list --limit 5`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(logLevel, logFormat)

			// Skip config loading for commands that don't need it
			if shouldSkipConfig(cmd.Name()) {
				return nil
			}

			cfg, path, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			globalCfg = cfg

			// Flags win over the config file
			level, format := cfg.Logging.Level, cfg.Logging.Format
			if cmd.Flags().Changed("log-level") {
				level = logLevel
			}
			if cmd.Flags().Changed("log-format") {
				format = logFormat
			}
			setupLogging(level, format)

			logger.Debug("config loaded", "path", path)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeApp()
		},
	}

	// Add persistent flags
	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (auto-discovered if not specified)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text or json)")

	// Add subcommands
	cmd.AddCommand(
		newRunCmd(),
		newTestConnectionCmd(),
		newServeCmd(),
		newRunsCmd(),
		newTokenCmd(),
		newVersionCmd(),
	)

	return cmd
}

// loadConfig reads the config file, explicit or discovered, and applies
// environment overrides. Commands validate the sections they use.
func loadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		found, err := config.FindConfigFile()
		if err != nil {
			logger.Debug("config file not found, using defaults", "error", err)
		} else {
			path = found
		}
	}

	cfg := config.DefaultConfig()
	if path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// setupLogging initializes the slog logger
func setupLogging(levelName, format string) {
	var level slog.Level
	switch strings.ToLower(levelName) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// shouldSkipConfig checks if a command should skip config loading
func shouldSkipConfig(cmdName string) bool {
	skipConfigCmds := map[string]bool{
		"help":    true,
		"version": true,
	}
	return skipConfigCmds[cmdName]
}

func closeApp() {
	if globalApp != nil {
		globalApp.Close()
		globalApp = nil
	}
}
