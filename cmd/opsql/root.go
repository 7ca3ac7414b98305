package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomyedwab/opsql/config"
)

var (
	configPath string
	basePath   string
	workers    int
	logLevel   string
	logFormat  string
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "opsql",
	Short:         "Run JavaScript against SQLite databases",
	Long:          `opsql embeds a JavaScript runtime that opens SQLite databases through the global "opsql" object, and offers a few direct helpers for the same databases.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to a YAML configuration file")
	flags.StringVar(&basePath, "base-path", "", "Directory holding databases (overrides base_path)")
	flags.IntVar(&workers, "workers", 0, "Number of worker goroutines for async operations (overrides workers)")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides log_level)")
	flags.StringVar(&logFormat, "log-format", "", "Log format: text or json (overrides log_format)")

	rootCmd.AddCommand(runCmd, execCmd, pathCmd)
}

// loadSettings reads the configuration file and applies flag overrides.
func loadSettings(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("base-path") {
		cfg.BasePath = basePath
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}

	logger, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		return config.Config{}, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
