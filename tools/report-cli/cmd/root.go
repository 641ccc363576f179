package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nicholaszhao/uptime-report-pdf/packages/go/config"
	"github.com/nicholaszhao/uptime-report-pdf/packages/go/logging"
)

var (
	envFile  string
	logLevel string
	jsonLogs bool

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "report-cli",
	Short: "Publish and inspect monthly uptime reports",
	Long: `report-cli runs the uptime report publisher outside Lambda.

It reads the same environment variables as the Lambda functions, optionally
from a .env file, and can render periods locally, queue them for the worker,
list recorded runs, and check that the configured buckets exist.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load before reading configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Emit JSON logs instead of console output")

	rootCmd.AddCommand(renderCmd, enqueueCmd, runsCmd, checkBucketsCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	// A missing default .env is fine; an explicitly named one must exist
	if err := godotenv.Load(envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("env-file") {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	level := logLevel
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	logging.InitWithWriter(os.Stderr, level)
	if !jsonLogs {
		logging.Console(os.Stderr)
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}
	log.Debug().Str("backend", cfg.StorageBackend).Msg("Configuration loaded")
	return nil
}
