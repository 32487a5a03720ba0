// Command heartrisk trains, evaluates and serves the explainable heart
// disease risk model.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/FlavioCFOliveira/HeartRisk/internal/config"
	"github.com/FlavioCFOliveira/HeartRisk/internal/log"
	"github.com/FlavioCFOliveira/HeartRisk/internal/pipeline"
)

var (
	envFile  string
	logFile  string
	logLevel string

	// cfg is loaded once before any subcommand runs.
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "heartrisk",
	Short: "Explainable heart disease risk prediction",
	Long: `Train a gradient boosted classifier on a cardiovascular dataset,
report its held-out metrics and serve an explainable risk assessment form.

Configuration is read from XAI_* environment variables, optionally
preloaded from a .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := log.Setup(log.Options{File: logFile, Level: logLevel, Sorted: true}); err != nil {
			return err
		}
		if err := config.LoadEnvFile(envFile); err != nil {
			return err
		}
		c, err := config.FromEnv()
		if err != nil {
			return err
		}
		cfg = c
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Load environment variables from this file if it exists")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to a rotated file instead of stderr (/dev/null to silence)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

// runPipeline trains with the loaded configuration until done or interrupted.
func runPipeline(ctx context.Context) (*pipeline.Result, error) {
	logger := log.WithFields(log.Fields{"seed": cfg.Seed})
	logger.WithField("config", cfg.String()).Debug("configuration loaded")
	res, err := pipeline.Run(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return res, nil
}

// signalContext derives a context from parent that is also cancelled on
// SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
