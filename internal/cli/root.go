package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"qrmatch/config"
	"qrmatch/internal/observability"
)

// Version is set at build time.
var Version = "dev"

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	logger  *slog.Logger
	tracer  *observability.TracerProvider
)

var rootCmd = &cobra.Command{
	Use:   "qrmatch",
	Short: "Register text as QR codes and find them again by meaning",
	Long: `qrmatch stores text under an id together with a QR code image and a
semantic fingerprint. Queries return the stored entry whose meaning is closest
to the prompt, provided it clears the similarity threshold.

Example usage:
  qrmatch serve                              # Start the HTTP API
  qrmatch encode --id intro --text "hello"   # Register one entry
  qrmatch query -q "greeting" --out qr.png   # Find the closest entry
  qrmatch import ./notes --include "**/*.md" # Register every file`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		_ = godotenv.Load()

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		logger, err = observability.NewLogger(cfg.Logging, os.Stderr)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)

		tracer, err = observability.InitTracing(cmd.Context(), cfg.Tracing, Version)
		if err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if tracer == nil {
			return nil
		}
		return tracer.Shutdown(context.Background())
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./qrmatch.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
