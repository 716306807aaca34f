// Package main is the entry point for the docparser CLI: the HTTP and gRPC
// server plus one-shot commands for processing, validating and OCR'ing files.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docparser/internal/common"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	cfg    *common.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "docparser",
	Short: "Extract, reconcile and validate financial documents",
	Long: `docparser turns invoices, receipts and credit notes (PDF, images, XLSX,
CSV, XML) into a canonical JSON document, reconciles amounts against the
printed text and validates arithmetic and tax rules, asking the model to
correct itself a bounded number of times.

Configuration comes from the environment; a .env file is loaded first.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if envFile != "" {
			cfg = common.LoadConfig(envFile)
		} else {
			cfg = common.LoadConfig()
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger = newLogger(cfg.Log, cmd.ErrOrStderr())
		slog.SetDefault(logger)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of docparser",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "docparser %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().String("env-file", "", "env file to load before reading the environment (default: .env)")
	rootCmd.AddCommand(versionCmd)
}

func newLogger(lc common.LogConfig, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch lc.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
