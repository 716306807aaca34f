package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docparser/internal/export"
	"github.com/joseph-ayodele/docparser/internal/pipeline"
)

var processCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Run one file through extraction, normalization and validation",
	Long: `Process reads a PDF, image, spreadsheet, CSV or XML file and prints the
processing result as JSON. With --save the result is written to the configured
store; with --xlsx the canonical document is exported to a workbook.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if n, _ := cmd.Flags().GetInt("max-retries"); n > 0 {
			cfg.Pipeline.MaxRetries = n
		}
		orch, err := newOrchestrator(cfg)
		if err != nil {
			return err
		}

		res, err := orch.Process(cmd.Context(), pipeline.Request{
			Content:  content,
			Filename: filepath.Base(args[0]),
		})
		if err != nil {
			return err
		}

		if save, _ := cmd.Flags().GetBool("save"); save {
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Put(cmd.Context(), res); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "saved %s\n", res.DocumentID)
		}

		if out, _ := cmd.Flags().GetString("xlsx"); out != "" {
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := export.WriteXLSX(f, res); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	processCmd.Flags().Int("max-retries", 0, "override MAX_VALIDATION_RETRIES (clamped to 1..10)")
	processCmd.Flags().Bool("save", false, "store the result in STORE_BACKEND")
	processCmd.Flags().String("xlsx", "", "also export the result to this .xlsx path")
	rootCmd.AddCommand(processCmd)
}
