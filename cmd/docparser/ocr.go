package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr <file>",
	Short: "Run only the extraction stage and print the recovered text",
	Long: `OCR routes a file through the extractor (native PDF text, page OCR for
scanned PDFs, image OCR, spreadsheet or XML parsing) and prints the text.
With --json the full evidence is printed, including word boxes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		ex, err := newExtractor(cfg)
		if err != nil {
			return err
		}
		res, err := ex.Extract(cmd.Context(), content, filepath.Base(args[0]))
		if err != nil {
			return err
		}
		logger.Info("ocr.done", "source", res.SourceKind, "chars", len(res.Text), "boxes", len(res.BoundingBoxes))

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), res)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Text)
		return err
	},
}

func init() {
	ocrCmd.Flags().Bool("json", false, "print the full extraction result as JSON")
	rootCmd.AddCommand(ocrCmd)
}
