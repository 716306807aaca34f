package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docparser/constants"
	"github.com/joseph-ayodele/docparser/internal/document"
	"github.com/joseph-ayodele/docparser/internal/pipeline"
)

var validateCmd = &cobra.Command{
	Use:   "validate <document.json>",
	Short: "Check a canonical document's arithmetic and tax rules",
	Long: `Validate runs the consistency and tax checks on a canonical document JSON
file without calling the model, and prints the resulting status, issues and
suggestions. With --strict the command fails unless the document is valid.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var doc document.CanonicalDocument
		if err := json.Unmarshal(b, &doc); err != nil {
			return fmt.Errorf("decode %s: %w", args[0], err)
		}

		res := pipeline.New(nil, nil, pipeline.Options{}, logger).Revalidate(&doc, nil)
		if err := printJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
		if strict, _ := cmd.Flags().GetBool("strict"); strict && res.Status != constants.StatusValid {
			return fmt.Errorf("document is %s with %d issue(s)", res.Status, len(doc.Metadata.ValidationIssues))
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().Bool("strict", false, "exit non-zero unless the document is valid")
	rootCmd.AddCommand(validateCmd)
}
