package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docparser/internal/async"
	"github.com/joseph-ayodele/docparser/internal/ingest"
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Process every supported file under a directory",
	Long: `Batch walks a directory, runs each PDF, image, spreadsheet, CSV or XML file
through the pipeline and prints per-file status as JSON. With --save each
result is stored in STORE_BACKEND.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := newOrchestrator(cfg)
		if err != nil {
			return err
		}

		var sink async.Sink
		if save, _ := cmd.Flags().GetBool("save"); save {
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			sink = store
		}

		exts, _ := cmd.Flags().GetStringSlice("ext")
		skipHidden, _ := cmd.Flags().GetBool("skip-hidden")
		workers, _ := cmd.Flags().GetInt("workers")
		results, stats, err := ingest.NewBatch(orch, sink, ingest.Options{
			Extensions:  exts,
			SkipHidden:  skipHidden,
			Concurrency: workers,
		}, logger).Directory(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "scanned=%d matched=%d succeeded=%d valid=%d failed=%d\n",
			stats.Scanned, stats.Matched, stats.Succeeded, stats.Valid, stats.Failed)
		return printJSON(cmd.OutOrStdout(), results)
	},
}

func init() {
	batchCmd.Flags().StringSlice("ext", nil, "only these extensions (default: every supported format)")
	batchCmd.Flags().Bool("skip-hidden", true, "skip dot files and directories")
	batchCmd.Flags().Int("workers", 2, "files processed concurrently")
	batchCmd.Flags().Bool("save", false, "store each result in STORE_BACKEND")
	rootCmd.AddCommand(batchCmd)
}
