package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docparser/internal/repository"
)

var dbhealthCmd = &cobra.Command{
	Use:   "dbhealth",
	Short: "Open the configured store and ping it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		timeout, _ := cmd.Flags().GetDuration("timeout")
		if err := repository.HealthCheck(cmd.Context(), store, timeout, logger); err != nil {
			return fmt.Errorf("store health (%s): FAIL: %w", cfg.Store.Backend, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "store health (%s): OK\n", cfg.Store.Backend)
		return nil
	},
}

func init() {
	dbhealthCmd.Flags().Duration("timeout", time.Second, "ping timeout")
	rootCmd.AddCommand(dbhealthCmd)
}
