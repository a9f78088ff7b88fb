package main

import (
	"github.com/spf13/cobra"

	"github.com/procudo/contract-cli/internal/pipeline"
	"github.com/procudo/contract-cli/internal/store"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Scan the contract source tree and build the inventory",
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger, err := store.Open(cfg.HistoryDBPath())
		if err != nil {
			return err
		}
		defer ledger.Close()

		return pipeline.New(cfg, ledger).Setup(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
