package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/procudo/contract-cli/internal/inventory"
	"github.com/procudo/contract-cli/internal/model"
)

var inventoryVerbose bool

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Show the scanned client inventory",
	RunE: func(cmd *cobra.Command, args []string) error {
		inv, err := inventory.Load(cfg.InventoryPath())
		if err != nil {
			return err
		}

		counts := map[model.ClientStatus]int{}
		for _, c := range inv.Clients {
			counts[c.Status]++
		}
		fmt.Printf("Scanned %s at %s: %d clients\n",
			inv.SourceRoot, inv.ScannedAt.Format("02.01.2006 15:04"), len(inv.Clients))
		for _, status := range []model.ClientStatus{
			model.ClientOK, model.ClientFlagged, model.ClientTerminated,
			model.ClientNoContract, model.ClientEmpty,
		} {
			if counts[status] > 0 {
				fmt.Printf("  %-12s %d\n", status, counts[status])
			}
		}

		if !inventoryVerbose {
			return nil
		}
		for _, c := range inv.Clients {
			fmt.Printf("\n%s [%s]\n", c.FolderName, c.Status)
			if c.Chain != nil && c.Chain.LatestValidDocument != "" {
				fmt.Printf("  latest: %s\n", filepath.Base(c.Chain.LatestValidDocument))
			}
			for _, f := range c.Files {
				fmt.Printf("  %-20s %-10s %s\n", f.Status, f.DocType, f.Filename)
			}
			for _, flag := range c.Flags {
				fmt.Printf("  ! %s\n", flag)
			}
		}
		return nil
	},
}

func init() {
	inventoryCmd.Flags().BoolVar(&inventoryVerbose, "verbose", false, "list every file per client")
	rootCmd.AddCommand(inventoryCmd)
}
