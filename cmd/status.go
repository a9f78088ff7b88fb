package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/procudo/contract-cli/internal/runstate"
	"github.com/procudo/contract-cli/internal/store"
)

var statusRun string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show run state and audit history",
	RunE: func(cmd *cobra.Command, args []string) error {
		runID := statusRun
		if runID == "" {
			runID = runstate.RunID(time.Now())
		}

		fmt.Printf("Run %s\n", runID)

		st, err := runstate.Load(cfg.Paths.WorkDir, runID)
		switch {
		case errors.Is(err, os.ErrNotExist):
			fmt.Println("  no phases started")
		case err != nil:
			return err
		default:
			for _, phase := range []string{runstate.PhaseSetup, runstate.PhaseExtraction, runstate.PhaseGeneration} {
				ps := st.Phases[phase]
				if ps == nil {
					continue
				}
				line := fmt.Sprintf("  %-12s %s", phase, ps.Status)
				if ps.FailedItems > 0 {
					line += fmt.Sprintf(" (%d client failures)", ps.FailedItems)
				}
				if ps.Error != "" {
					line += "  " + ps.Error
				}
				fmt.Println(line)
			}
		}

		ledger, err := store.Open(cfg.HistoryDBPath())
		if err != nil {
			return err
		}
		defer ledger.Close()

		events, err := ledger.PhaseHistory(cmd.Context(), runID)
		if err != nil {
			return err
		}
		if len(events) > 0 {
			fmt.Println("\nHistory:")
			for _, e := range events {
				line := fmt.Sprintf("  %s  %-12s %s", e.RecordedAt.Local().Format("02.01.2006 15:04"), e.Phase, e.Status)
				if e.Detail != "" {
					line += "  " + e.Detail
				}
				fmt.Println(line)
			}
		}

		outcomes, err := ledger.ClientHistory(cmd.Context(), runID)
		if err != nil {
			return err
		}
		if len(outcomes) > 0 {
			counts := map[string]int{}
			for _, o := range outcomes {
				counts[o.Phase+"/"+o.Outcome]++
			}
			fmt.Println("\nClient outcomes:")
			for key, n := range counts {
				fmt.Printf("  %-24s %d\n", key, n)
			}
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusRun, "run", "", "run id (YYYY-MM), defaults to the current month")
	rootCmd.AddCommand(statusCmd)
}
