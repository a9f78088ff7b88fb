package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/procudo/contract-cli/internal/lockfile"
	"github.com/procudo/contract-cli/internal/runstate"
	"github.com/procudo/contract-cli/internal/store"
)

var resetRun string

var resetCmd = &cobra.Command{
	Use:   "reset <phase>",
	Short: "Reset a phase (and everything after it) back to PENDING",
	Long:  "Resets the named phase to PENDING. Later phases are reset too: their artifacts were derived from the reset phase's output.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		phase, err := phaseByName(args[0])
		if err != nil {
			return err
		}

		guard := lockfile.New(cfg.LockPath())
		if err := guard.Acquire(); err != nil {
			return err
		}
		defer guard.Release()

		runID := resetRun
		if runID == "" {
			runID = runstate.RunID(time.Now())
		}
		st, err := runstate.LoadOrCreate(cfg.Paths.WorkDir, runID)
		if err != nil {
			return err
		}
		if err := st.Reset(phase); err != nil {
			return err
		}

		ledger, err := store.Open(cfg.HistoryDBPath())
		if err != nil {
			return err
		}
		defer ledger.Close()
		if err := ledger.RecordPhase(cmd.Context(), runID, phase, "RESET", "manual reset, cascades downstream"); err != nil {
			return err
		}

		fmt.Printf("Run %s: %s reset to PENDING (downstream phases included)\n", runID, phase)
		return nil
	},
}

func phaseByName(name string) (string, error) {
	for _, p := range []string{runstate.PhaseSetup, runstate.PhaseExtraction, runstate.PhaseGeneration} {
		if strings.EqualFold(p, name) {
			return p, nil
		}
	}
	return "", eris.Errorf("unknown phase %q (expected Setup, Extraction or Generation)", name)
}

func init() {
	resetCmd.Flags().StringVar(&resetRun, "run", "", "run id (YYYY-MM), defaults to the current month")
	rootCmd.AddCommand(resetCmd)
}
