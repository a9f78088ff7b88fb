package pipeline

import (
	"context"
	"fmt"

	"github.com/procudo/contract-cli/internal/inventory"
	"github.com/procudo/contract-cli/internal/runstate"
)

// Setup scans the source tree, classifies every file and persists the
// inventory. Rerunning replaces the inventory whole.
func (p *Pipeline) Setup(ctx context.Context) error {
	return p.runPhase(ctx, runstate.PhaseSetup, func(ctx context.Context, runID string) (string, int, error) {
		inv, err := inventory.Scan(p.cfg.Paths.Source)
		if err != nil {
			return "", 0, err
		}
		if err := inventory.Save(inv, p.cfg.InventoryPath()); err != nil {
			return "", 0, err
		}

		extractable := 0
		flagged := 0
		for _, c := range inv.Clients {
			if c.Extractable() {
				extractable++
			}
			if len(c.Flags) > 0 {
				flagged++
			}
			p.recordClient(ctx, runID, runstate.PhaseSetup, c.ClientID, string(c.Status), "")
		}
		detail := fmt.Sprintf("%d clients, %d extractable, %d flagged",
			len(inv.Clients), extractable, flagged)
		return detail, 0, nil
	})
}
