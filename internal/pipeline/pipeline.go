// Package pipeline orchestrates the three phases of an update cycle. Each
// phase acquires the concurrency guard, reconciles stale state, runs under
// the run state machine and appends its transitions to the audit ledger.
package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/procudo/contract-cli/internal/config"
	"github.com/procudo/contract-cli/internal/lockfile"
	"github.com/procudo/contract-cli/internal/runstate"
	"github.com/procudo/contract-cli/internal/store"
)

// Pipeline carries the shared collaborators of all phases. ledger may be nil
// (extraction tests, dry runs against a read-only workdir); audit writes are
// then skipped.
type Pipeline struct {
	cfg    *config.Config
	ledger *store.Ledger
	now    func() time.Time
}

// New assembles a pipeline.
func New(cfg *config.Config, ledger *store.Ledger) *Pipeline {
	return &Pipeline{cfg: cfg, ledger: ledger, now: time.Now}
}

// phaseFunc runs a phase's body and reports a human-readable detail line and
// the count of per-client partial failures.
type phaseFunc func(ctx context.Context, runID string) (detail string, failedItems int, err error)

// runPhase wraps a phase body in the lock, the state machine and the ledger.
func (p *Pipeline) runPhase(ctx context.Context, name string, fn phaseFunc) error {
	guard := lockfile.New(p.cfg.LockPath())
	if err := guard.Acquire(); err != nil {
		return err
	}
	defer func() {
		if err := guard.Release(); err != nil {
			zap.L().Warn("pipeline: lock release", zap.Error(err))
		}
	}()

	runID := runstate.RunID(p.now())
	st, err := runstate.LoadOrCreate(p.cfg.Paths.WorkDir, runID)
	if err != nil {
		return err
	}

	// We hold the lock, so any phase still RUNNING belongs to a dead run.
	if err := st.ReconcileStale(false); err != nil {
		var stale *runstate.StalePhaseError
		if !errors.As(err, &stale) {
			return err
		}
		zap.L().Warn("pipeline: stale phases recovered, downstream phases need a reset",
			zap.Strings("phases", stale.Phases))
	}

	if err := st.Begin(name); err != nil {
		return err
	}
	p.recordPhase(ctx, runID, name, string(runstate.StatusRunning), "")

	detail, failed, err := fn(ctx, runID)
	if err != nil {
		if ferr := st.Fail(name, err.Error()); ferr != nil {
			zap.L().Error("pipeline: record phase failure", zap.Error(ferr))
		}
		p.recordPhase(ctx, runID, name, string(runstate.StatusFailed), err.Error())
		return err
	}

	if err := st.Complete(name, failed); err != nil {
		return err
	}
	p.recordPhase(ctx, runID, name, string(runstate.StatusCompleted), detail)
	return nil
}

func (p *Pipeline) recordPhase(ctx context.Context, runID, phase, status, detail string) {
	if p.ledger == nil {
		return
	}
	if err := p.ledger.RecordPhase(ctx, runID, phase, status, detail); err != nil {
		zap.L().Warn("pipeline: audit ledger write", zap.Error(err))
	}
}

func (p *Pipeline) recordClient(ctx context.Context, runID, phase, clientID, outcome, detail string) {
	if p.ledger == nil {
		return
	}
	if err := p.ledger.RecordClient(ctx, runID, phase, clientID, outcome, detail); err != nil {
		zap.L().Warn("pipeline: audit ledger write", zap.Error(err))
	}
}
