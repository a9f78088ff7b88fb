// Package runstate tracks phase progress for one execution cycle and
// recovers interrupted runs. The state document is persisted atomically after
// every transition; phases communicate only through it and the stores, never
// through shared memory.
package runstate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/procudo/contract-cli/internal/atomicio"
	"github.com/procudo/contract-cli/internal/model"
)

// Phase names, in their strict total order. A phase may only begin once every
// earlier phase is COMPLETED.
const (
	PhaseSetup      = "Setup"
	PhaseExtraction = "Extraction"
	PhaseGeneration = "Generation"
)

// phaseOrder maps each known phase to its position. Unknown names are a
// configuration error, never silently ignored.
var phaseOrder = map[string]int{
	PhaseSetup:      0,
	PhaseExtraction: 1,
	PhaseGeneration: 2,
}

// orderedPhases lists phases by position.
var orderedPhases = []string{PhaseSetup, PhaseExtraction, PhaseGeneration}

// Status of a single phase.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// InvalidTransitionError reports a begin/complete/fail call that the state
// machine forbids.
type InvalidTransitionError struct {
	Phase  string
	From   Status
	Action string
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("runstate: invalid transition: cannot %s phase %s (status %s): %s",
		e.Action, e.Phase, e.From, e.Reason)
}

// ConfigurationError reports an unknown phase name.
type ConfigurationError struct {
	Phase string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("runstate: unknown phase %q", e.Phase)
}

// StalePhaseError reports a phase found RUNNING with no live run owning it.
// It is surfaced for an explicit operator reset, never auto-resumed.
type StalePhaseError struct {
	RunID  string
	Phases []string
}

func (e *StalePhaseError) Error() string {
	return fmt.Sprintf("runstate: run %s has stale phases %v; partial output is untrusted, reset before rerunning",
		e.RunID, e.Phases)
}

// PhaseState holds one phase's progress.
type PhaseState struct {
	Status      Status     `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	FailedItems int        `json:"failed_items,omitempty"` // per-client partial failures
}

// State is the run-state document for one execution cycle.
type State struct {
	SchemaVersion int                    `json:"schema_version"`
	RunID         string                 `json:"run_id"`
	CreatedAt     time.Time              `json:"created_at"`
	Phases        map[string]*PhaseState `json:"phases"`

	path string
}

// RunID returns the time-bucketed id for an execution cycle: one cycle per
// month, matching the annual-update workflow's review window.
func RunID(now time.Time) string {
	return now.Format("2006-01")
}

// StatePath returns the state document path for a run under baseDir.
func StatePath(baseDir, runID string) string {
	return filepath.Join(baseDir, "runs", runID, "state.json")
}

// Load reads the state for runID under baseDir without writing anything.
// A run that never started surfaces os.ErrNotExist in the error chain.
func Load(baseDir, runID string) (*State, error) {
	path := StatePath(baseDir, runID)

	st := &State{path: path}
	if err := atomicio.ReadJSON(path, st); err != nil {
		return nil, err
	}
	if st.SchemaVersion != model.SchemaVersion {
		return nil, eris.Errorf("runstate: %s has schema version %d, want %d",
			path, st.SchemaVersion, model.SchemaVersion)
	}
	return st, nil
}

// LoadOrCreate loads the state for runID under baseDir, creating a fresh
// PENDING state when none exists yet.
func LoadOrCreate(baseDir, runID string) (*State, error) {
	st, err := Load(baseDir, runID)
	switch {
	case err == nil:
		return st, nil
	case errors.Is(err, os.ErrNotExist):
		st = &State{
			SchemaVersion: model.SchemaVersion,
			RunID:         runID,
			CreatedAt:     time.Now(),
			Phases:        map[string]*PhaseState{},
			path:          StatePath(baseDir, runID),
		}
		for _, name := range orderedPhases {
			st.Phases[name] = &PhaseState{Status: StatusPending}
		}
		if err := st.save(); err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, err
	}
}

func (s *State) save() error {
	return atomicio.WriteJSON(s.path, s)
}

func (s *State) phase(name string) (*PhaseState, error) {
	if _, ok := phaseOrder[name]; !ok {
		return nil, &ConfigurationError{Phase: name}
	}
	ps, ok := s.Phases[name]
	if !ok {
		ps = &PhaseState{Status: StatusPending}
		s.Phases[name] = ps
	}
	return ps, nil
}

// Begin transitions a phase to RUNNING. It fails when the phase is already
// RUNNING, or when any earlier phase is not COMPLETED.
func (s *State) Begin(name string) error {
	ps, err := s.phase(name)
	if err != nil {
		return err
	}
	if ps.Status == StatusRunning {
		return &InvalidTransitionError{Phase: name, From: ps.Status, Action: "begin",
			Reason: "phase is already running"}
	}
	for _, prior := range orderedPhases {
		if phaseOrder[prior] >= phaseOrder[name] {
			break
		}
		prev, err := s.phase(prior)
		if err != nil {
			return err
		}
		if prev.Status != StatusCompleted {
			return &InvalidTransitionError{Phase: name, From: ps.Status, Action: "begin",
				Reason: fmt.Sprintf("prerequisite phase %s is %s, not COMPLETED", prior, prev.Status)}
		}
	}

	now := time.Now()
	ps.Status = StatusRunning
	ps.StartedAt = &now
	ps.EndedAt = nil
	ps.Error = ""
	ps.FailedItems = 0

	zap.L().Info("runstate: phase started", zap.String("run", s.RunID), zap.String("phase", name))
	return s.save()
}

// Complete transitions a RUNNING phase to COMPLETED. failedItems records
// per-client partial failures that did not sink the phase.
func (s *State) Complete(name string, failedItems int) error {
	ps, err := s.phase(name)
	if err != nil {
		return err
	}
	if ps.Status != StatusRunning {
		return &InvalidTransitionError{Phase: name, From: ps.Status, Action: "complete",
			Reason: "only a RUNNING phase can complete"}
	}

	now := time.Now()
	ps.Status = StatusCompleted
	ps.EndedAt = &now
	ps.FailedItems = failedItems

	zap.L().Info("runstate: phase completed",
		zap.String("run", s.RunID),
		zap.String("phase", name),
		zap.Int("failed_items", failedItems),
	)
	return s.save()
}

// Fail transitions a RUNNING phase to FAILED with a reason.
func (s *State) Fail(name, reason string) error {
	ps, err := s.phase(name)
	if err != nil {
		return err
	}
	if ps.Status != StatusRunning {
		return &InvalidTransitionError{Phase: name, From: ps.Status, Action: "fail",
			Reason: "only a RUNNING phase can fail"}
	}

	now := time.Now()
	ps.Status = StatusFailed
	ps.EndedAt = &now
	ps.Error = reason

	zap.L().Warn("runstate: phase failed",
		zap.String("run", s.RunID),
		zap.String("phase", name),
		zap.String("reason", reason),
	)
	return s.save()
}

// Reset forces a phase back to PENDING and invalidates every phase ordered
// after it: their artifacts depend on the reset phase's output and are no
// longer trustworthy.
func (s *State) Reset(name string) error {
	idx, ok := phaseOrder[name]
	if !ok {
		return &ConfigurationError{Phase: name}
	}

	for _, p := range orderedPhases {
		if phaseOrder[p] < idx {
			continue
		}
		ps, err := s.phase(p)
		if err != nil {
			return err
		}
		*ps = PhaseState{Status: StatusPending}
	}

	zap.L().Info("runstate: phase reset (cascading downstream)",
		zap.String("run", s.RunID), zap.String("phase", name))
	return s.save()
}

// PhaseStatus returns the status of a phase.
func (s *State) PhaseStatus(name string) (Status, error) {
	ps, err := s.phase(name)
	if err != nil {
		return "", err
	}
	return ps.Status, nil
}

// ReconcileStale scans for phases left RUNNING by a dead run. lockHeld is the
// concurrency guard's probe result: when no process holds the lock, a RUNNING
// phase has no owner and is marked FAILED("stale") rather than resumed — its
// partial output cannot be trusted. Returns a StalePhaseError listing the
// affected phases, or nil when the state is clean.
func (s *State) ReconcileStale(lockHeld bool) error {
	if lockHeld {
		return nil
	}

	var stale []string
	now := time.Now()
	for _, name := range orderedPhases {
		ps := s.Phases[name]
		if ps == nil || ps.Status != StatusRunning {
			continue
		}
		ps.Status = StatusFailed
		ps.EndedAt = &now
		ps.Error = "stale: phase was RUNNING with no live run owning it"
		stale = append(stale, name)
	}

	if len(stale) == 0 {
		return nil
	}
	if err := s.save(); err != nil {
		return err
	}
	zap.L().Warn("runstate: recovered stale phases",
		zap.String("run", s.RunID), zap.Strings("phases", stale))
	return &StalePhaseError{RunID: s.RunID, Phases: stale}
}
