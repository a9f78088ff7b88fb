// Package store keeps the append-only run-history ledger: every phase
// transition and per-client extraction outcome, queryable by the status
// command. The ledger is an audit trail, never an input to pipeline
// decisions; those read only the persisted JSON documents.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Ledger is a sqlite-backed audit log.
type Ledger struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger database and applies the
// schema. WAL mode keeps the status command readable while a run writes.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrapf(err, "store: create ledger dir for %s", path)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "store: open ledger")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "store: exec %s", pragma)
		}
	}
	l := &Ledger{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS phase_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	phase       TEXT NOT NULL,
	status      TEXT NOT NULL,
	detail      TEXT,
	recorded_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS client_outcomes (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	phase       TEXT NOT NULL,
	client_id   TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	detail      TEXT,
	recorded_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_phase_events_run ON phase_events(run_id);
CREATE INDEX IF NOT EXISTS idx_client_outcomes_run ON client_outcomes(run_id);
CREATE INDEX IF NOT EXISTS idx_client_outcomes_client ON client_outcomes(client_id);
`

func (l *Ledger) migrate() error {
	_, err := l.db.Exec(migration)
	return eris.Wrap(err, "store: migrate ledger")
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// PhaseEvent is one recorded phase transition.
type PhaseEvent struct {
	RunID      string
	Phase      string
	Status     string
	Detail     string
	RecordedAt time.Time
}

// ClientOutcome is one recorded per-client result within a phase.
type ClientOutcome struct {
	RunID      string
	Phase      string
	ClientID   string
	Outcome    string
	Detail     string
	RecordedAt time.Time
}

// RecordPhase appends a phase transition.
func (l *Ledger) RecordPhase(ctx context.Context, runID, phase, status, detail string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO phase_events (run_id, phase, status, detail, recorded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		runID, phase, status, detail, time.Now().UTC())
	return eris.Wrapf(err, "store: record phase %s/%s", runID, phase)
}

// RecordClient appends a per-client outcome.
func (l *Ledger) RecordClient(ctx context.Context, runID, phase, clientID, outcome, detail string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO client_outcomes (run_id, phase, client_id, outcome, detail, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, phase, clientID, outcome, detail, time.Now().UTC())
	return eris.Wrapf(err, "store: record client %s/%s", runID, clientID)
}

// PhaseHistory returns every phase transition for a run, oldest first.
func (l *Ledger) PhaseHistory(ctx context.Context, runID string) ([]PhaseEvent, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT run_id, phase, status, COALESCE(detail, ''), recorded_at
		 FROM phase_events WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "store: phase history %s", runID)
	}
	defer rows.Close()

	var events []PhaseEvent
	for rows.Next() {
		var e PhaseEvent
		if err := rows.Scan(&e.RunID, &e.Phase, &e.Status, &e.Detail, &e.RecordedAt); err != nil {
			return nil, eris.Wrap(err, "store: scan phase event")
		}
		events = append(events, e)
	}
	return events, eris.Wrap(rows.Err(), "store: iterate phase events")
}

// ClientHistory returns every per-client outcome for a run, oldest first.
func (l *Ledger) ClientHistory(ctx context.Context, runID string) ([]ClientOutcome, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT run_id, phase, client_id, outcome, COALESCE(detail, ''), recorded_at
		 FROM client_outcomes WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "store: client history %s", runID)
	}
	defer rows.Close()

	var outcomes []ClientOutcome
	for rows.Next() {
		var o ClientOutcome
		if err := rows.Scan(&o.RunID, &o.Phase, &o.ClientID, &o.Outcome, &o.Detail, &o.RecordedAt); err != nil {
			return nil, eris.Wrap(err, "store: scan client outcome")
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, eris.Wrap(rows.Err(), "store: iterate client outcomes")
}

// RunIDs returns every run that has ledger entries, newest first.
func (l *Ledger) RunIDs(ctx context.Context) ([]string, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT DISTINCT run_id FROM phase_events ORDER BY run_id DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "store: list runs")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "store: scan run id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "store: iterate runs")
}
