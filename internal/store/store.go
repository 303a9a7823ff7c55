// Package store provides SQLite-backed persistence for Orbit's cache records.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fentz26/orbit/internal/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store provides access to the Orbit cache database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// WAL lets the TUI read while a run is writing.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS target_states (
		target TEXT PRIMARY KEY,
		hash TEXT NOT NULL DEFAULT '',
		exit_code INTEGER NOT NULL DEFAULT 0,
		stdout TEXT NOT NULL DEFAULT '',
		stderr TEXT NOT NULL DEFAULT '',
		last_run_time INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS workspace_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		last_node_install_time INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		target TEXT NOT NULL,
		attempt INTEGER NOT NULL,
		command TEXT NOT NULL,
		args TEXT,
		exit_code INTEGER,
		stdout TEXT,
		stderr TEXT,
		started_at DATETIME NOT NULL,
		ended_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS pdr (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		outcome TEXT NOT NULL,
		target TEXT,
		details TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_target ON runs(target);
	CREATE INDEX IF NOT EXISTS idx_pdr_target ON pdr(target);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Target State Operations ---

// LoadTargetState returns the cache record for a target. A target that has
// never run gets an empty record; it is not persisted until saved.
func (s *Store) LoadTargetState(target string) (*models.TargetState, error) {
	state := &models.TargetState{Target: target}
	err := s.db.QueryRow(
		`SELECT hash, exit_code, stdout, stderr, last_run_time FROM target_states WHERE target = ?`,
		target,
	).Scan(&state.Hash, &state.ExitCode, &state.Stdout, &state.Stderr, &state.LastRunTime)

	if errors.Is(err, sql.ErrNoRows) {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query target state: %w", err)
	}
	return state, nil
}

// SaveTargetState inserts or overwrites a target's cache record.
func (s *Store) SaveTargetState(state *models.TargetState) error {
	if state == nil || state.Target == "" {
		return fmt.Errorf("target state requires a target")
	}
	_, err := s.db.Exec(
		`INSERT INTO target_states (target, hash, exit_code, stdout, stderr, last_run_time)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(target) DO UPDATE SET
			hash = excluded.hash,
			exit_code = excluded.exit_code,
			stdout = excluded.stdout,
			stderr = excluded.stderr,
			last_run_time = excluded.last_run_time`,
		state.Target, state.Hash, state.ExitCode, state.Stdout, state.Stderr, state.LastRunTime,
	)
	if err != nil {
		return fmt.Errorf("save target state: %w", err)
	}
	return nil
}

// ListTargetStates returns every persisted target record, most recent first.
func (s *Store) ListTargetStates() ([]models.TargetState, error) {
	rows, err := s.db.Query(
		`SELECT target, hash, exit_code, stdout, stderr, last_run_time FROM target_states ORDER BY last_run_time DESC, target ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query target states: %w", err)
	}
	defer rows.Close()

	var states []models.TargetState
	for rows.Next() {
		var st models.TargetState
		if err := rows.Scan(&st.Target, &st.Hash, &st.ExitCode, &st.Stdout, &st.Stderr, &st.LastRunTime); err != nil {
			return nil, fmt.Errorf("scan target state: %w", err)
		}
		states = append(states, st)
	}
	return states, rows.Err()
}

// --- Workspace State Operations ---

// LoadWorkspaceState returns the workspace install record, zero-valued if
// dependencies were never installed.
func (s *Store) LoadWorkspaceState() (*models.WorkspaceState, error) {
	state := &models.WorkspaceState{}
	err := s.db.QueryRow(`SELECT last_node_install_time FROM workspace_state WHERE id = 1`).
		Scan(&state.LastNodeInstallTime)
	if errors.Is(err, sql.ErrNoRows) {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query workspace state: %w", err)
	}
	return state, nil
}

// SaveWorkspaceState persists the workspace install record.
func (s *Store) SaveWorkspaceState(state *models.WorkspaceState) error {
	_, err := s.db.Exec(
		`INSERT INTO workspace_state (id, last_node_install_time) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET last_node_install_time = excluded.last_node_install_time`,
		state.LastNodeInstallTime,
	)
	if err != nil {
		return fmt.Errorf("save workspace state: %w", err)
	}
	return nil
}

// --- Run Operations ---

// CreateRun inserts a new attempt record.
func (s *Store) CreateRun(target string, attempt int, command string, args []string) (*models.Run, error) {
	now := time.Now().UTC()
	argsJSON, _ := json.Marshal(args)

	run := &models.Run{
		ID:        uuid.New().String(),
		Target:    target,
		Attempt:   attempt,
		Command:   command,
		Args:      args,
		StartedAt: now,
	}

	_, err := s.db.Exec(
		`INSERT INTO runs (id, target, attempt, command, args, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Target, run.Attempt, run.Command, string(argsJSON), run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// UpdateRun updates an attempt with its results.
func (s *Store) UpdateRun(id string, exitCode int, stdout, stderr string) error {
	_, err := s.db.Exec(
		`UPDATE runs SET exit_code = ?, stdout = ?, stderr = ?, ended_at = ? WHERE id = ?`,
		exitCode, stdout, stderr, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// GetRunsForTarget returns all attempts for a target, newest first.
func (s *Store) GetRunsForTarget(target string) ([]models.Run, error) {
	rows, err := s.db.Query(
		`SELECT id, target, attempt, command, args, exit_code, stdout, stderr, started_at, ended_at
		 FROM runs WHERE target = ? ORDER BY started_at DESC, attempt DESC`,
		target,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		var run models.Run
		var argsJSON sql.NullString
		var endedAt sql.NullTime
		var exitCode sql.NullInt64
		var stdout, stderr sql.NullString

		if err := rows.Scan(&run.ID, &run.Target, &run.Attempt, &run.Command, &argsJSON, &exitCode, &stdout, &stderr, &run.StartedAt, &endedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}

		if argsJSON.Valid && argsJSON.String != "" {
			json.Unmarshal([]byte(argsJSON.String), &run.Args)
		}
		if exitCode.Valid {
			run.ExitCode = int(exitCode.Int64)
		}
		if stdout.Valid {
			run.Stdout = stdout.String
		}
		if stderr.Valid {
			run.Stderr = stderr.String
		}
		if endedAt.Valid {
			run.EndedAt = endedAt.Time
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// --- PDR Operations ---

// WritePDR writes a Process Decision Record.
func (s *Store) WritePDR(action, inputsHash, outcome, target, details string) (*models.PDREntry, error) {
	now := time.Now().UTC()
	pdr := &models.PDREntry{
		ID:         uuid.New().String(),
		Action:     action,
		InputsHash: inputsHash,
		Outcome:    outcome,
		Target:     target,
		Details:    details,
		Timestamp:  now,
	}

	_, err := s.db.Exec(
		`INSERT INTO pdr (id, action, inputs_hash, outcome, target, details, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		pdr.ID, pdr.Action, pdr.InputsHash, pdr.Outcome, pdr.Target, pdr.Details, pdr.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert pdr: %w", err)
	}
	return pdr, nil
}

// ListPDR returns decision records, optionally filtered by target.
func (s *Store) ListPDR(target string) ([]models.PDREntry, error) {
	query := `SELECT id, action, inputs_hash, outcome, target, details, timestamp FROM pdr`
	var args []interface{}
	if target != "" {
		query += ` WHERE target = ?`
		args = append(args, target)
	}
	query += ` ORDER BY timestamp ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pdr: %w", err)
	}
	defer rows.Close()

	var entries []models.PDREntry
	for rows.Next() {
		var e models.PDREntry
		var tgt, details sql.NullString
		if err := rows.Scan(&e.ID, &e.Action, &e.InputsHash, &e.Outcome, &tgt, &details, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan pdr: %w", err)
		}
		e.Target = tgt.String
		e.Details = details.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
