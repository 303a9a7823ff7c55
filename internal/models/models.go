// Package models defines the core domain types for Orbit.
package models

import (
	"time"
)

// TaskType selects how a task's command is turned into a process.
type TaskType string

const (
	TaskTypeNode   TaskType = "node"
	TaskTypeSystem TaskType = "system"
)

// TaskOptions holds per-task execution options.
type TaskOptions struct {
	RetryCount           int  `json:"retry_count"`
	RunFromWorkspaceRoot bool `json:"run_from_workspace_root"`
}

// Task is the command, arguments, environment and options of a target.
type Task struct {
	ID          string            `json:"id"`
	Target      string            `json:"target"`
	Command     string            `json:"command"`
	Args        []string          `json:"args"`
	Env         map[string]string `json:"env,omitempty"`
	Type        TaskType          `json:"type"`
	Inputs      []string          `json:"inputs,omitempty"`
	OutputPaths []string          `json:"outputs,omitempty"`
	Deps        []string          `json:"deps,omitempty"`
	Options     TaskOptions       `json:"options"`
}

// Project is a directory in the workspace that owns tasks.
type Project struct {
	ID string `json:"id"`
	// Root is the absolute path of the project directory.
	Root string `json:"root"`
	// Source is the project path relative to the workspace root.
	Source string           `json:"source"`
	Tasks  map[string]*Task `json:"tasks"`
}

// GetTask returns the task with the given id, or nil.
func (p *Project) GetTask(id string) *Task {
	if p == nil {
		return nil
	}
	return p.Tasks[id]
}

// ActionStatus is the outcome of one scheduled action.
type ActionStatus string

const (
	ActionStatusPassed  ActionStatus = "passed"
	ActionStatusFailed  ActionStatus = "failed"
	ActionStatusCached  ActionStatus = "cached"
	ActionStatusSkipped ActionStatus = "skipped"
)

// Action is the completed result of one ActionNode.
type Action struct {
	ID     string       `json:"id"`
	Node   ActionNode   `json:"-"`
	Status ActionStatus `json:"status"`
	// Duration is nil when the action never ran (skipped).
	Duration *time.Duration `json:"duration,omitempty"`
	Attempts int            `json:"attempts,omitempty"`
	Error    error          `json:"-"`
}

// Label describes the action's node for summaries.
func (a *Action) Label() string {
	if a == nil || a.Node == nil {
		return "unknown"
	}
	return a.Node.Label()
}

// TargetState is the persisted cache record of a single target.
type TargetState struct {
	Target      string `json:"target"`
	Hash        string `json:"hash"`
	ExitCode    int    `json:"exit_code"`
	Stdout      string `json:"stdout"`
	Stderr      string `json:"stderr"`
	LastRunTime int64  `json:"last_run_time"`
}

// WorkspaceState is the persisted per-workspace install record.
type WorkspaceState struct {
	LastNodeInstallTime int64 `json:"last_node_install_time"`
}

// Run represents one execution attempt of a target.
type Run struct {
	ID        string    `json:"id"`
	Target    string    `json:"target"`
	Attempt   int       `json:"attempt"`
	Command   string    `json:"command"`
	Args      []string  `json:"args"`
	ExitCode  int       `json:"exit_code"`
	Stdout    string    `json:"stdout"`
	Stderr    string    `json:"stderr"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

// PDREntry represents a Process Decision Record for audit.
type PDREntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	Target     string    `json:"target,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NowMillis returns the current time as Unix milliseconds.
func NowMillis() int64 {
	return ToMillis(time.Now())
}

// ToMillis converts t to Unix milliseconds.
func ToMillis(t time.Time) int64 {
	return t.UnixMilli()
}
