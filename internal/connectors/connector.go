// Package connectors defines how Orbit launches child processes.
package connectors

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrLaunch indicates the process could not be started at all (binary
// missing, permission denied). It is never retried.
var ErrLaunch = errors.New("failed to launch process")

// Command is the fully assembled invocation of a task.
type Command struct {
	Bin  string            `json:"bin"`
	Args []string          `json:"args"`
	Env  map[string]string `json:"env,omitempty"`
	Dir  string            `json:"dir"`
	// NoErrorOnFailure leaves non-zero exits for the caller to inspect
	// instead of returning an OutputError.
	NoErrorOnFailure bool `json:"-"`
}

// SetEnv sets a single environment variable on the command.
func (c *Command) SetEnv(key, value string) {
	if c.Env == nil {
		c.Env = make(map[string]string)
	}
	c.Env[key] = value
}

// MergeEnv copies env into the command's environment, overwriting existing keys.
func (c *Command) MergeEnv(env map[string]string) {
	for k, v := range env {
		c.SetEnv(k, v)
	}
}

// String renders the command line for logs.
func (c *Command) String() string {
	parts := append([]string{c.Bin}, c.Args...)
	return strings.Join(parts, " ")
}

// EnvList returns the environment as sorted KEY=VALUE pairs.
func (c *Command) EnvList() []string {
	list := make([]string, 0, len(c.Env))
	for k, v := range c.Env {
		list = append(list, k+"="+v)
	}
	sort.Strings(list)
	return list
}

// ExecResult holds the result of a completed process.
type ExecResult struct {
	Command  string   `json:"command"`
	Args     []string `json:"args"`
	ExitCode int      `json:"exit_code"`
	Stdout   string   `json:"stdout"`
	Stderr   string   `json:"stderr"`
}

// Success reports whether the process exited with status zero.
func (r *ExecResult) Success() bool {
	return r != nil && r.ExitCode == 0
}

// OutputError is returned for a non-zero exit when the command did not
// suppress failures.
type OutputError struct {
	Result *ExecResult
}

func (e *OutputError) Error() string {
	msg := strings.TrimSpace(e.Result.Stderr)
	if msg == "" {
		msg = strings.TrimSpace(e.Result.Stdout)
	}
	if msg == "" {
		return fmt.Sprintf("%s exited with code %d", e.Result.Command, e.Result.ExitCode)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Result.Command, e.Result.ExitCode, msg)
}

// Connector executes assembled commands.
type Connector interface {
	// Name returns the connector identifier.
	Name() string

	// Execute runs the command to completion and captures its output. When
	// stream is set, output is also forwarded live to the parent's standard
	// streams. A launch failure returns an error wrapping ErrLaunch.
	Execute(ctx context.Context, cmd *Command, stream bool) (*ExecResult, error)
}
