// Package localexec runs commands as local child processes.
package localexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/fentz26/orbit/internal/connectors"
)

// LocalExec implements the Connector interface for local command execution.
type LocalExec struct {
	// Stdout and Stderr receive streamed output; they default to the
	// process's own standard streams.
	Stdout io.Writer
	Stderr io.Writer
}

// New creates a new LocalExec connector.
func New() *LocalExec {
	return &LocalExec{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Name returns the connector identifier.
func (l *LocalExec) Name() string {
	return "localexec"
}

// Execute runs the command and waits for it to exit. The child inherits the
// parent's environment with the command's variables layered on top.
func (l *LocalExec) Execute(ctx context.Context, cmd *connectors.Command, stream bool) (*connectors.ExecResult, error) {
	if cmd == nil || cmd.Bin == "" {
		return nil, fmt.Errorf("%w: empty command", connectors.ErrLaunch)
	}

	execCmd := exec.CommandContext(ctx, cmd.Bin, cmd.Args...)
	if cmd.Dir != "" {
		execCmd.Dir = cmd.Dir
	}
	execCmd.Env = append(os.Environ(), cmd.EnvList()...)

	var stdout, stderr bytes.Buffer
	if stream {
		execCmd.Stdout = io.MultiWriter(l.stdout(), &stdout)
		execCmd.Stderr = io.MultiWriter(l.stderr(), &stderr)
	} else {
		execCmd.Stdout = &stdout
		execCmd.Stderr = &stderr
	}

	err := execCmd.Run()

	exitCode := 0
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			exitCode = exitError.ExitCode()
		} else {
			return nil, fmt.Errorf("%w: %s: %v", connectors.ErrLaunch, cmd.Bin, err)
		}
	}

	result := &connectors.ExecResult{
		Command:  cmd.Bin,
		Args:     cmd.Args,
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	if exitCode != 0 && !cmd.NoErrorOnFailure {
		return result, &connectors.OutputError{Result: result}
	}
	return result, nil
}

func (l *LocalExec) stdout() io.Writer {
	if l.Stdout == nil {
		return os.Stdout
	}
	return l.Stdout
}

func (l *LocalExec) stderr() io.Writer {
	if l.Stderr == nil {
		return os.Stderr
	}
	return l.Stderr
}
