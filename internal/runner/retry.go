package runner

import (
	"context"
	"fmt"

	"github.com/fentz26/orbit/internal/connectors"
)

// State is a step of the retry state machine.
type State int

const (
	StatePending State = iota
	StateRunning
	StateSucceeded
	StateRetryPending
	StateFailedTerminal
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateRetryPending:
		return "retry-pending"
	case StateFailedTerminal:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ExecFunc runs one attempt. attempt starts at 1. An error means the process
// could not be launched; a non-zero exit is reported through the result.
type ExecFunc func(ctx context.Context, attempt int) (*connectors.ExecResult, error)

// RetryLoop drives up to retryCount+1 sequential attempts and stops at the
// first success.
type RetryLoop struct {
	maxAttempts int
	attempt     int
	state       State
}

// NewRetryLoop creates a loop for a task's retry count. Negative counts are
// treated as zero.
func NewRetryLoop(retryCount int) *RetryLoop {
	if retryCount < 0 {
		retryCount = 0
	}
	return &RetryLoop{maxAttempts: retryCount + 1, state: StatePending}
}

// MaxAttempts returns retryCount+1.
func (l *RetryLoop) MaxAttempts() int { return l.maxAttempts }

// Attempts returns how many attempts have been started.
func (l *RetryLoop) Attempts() int { return l.attempt }

// State returns the current state.
func (l *RetryLoop) State() State { return l.state }

// Complete records the result of the running attempt and returns the next
// state.
func (l *RetryLoop) Complete(result *connectors.ExecResult) State {
	switch {
	case result.Success():
		l.state = StateSucceeded
	case l.attempt < l.maxAttempts:
		l.state = StateRetryPending
	default:
		l.state = StateFailedTerminal
	}
	return l.state
}

// Run executes attempts until one succeeds or the attempts are exhausted.
// Exhaustion returns the last result together with a *connectors.OutputError.
// A launch error ends the loop immediately and is returned as is.
func (l *RetryLoop) Run(ctx context.Context, exec ExecFunc) (*connectors.ExecResult, error) {
	for {
		l.attempt++
		l.state = StateRunning

		result, err := exec(ctx, l.attempt)
		if err != nil {
			l.state = StateFailedTerminal
			return nil, err
		}

		switch l.Complete(result) {
		case StateSucceeded:
			return result, nil
		case StateFailedTerminal:
			return result, &connectors.OutputError{Result: result}
		}
	}
}
