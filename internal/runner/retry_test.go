package runner

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/fentz26/orbit/internal/connectors"
)

func scripted(exitCodes ...int) (ExecFunc, *int) {
	calls := 0
	return func(ctx context.Context, attempt int) (*connectors.ExecResult, error) {
		calls++
		code := exitCodes[len(exitCodes)-1]
		if attempt <= len(exitCodes) {
			code = exitCodes[attempt-1]
		}
		return &connectors.ExecResult{Command: "task", ExitCode: code}, nil
	}, &calls
}

func TestRetryLoop(t *testing.T) {
	tests := []struct {
		name       string
		retryCount int
		exitCodes  []int
		wantState  State
		wantCalls  int
		wantErr    bool
	}{
		{"first attempt passes", 0, []int{0}, StateSucceeded, 1, false},
		{"no retries fails", 0, []int{1}, StateFailedTerminal, 1, true},
		{"passes on third attempt", 2, []int{1, 1, 0}, StateSucceeded, 3, false},
		{"exhausts two attempts", 1, []int{1, 1}, StateFailedTerminal, 2, true},
		{"stops at first success", 5, []int{2, 0}, StateSucceeded, 2, false},
		{"negative count runs once", -3, []int{1}, StateFailedTerminal, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec, calls := scripted(tt.exitCodes...)
			loop := NewRetryLoop(tt.retryCount)
			if loop.State() != StatePending {
				t.Fatalf("expected pending, got %s", loop.State())
			}

			result, err := loop.Run(context.Background(), exec)

			if *calls != tt.wantCalls || loop.Attempts() != tt.wantCalls {
				t.Errorf("expected %d attempts, got %d calls / %d attempts", tt.wantCalls, *calls, loop.Attempts())
			}
			if loop.State() != tt.wantState {
				t.Errorf("expected state %s, got %s", tt.wantState, loop.State())
			}
			if result == nil {
				t.Fatal("expected the last result to be returned")
			}
			if tt.wantErr {
				var outErr *connectors.OutputError
				if !errors.As(err, &outErr) {
					t.Fatalf("expected OutputError, got %v", err)
				}
				if outErr.Result.ExitCode == 0 {
					t.Error("expected non-zero exit code to be surfaced")
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestRetryLoopLaunchFailureIsTerminal(t *testing.T) {
	calls := 0
	loop := NewRetryLoop(3)
	_, err := loop.Run(context.Background(), func(ctx context.Context, attempt int) (*connectors.ExecResult, error) {
		calls++
		return nil, connectors.ErrLaunch
	})

	if !errors.Is(err, connectors.ErrLaunch) {
		t.Errorf("expected launch error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("launch failures must not be retried, got %d calls", calls)
	}
	if loop.State() != StateFailedTerminal {
		t.Errorf("expected failed state, got %s", loop.State())
	}
}

func TestRetryLoopComplete(t *testing.T) {
	loop := NewRetryLoop(1)
	loop.attempt = 1
	if s := loop.Complete(&connectors.ExecResult{ExitCode: 1}); s != StateRetryPending {
		t.Errorf("expected retry-pending, got %s", s)
	}
	loop.attempt = 2
	if s := loop.Complete(&connectors.ExecResult{ExitCode: 1}); s != StateFailedTerminal {
		t.Errorf("expected failed, got %s", s)
	}
	if s := loop.Complete(&connectors.ExecResult{ExitCode: 0}); s != StateSucceeded {
		t.Errorf("expected succeeded, got %s", s)
	}
}

func TestShouldStream(t *testing.T) {
	for _, key := range ciEnvVars {
		t.Setenv(key, "")
	}
	t.Setenv(TestHarnessEnv, "1")

	if !ShouldStream(true) {
		t.Error("primary target must stream")
	}
	if ShouldStream(false) {
		t.Error("non-primary targets are captured outside CI")
	}

	t.Setenv("CI", "true")
	if ShouldStream(false) {
		t.Error("test harness disables CI streaming")
	}
	if !IsCI() {
		t.Error("expected CI to be detected")
	}

	// t.Setenv above restores the marker on cleanup.
	os.Unsetenv(TestHarnessEnv)
	if !ShouldStream(false) {
		t.Error("every target streams in CI")
	}
}
