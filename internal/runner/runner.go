// Package runner implements the cache gate: it decides whether a target's
// previous result can be replayed and otherwise runs the target with retries,
// persists the outcome and publishes its outputs.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"strings"
	"time"

	"github.com/fentz26/orbit/internal/audit"
	"github.com/fentz26/orbit/internal/command"
	"github.com/fentz26/orbit/internal/connectors"
	"github.com/fentz26/orbit/internal/hasher"
	"github.com/fentz26/orbit/internal/models"
	"github.com/fentz26/orbit/internal/workspace"
)

// Hasher fingerprints a target. The second return value is the manifest the
// hash was derived from; it is persisted after a successful run.
type Hasher interface {
	Hash(ws *workspace.Workspace, project *models.Project, task *models.Task, passthrough []string) (string, interface{}, error)
}

// TargetFailedError is returned when every attempt of a target exited
// non-zero.
type TargetFailedError struct {
	Target   string
	ExitCode int
	Stdout   string
	Stderr   string
	Attempts int
	Err      error
}

func (e *TargetFailedError) Error() string {
	msg := fmt.Sprintf("target %s failed after %d attempt(s) with exit code %d", e.Target, e.Attempts, e.ExitCode)
	if out := strings.TrimSpace(e.Stderr); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *TargetFailedError) Unwrap() error { return e.Err }

// Result is the outcome of one gate invocation.
type Result struct {
	Status   models.ActionStatus
	Hash     string
	ExitCode int
	Attempts int
}

// Config wires a Runner's collaborators. Zero fields get defaults.
type Config struct {
	Connector connectors.Connector
	Assembler command.Assembler
	Hasher    Hasher
	Printer   *Printer
	Metrics   *Metrics
	PDR       *audit.PDRWriter
	// PrimaryTarget is the target the user asked for. Its output streams
	// live and it alone receives PassthroughArgs.
	PrimaryTarget   string
	PassthroughArgs []string
}

// Runner is the cache gate and result writer. It is safe for concurrent use
// by different targets.
type Runner struct {
	shared      *workspace.Shared
	conn        connectors.Connector
	assembler   command.Assembler
	hasher      Hasher
	printer     *Printer
	metrics     *Metrics
	pdr         *audit.PDRWriter
	primary     string
	passthrough []string
}

// New creates a runner over a shared workspace.
func New(shared *workspace.Shared, cfg Config) *Runner {
	r := &Runner{
		shared:      shared,
		conn:        cfg.Connector,
		assembler:   cfg.Assembler,
		hasher:      cfg.Hasher,
		printer:     cfg.Printer,
		metrics:     cfg.Metrics,
		pdr:         cfg.PDR,
		primary:     cfg.PrimaryTarget,
		passthrough: cfg.PassthroughArgs,
	}
	if r.assembler == nil {
		r.assembler = command.New(runtime.GOOS)
	}
	if r.hasher == nil {
		r.hasher = hasher.New()
	}
	if r.printer == nil {
		r.printer = NewPrinter(nil, nil)
	}
	return r
}

// RunTarget evaluates one target under the workspace read lock.
func (r *Runner) RunTarget(ctx context.Context, targetID string) (*Result, error) {
	var result *Result
	err := r.shared.Read(func(ws *workspace.Workspace) error {
		var err error
		result, err = r.runTarget(ctx, ws, targetID)
		return err
	})
	return result, err
}

func (r *Runner) runTarget(ctx context.Context, ws *workspace.Workspace, targetID string) (*Result, error) {
	log.Printf("[runner] running target %s", targetID)
	start := time.Now()

	project, task, err := ws.ResolveTarget(targetID)
	if err != nil {
		return nil, err
	}
	records := ws.Cache.Store

	state, err := records.LoadTargetState(task.Target)
	if err != nil {
		return nil, fmt.Errorf("load cache record of %s: %w", targetID, err)
	}

	isPrimary := task.Target == r.primary
	var passthrough []string
	if isPrimary {
		passthrough = r.passthrough
	}

	hash, manifest, err := r.hasher.Hash(ws, project, task, passthrough)
	if err != nil {
		return nil, fmt.Errorf("hash %s: %w", targetID, err)
	}
	log.Printf("[runner] generated hash %s for target %s", hasher.ShortHash(hash), targetID)

	if hash != "" && state.Hash == hash {
		r.printer.Label(task.Target, "(cached)", state.ExitCode != 0)
		r.printer.Output(state.Stderr, state.Stdout)
		r.pdr.Record(audit.ActionTargetCached, map[string]string{"target": task.Target, "hash": hash},
			audit.OutcomeSuccess, task.Target, "replayed cached output")
		r.metrics.observe(models.ActionStatusCached, time.Since(start))
		return &Result{Status: models.ActionStatusCached, Hash: hash, ExitCode: state.ExitCode}, nil
	}

	runfile, err := ws.Cache.CreateRunfile(project)
	if err != nil {
		return nil, err
	}
	cmd, err := r.assembler.Build(ws, project, task, passthrough)
	if err != nil {
		return nil, fmt.Errorf("build command for %s: %w", targetID, err)
	}
	cmd.MergeEnv(command.TargetEnv(ws, project, task, runfile))

	stream := ShouldStream(isPrimary)
	loop := NewRetryLoop(task.Options.RetryCount)
	output, err := loop.Run(ctx, func(ctx context.Context, attempt int) (*connectors.ExecResult, error) {
		return r.attempt(ctx, ws, task.Target, cmd, attempt, loop.MaxAttempts(), stream)
	})

	var outErr *connectors.OutputError
	if err != nil && !errors.As(err, &outErr) {
		r.pdr.Record(audit.ActionTargetRun, map[string]string{"target": task.Target, "hash": hash},
			audit.OutcomeFailure, task.Target, err.Error())
		r.metrics.observe(models.ActionStatusFailed, time.Since(start))
		return nil, fmt.Errorf("run %s: %w", targetID, err)
	}

	state.ExitCode = output.ExitCode
	state.Stdout = output.Stdout
	state.Stderr = output.Stderr
	state.LastRunTime = models.NowMillis()

	if outErr != nil {
		// Failures keep the record but never its hash, so an identical
		// rerun executes again instead of replaying the failure.
		state.Hash = ""
		if err := records.SaveTargetState(state); err != nil {
			return nil, err
		}
		r.pdr.Record(audit.ActionTargetRun, map[string]string{"target": task.Target, "hash": hash},
			audit.OutcomeFailure, task.Target, fmt.Sprintf("exit code %d after %d attempt(s)", output.ExitCode, loop.Attempts()))
		r.metrics.observe(models.ActionStatusFailed, time.Since(start))

		return &Result{Status: models.ActionStatusFailed, Hash: hash, ExitCode: output.ExitCode, Attempts: loop.Attempts()},
			&TargetFailedError{
				Target:   task.Target,
				ExitCode: output.ExitCode,
				Stdout:   output.Stdout,
				Stderr:   output.Stderr,
				Attempts: loop.Attempts(),
				Err:      outErr,
			}
	}

	for _, out := range task.OutputPaths {
		if err := ws.Cache.LinkTaskOutput(hash, project.Root, out); err != nil {
			return nil, err
		}
	}
	if err := ws.Cache.SaveHash(hash, manifest); err != nil {
		return nil, err
	}

	state.Hash = hash
	if err := records.SaveTargetState(state); err != nil {
		return nil, err
	}

	r.pdr.Record(audit.ActionTargetRun, map[string]string{"target": task.Target, "hash": hash},
		audit.OutcomeSuccess, task.Target, fmt.Sprintf("passed after %d attempt(s)", loop.Attempts()))
	r.metrics.observe(models.ActionStatusPassed, time.Since(start))

	return &Result{Status: models.ActionStatusPassed, Hash: hash, ExitCode: output.ExitCode, Attempts: loop.Attempts()}, nil
}

// attempt launches the command once and prints its label and output
// according to the output mode.
func (r *Runner) attempt(ctx context.Context, ws *workspace.Workspace, target string, cmd *connectors.Command, attempt, maxAttempts int, stream bool) (*connectors.ExecResult, error) {
	comment := ""
	if attempt > 1 {
		comment = fmt.Sprintf("(attempt %d of %d)", attempt, maxAttempts)
		log.Printf("[runner] target %s failed, running again with attempt %d", target, attempt)
	}

	run, err := ws.Cache.Store.CreateRun(target, attempt, cmd.Bin, cmd.Args)
	if err != nil {
		log.Printf("[runner] unable to record attempt %d of %s: %v", attempt, target, err)
	}

	if stream {
		// Streamed output may never end or may redraw the terminal, so the
		// label comes first.
		r.printer.Label(target, comment, false)
	}

	r.metrics.attempt()
	result, err := r.conn.Execute(ctx, cmd, stream)
	if err != nil {
		return nil, err
	}

	if run != nil {
		if err := ws.Cache.Store.UpdateRun(run.ID, result.ExitCode, result.Stdout, result.Stderr); err != nil {
			log.Printf("[runner] unable to record attempt %d of %s: %v", attempt, target, err)
		}
	}

	if stream {
		if !result.Success() {
			r.printer.Label(target, comment, true)
		}
	} else {
		r.printer.Captured(target, comment, !result.Success(), result.Stderr, result.Stdout)
	}
	return result, nil
}
