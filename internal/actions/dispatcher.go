// Package actions dispatches planned action nodes to the gate that handles
// them.
package actions

import (
	"context"
	"log"
	"time"

	"github.com/fentz26/orbit/internal/models"
	"github.com/fentz26/orbit/internal/runner"
	"github.com/fentz26/orbit/internal/workspace"
)

// TargetRunner is the cache gate.
type TargetRunner interface {
	RunTarget(ctx context.Context, targetID string) (*runner.Result, error)
}

// DepsInstaller is the install gate.
type DepsInstaller interface {
	EnsureInstalled(ctx context.Context, shared *workspace.Shared) (bool, error)
}

// Dispatcher turns action nodes into completed actions.
type Dispatcher struct {
	runner    TargetRunner
	installer DepsInstaller
	shared    *workspace.Shared
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(r TargetRunner, i DepsInstaller, shared *workspace.Shared) *Dispatcher {
	return &Dispatcher{runner: r, installer: i, shared: shared}
}

// Execute runs node and reports its outcome. It never returns nil.
func (d *Dispatcher) Execute(ctx context.Context, node models.ActionNode) *models.Action {
	action := &models.Action{Node: node}
	start := time.Now()

	switch n := node.(type) {
	case models.RunTargetNode:
		result, err := d.runner.RunTarget(ctx, n.Target)
		if err != nil {
			action.Status = models.ActionStatusFailed
			action.Error = err
		} else {
			action.Status = result.Status
		}
		if result != nil {
			action.Attempts = result.Attempts
		}
		if action.Status == models.ActionStatusCached {
			// replayed output took no task time
			return action
		}

	case models.InstallDepsNode:
		installed, err := d.installer.EnsureInstalled(ctx, d.shared)
		switch {
		case err != nil:
			action.Status = models.ActionStatusFailed
			action.Error = err
		case installed:
			action.Status = models.ActionStatusPassed
		default:
			action.Status = models.ActionStatusCached
		}

	default:
		log.Printf("[actions] nothing to do for %s", node.Label())
		action.Status = models.ActionStatusSkipped
		return action
	}

	elapsed := time.Since(start)
	action.Duration = &elapsed
	if action.Error != nil {
		log.Printf("[actions] %s failed: %v", node.Label(), action.Error)
	}
	return action
}
