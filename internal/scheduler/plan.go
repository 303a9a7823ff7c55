package scheduler

import (
	"errors"
	"fmt"
	"sort"

	"github.com/fentz26/orbit/internal/models"
)

// ErrCycle indicates task dependencies form a cycle.
var ErrCycle = errors.New("dependency cycle")

// Resolver looks up the task a target id refers to.
type Resolver interface {
	ResolveTarget(id string) (*models.Project, *models.Task, error)
}

// Plan expands the requested targets and their dependencies into batches.
// Every target in a batch only depends on targets of earlier batches.
// Dependency installation is always the first batch.
func Plan(r Resolver, targets []string) ([][]models.ActionNode, error) {
	deps := make(map[string][]string)

	var visit func(id string) error
	visit = func(id string) error {
		if _, seen := deps[id]; seen {
			return nil
		}
		_, task, err := r.ResolveTarget(id)
		if err != nil {
			return err
		}
		deps[id] = task.Deps
		for _, dep := range task.Deps {
			if err := visit(dep); err != nil {
				return fmt.Errorf("%s: %w", id, err)
			}
		}
		return nil
	}
	for _, id := range targets {
		if err := visit(id); err != nil {
			return nil, err
		}
	}

	batches := [][]models.ActionNode{{models.InstallDepsNode{}}}

	done := make(map[string]bool, len(deps))
	for len(done) < len(deps) {
		var ready []string
		for id, ds := range deps {
			if done[id] {
				continue
			}
			if allDone(ds, done) {
				ready = append(ready, id)
			}
		}
		if len(ready) == 0 {
			return nil, fmt.Errorf("%w between %v", ErrCycle, pending(deps, done))
		}
		sort.Strings(ready)

		batch := make([]models.ActionNode, len(ready))
		for i, id := range ready {
			batch[i] = models.RunTargetNode{Target: id}
		}
		for _, id := range ready {
			done[id] = true
		}
		batches = append(batches, batch)
	}
	return batches, nil
}

func allDone(ids []string, done map[string]bool) bool {
	for _, id := range ids {
		if !done[id] {
			return false
		}
	}
	return true
}

func pending(deps map[string][]string, done map[string]bool) []string {
	var ids []string
	for id := range deps {
		if !done[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
