package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fentz26/orbit/internal/models"
)

// ErrActionFailed is returned when at least one action of a pipeline failed.
var ErrActionFailed = errors.New("pipeline has failed actions")

// Executor runs a single action node to completion.
type Executor interface {
	Execute(ctx context.Context, node models.ActionNode) *models.Action
}

// Result is the outcome of a pipeline.
type Result struct {
	Actions  []*models.Action
	Duration time.Duration
}

// Failed returns the actions that failed.
func (r *Result) Failed() []*models.Action {
	var failed []*models.Action
	for _, a := range r.Actions {
		if a.Status == models.ActionStatusFailed {
			failed = append(failed, a)
		}
	}
	return failed
}

// Scheduler runs planned batches on a bounded worker pool.
type Scheduler struct {
	exec   Executor
	config *Config
}

// New creates a new scheduler.
func New(exec Executor, cfg *Config) *Scheduler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Scheduler{exec: exec, config: cfg}
}

// completed carries an action from a worker back to the aggregator.
type completed struct {
	index  int
	action *models.Action
}

// Run executes batches in order. Actions within a batch run concurrently up
// to the configured limit. Once a batch has a failure, every remaining node
// is reported as skipped and ErrActionFailed is returned with the result.
func (s *Scheduler) Run(ctx context.Context, batches [][]models.ActionNode) (*Result, error) {
	start := time.Now()
	result := &Result{}
	failed := false

	for i, batch := range batches {
		if failed {
			for _, node := range batch {
				result.Actions = append(result.Actions, &models.Action{
					ID:     uuid.New().String(),
					Node:   node,
					Status: models.ActionStatusSkipped,
				})
			}
			continue
		}

		log.Printf("[scheduler] running batch %d with %d action(s)", i+1, len(batch))
		actions := s.runBatch(ctx, batch)
		for _, a := range actions {
			if a.Status == models.ActionStatusFailed {
				failed = true
			}
		}
		result.Actions = append(result.Actions, actions...)
	}

	result.Duration = time.Since(start)
	if failed {
		return result, fmt.Errorf("%w: %d failed", ErrActionFailed, len(result.Failed()))
	}
	return result, nil
}

// runBatch fans the batch out to the pool; workers only send completed
// actions and the aggregator alone writes the results.
func (s *Scheduler) runBatch(ctx context.Context, batch []models.ActionNode) []*models.Action {
	results := make(chan completed, len(batch))
	actions := make([]*models.Action, len(batch))

	aggregated := make(chan struct{})
	go func() {
		defer close(aggregated)
		for c := range results {
			actions[c.index] = c.action
		}
	}()

	var g errgroup.Group
	g.SetLimit(s.config.limit())
	for i, node := range batch {
		i, node := i, node
		g.Go(func() error {
			action := s.exec.Execute(ctx, node)
			if action.ID == "" {
				action.ID = uuid.New().String()
			}
			if action.Node == nil {
				action.Node = node
			}
			results <- completed{index: i, action: action}
			return nil
		})
	}
	_ = g.Wait()
	close(results)
	<-aggregated

	return actions
}
