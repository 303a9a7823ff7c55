package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fentz26/orbit/internal/models"
)

// countingExecutor records the peak number of concurrent executions.
type countingExecutor struct {
	mu     sync.Mutex
	active int
	peak   int
	total  int
}

func (c *countingExecutor) Execute(ctx context.Context, node models.ActionNode) *models.Action {
	c.mu.Lock()
	c.active++
	c.total++
	if c.active > c.peak {
		c.peak = c.active
	}
	c.mu.Unlock()

	time.Sleep(20 * time.Millisecond)

	c.mu.Lock()
	c.active--
	c.mu.Unlock()
	return &models.Action{Node: node, Status: models.ActionStatusPassed}
}

func TestParallelWorkersRespectLimit(t *testing.T) {
	tests := []struct {
		limit   int
		actions int
	}{
		{1, 5},
		{3, 10},
		{10, 10},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("limit %d", tt.limit), func(t *testing.T) {
			exec := &countingExecutor{}
			sch := New(exec, &Config{MaxConcurrency: tt.limit})

			batch := make([]models.ActionNode, tt.actions)
			for i := range batch {
				batch[i] = models.RunTargetNode{Target: fmt.Sprintf("p%d:build", i)}
			}

			result, err := sch.Run(context.Background(), [][]models.ActionNode{batch})
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if len(result.Actions) != tt.actions || exec.total != tt.actions {
				t.Errorf("expected %d actions, got %d results / %d executions", tt.actions, len(result.Actions), exec.total)
			}
			if exec.peak > tt.limit {
				t.Errorf("peak concurrency %d exceeds limit %d", exec.peak, tt.limit)
			}
			if tt.limit > 1 && exec.peak < 2 {
				t.Errorf("expected actions to overlap, peak was %d", exec.peak)
			}
		})
	}
}
