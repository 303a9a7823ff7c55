package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTarget indicates a target id that is not of the form project:task.
var ErrInvalidTarget = errors.New("invalid target")

// Target identifies a project's task.
type Target struct {
	ProjectID string
	TaskID    string
}

// ParseTarget parses a "project:task" identifier.
func ParseTarget(id string) (Target, error) {
	projectID, taskID, ok := strings.Cut(id, ":")
	if !ok || projectID == "" || taskID == "" || strings.Contains(taskID, ":") {
		return Target{}, fmt.Errorf("%w: %q", ErrInvalidTarget, id)
	}
	return Target{ProjectID: projectID, TaskID: taskID}, nil
}

// NewTarget builds a target from its parts.
func NewTarget(projectID, taskID string) Target {
	return Target{ProjectID: projectID, TaskID: taskID}
}

// ID returns the "project:task" form.
func (t Target) ID() string {
	return t.ProjectID + ":" + t.TaskID
}

func (t Target) String() string {
	return t.ID()
}
