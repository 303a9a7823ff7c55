package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/fentz26/orbit/internal/models"
	"github.com/kballard/go-shellquote"
	"gopkg.in/yaml.v3"
)

// ProjectConfig is the contents of a project's project.yml.
type ProjectConfig struct {
	Tasks map[string]TaskConfig `yaml:"tasks"`
}

// TaskConfig is a single task definition.
type TaskConfig struct {
	// Command may contain arguments; they are split shell-style and
	// prepended to Args.
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	Type    string            `yaml:"type,omitempty"`
	Inputs  []string          `yaml:"inputs,omitempty"`
	Outputs []string          `yaml:"outputs,omitempty"`
	Deps    []string          `yaml:"deps,omitempty"`
	Options TaskOptionsConfig `yaml:"options,omitempty"`
}

// TaskOptionsConfig holds task options.
type TaskOptionsConfig struct {
	RetryCount           int  `yaml:"retry_count"`
	RunFromWorkspaceRoot bool `yaml:"run_from_workspace_root"`
}

// LoadProjectConfig loads a project configuration. A missing file yields a
// project without tasks.
func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ProjectConfig{Tasks: map[string]TaskConfig{}}, nil
		}
		return nil, fmt.Errorf("reading project config: %w", err)
	}

	cfg := &ProjectConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing project config: %w", err)
	}
	if cfg.Tasks == nil {
		cfg.Tasks = map[string]TaskConfig{}
	}
	return cfg, nil
}

// ToTask converts a task definition into the resolved task of a project.
func (tc TaskConfig) ToTask(projectID, taskID string) (*models.Task, error) {
	words, err := shellquote.Split(tc.Command)
	if err != nil {
		return nil, fmt.Errorf("task %s:%s: parsing command: %w", projectID, taskID, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("task %s:%s: command is required", projectID, taskID)
	}
	if tc.Options.RetryCount < 0 {
		return nil, fmt.Errorf("task %s:%s: retry_count must not be negative", projectID, taskID)
	}

	taskType := models.TaskTypeNode
	switch tc.Type {
	case "", string(models.TaskTypeNode):
	case string(models.TaskTypeSystem):
		taskType = models.TaskTypeSystem
	default:
		return nil, fmt.Errorf("task %s:%s: invalid type %q, must be: node or system", projectID, taskID, tc.Type)
	}

	args := append([]string{}, words[1:]...)
	args = append(args, tc.Args...)

	deps := make([]string, 0, len(tc.Deps))
	for _, dep := range tc.Deps {
		if rest, ok := strings.CutPrefix(dep, "~:"); ok {
			dep = projectID + ":" + rest
		}
		if _, err := models.ParseTarget(dep); err != nil {
			return nil, fmt.Errorf("task %s:%s: dependency: %w", projectID, taskID, err)
		}
		deps = append(deps, dep)
	}

	env := make(map[string]string, len(tc.Env))
	for k, v := range tc.Env {
		env[k] = v
	}

	return &models.Task{
		ID:          taskID,
		Target:      models.NewTarget(projectID, taskID).ID(),
		Command:     words[0],
		Args:        args,
		Env:         env,
		Type:        taskType,
		Inputs:      append([]string{}, tc.Inputs...),
		OutputPaths: append([]string{}, tc.Outputs...),
		Deps:        deps,
		Options: models.TaskOptions{
			RetryCount:           tc.Options.RetryCount,
			RunFromWorkspaceRoot: tc.Options.RunFromWorkspaceRoot,
		},
	}, nil
}
