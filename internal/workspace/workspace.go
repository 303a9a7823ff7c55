// Package workspace loads a workspace and shares it between concurrent
// target runs.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/fentz26/orbit/internal/cache"
	"github.com/fentz26/orbit/internal/config"
	"github.com/fentz26/orbit/internal/connectors"
	"github.com/fentz26/orbit/internal/models"
	"github.com/fentz26/orbit/internal/toolchain"
)

// Workspace is the read-mostly state every gate invocation consults.
type Workspace struct {
	Root       string
	WorkingDir string
	Config     *config.WorkspaceConfig
	Projects   map[string]*models.Project
	Toolchain  *toolchain.Toolchain
	Cache      *cache.Engine
}

// Load reads the workspace rooted at root, its projects, toolchain and cache.
func Load(ctx context.Context, root, workingDir string, conn connectors.Connector) (*Workspace, error) {
	cfg, err := config.LoadWorkspaceConfig(filepath.Join(root, config.Dir, config.WorkspaceFile))
	if err != nil {
		return nil, err
	}

	projects, err := LoadProjects(root, cfg.Projects)
	if err != nil {
		return nil, err
	}

	toolchainDir := cfg.Runner.ToolchainDir
	if toolchainDir == "" {
		toolchainDir = toolchain.DefaultDir()
	}
	tc, err := toolchain.Resolve(ctx, toolchainDir, cfg.Node, runtime.GOOS == "windows", conn)
	if err != nil {
		return nil, fmt.Errorf("resolve toolchain: %w", err)
	}

	engine, err := cache.NewEngine(cfg.Runner.ResolveCacheDir(root))
	if err != nil {
		return nil, err
	}

	return &Workspace{
		Root:       root,
		WorkingDir: workingDir,
		Config:     cfg,
		Projects:   projects,
		Toolchain:  tc,
		Cache:      engine,
	}, nil
}

// LoadProjects loads each project's configuration.
func LoadProjects(root string, paths map[string]string) (map[string]*models.Project, error) {
	projects := make(map[string]*models.Project, len(paths))
	for id, source := range paths {
		projectRoot := filepath.Join(root, source)
		if info, err := os.Stat(projectRoot); err != nil || !info.IsDir() {
			return nil, fmt.Errorf("project %s: %s is not a directory", id, source)
		}

		pcfg, err := config.LoadProjectConfig(filepath.Join(projectRoot, config.ProjectFile))
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", id, err)
		}

		project := &models.Project{
			ID:     id,
			Root:   projectRoot,
			Source: filepath.ToSlash(source),
			Tasks:  make(map[string]*models.Task, len(pcfg.Tasks)),
		}
		for taskID, tcfg := range pcfg.Tasks {
			task, err := tcfg.ToTask(id, taskID)
			if err != nil {
				return nil, err
			}
			project.Tasks[taskID] = task
		}
		projects[id] = project
	}
	return projects, nil
}

// Project returns a project by id.
func (w *Workspace) Project(id string) (*models.Project, error) {
	project, ok := w.Projects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", config.ErrProjectNotFound, id)
	}
	return project, nil
}

// ResolveTarget returns the project and task a target id refers to.
func (w *Workspace) ResolveTarget(id string) (*models.Project, *models.Task, error) {
	target, err := models.ParseTarget(id)
	if err != nil {
		return nil, nil, err
	}
	project, err := w.Project(target.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	task := project.GetTask(target.TaskID)
	if task == nil {
		return nil, nil, fmt.Errorf("%w: %s", config.ErrTaskNotFound, id)
	}
	return project, task, nil
}

// TargetIDs returns every target in the workspace, sorted.
func (w *Workspace) TargetIDs() []string {
	var ids []string
	for _, p := range w.Projects {
		for _, t := range p.Tasks {
			ids = append(ids, t.Target)
		}
	}
	sort.Strings(ids)
	return ids
}

// Shared guards a Workspace for concurrent gate invocations. Target runs take
// the read side; nothing in the execution core needs the write side except
// configuration reloads.
type Shared struct {
	mu sync.RWMutex
	ws *Workspace
}

// NewShared wraps a workspace.
func NewShared(ws *Workspace) *Shared {
	return &Shared{ws: ws}
}

// Read runs fn while holding the read lock.
func (s *Shared) Read(fn func(ws *Workspace) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.ws)
}

// Write runs fn while holding the write lock.
func (s *Shared) Write(fn func(ws *Workspace) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.ws)
}
