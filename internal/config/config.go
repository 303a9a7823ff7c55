// Package config loads the workspace and project configuration files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// Dir is the workspace configuration directory, relative to the root.
	Dir = ".orbit"
	// WorkspaceFile is the workspace configuration file name inside Dir.
	WorkspaceFile = "workspace.yml"
	// ProjectFile is the per-project configuration file name.
	ProjectFile = "project.yml"
)

var (
	ErrWorkspaceNotFound = errors.New("workspace root not found")
	ErrProjectNotFound   = errors.New("project not found")
	ErrTaskNotFound      = errors.New("task not found")
)

// WorkspaceConfig is the contents of .orbit/workspace.yml.
type WorkspaceConfig struct {
	// Projects maps project ids to paths relative to the workspace root.
	Projects map[string]string `yaml:"projects"`
	Node     *NodeConfig       `yaml:"node,omitempty"`
	Runner   RunnerConfig      `yaml:"runner"`
}

// NodeConfig configures the Node.js runtime and its package manager.
type NodeConfig struct {
	// BinPath is an explicit interpreter path; PATH is searched when empty.
	BinPath        string `yaml:"bin_path,omitempty"`
	PackageManager string `yaml:"package_manager"`
	// DedupeOnInstall defaults to true when unset.
	DedupeOnInstall *bool `yaml:"dedupe_on_install,omitempty"`
}

// ShouldDedupe reports whether dependencies are deduped after install.
func (n *NodeConfig) ShouldDedupe() bool {
	if n == nil || n.DedupeOnInstall == nil {
		return true
	}
	return *n.DedupeOnInstall
}

// RunnerConfig configures target execution.
type RunnerConfig struct {
	// MaxConcurrency bounds the number of targets run at once.
	MaxConcurrency int    `yaml:"max_concurrency"`
	CacheDir       string `yaml:"cache_dir"`
	// ToolchainDir defaults to ~/.orbit/tools.
	ToolchainDir string `yaml:"toolchain_dir,omitempty"`
}

// ResolveCacheDir returns the cache directory, relative paths resolved
// against the workspace root.
func (r RunnerConfig) ResolveCacheDir(root string) string {
	if filepath.IsAbs(r.CacheDir) {
		return r.CacheDir
	}
	return filepath.Join(root, r.CacheDir)
}

// DefaultWorkspaceConfig returns the defaults applied before the file is read.
func DefaultWorkspaceConfig() *WorkspaceConfig {
	return &WorkspaceConfig{
		Projects: map[string]string{},
		Node: &NodeConfig{
			PackageManager: "npm",
		},
		Runner: RunnerConfig{
			MaxConcurrency: 4,
			CacheDir:       filepath.Join(Dir, "cache"),
		},
	}
}

// LoadWorkspaceConfig loads the workspace configuration from a YAML file.
func LoadWorkspaceConfig(path string) (*WorkspaceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workspace config: %w", err)
	}

	cfg := DefaultWorkspaceConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing workspace config: %w", err)
	}
	if cfg.Projects == nil {
		cfg.Projects = map[string]string{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workspace config: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *WorkspaceConfig) Validate() error {
	if c.Runner.MaxConcurrency < 1 {
		return fmt.Errorf("runner.max_concurrency must be at least 1")
	}
	if c.Runner.CacheDir == "" {
		return fmt.Errorf("runner.cache_dir is required")
	}
	for id, path := range c.Projects {
		if id == "" || path == "" {
			return fmt.Errorf("project %q has an empty id or path", id)
		}
		if filepath.IsAbs(path) {
			return fmt.Errorf("project %q path must be relative to the workspace root", id)
		}
	}
	if c.Node != nil {
		switch c.Node.PackageManager {
		case "npm", "pnpm", "yarn":
		default:
			return fmt.Errorf("invalid package_manager %q, must be: npm, pnpm, or yarn", c.Node.PackageManager)
		}
	}
	return nil
}

// FindWorkspaceRoot walks up from dir until a directory containing
// .orbit/workspace.yml is found.
func FindWorkspaceRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, Dir, WorkspaceFile)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrWorkspaceNotFound
		}
		dir = parent
	}
}
