package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/fentz26/orbit/internal/models"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestLoadWorkspaceConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, Dir, WorkspaceFile)
	writeFile(t, path, `
projects:
  app: apps/app
  lib: packages/lib
node:
  package_manager: pnpm
  dedupe_on_install: false
runner:
  max_concurrency: 8
`)

	cfg, err := LoadWorkspaceConfig(path)
	if err != nil {
		t.Fatalf("LoadWorkspaceConfig() error = %v", err)
	}
	if len(cfg.Projects) != 2 || cfg.Projects["app"] != "apps/app" {
		t.Errorf("unexpected projects %v", cfg.Projects)
	}
	if cfg.Node.PackageManager != "pnpm" {
		t.Errorf("expected pnpm, got %s", cfg.Node.PackageManager)
	}
	if cfg.Node.ShouldDedupe() {
		t.Error("expected dedupe disabled")
	}
	if cfg.Runner.MaxConcurrency != 8 {
		t.Errorf("expected max_concurrency 8, got %d", cfg.Runner.MaxConcurrency)
	}
	if cfg.Runner.CacheDir != filepath.Join(Dir, "cache") {
		t.Errorf("expected default cache dir, got %s", cfg.Runner.CacheDir)
	}
}

func TestResolveCacheDir(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "repo")
	abs := filepath.Join(string(filepath.Separator), "var", "cache", "orbit")

	if got := (RunnerConfig{CacheDir: ".orbit/cache"}).ResolveCacheDir(root); got != filepath.Join(root, ".orbit", "cache") {
		t.Errorf("expected relative dir joined to root, got %s", got)
	}
	if got := (RunnerConfig{CacheDir: abs}).ResolveCacheDir(root); got != abs {
		t.Errorf("expected absolute dir unchanged, got %s", got)
	}
}

func TestShouldDedupeDefaultsToTrue(t *testing.T) {
	var nilNode *NodeConfig
	if !nilNode.ShouldDedupe() {
		t.Error("nil node config should dedupe")
	}
	if !(&NodeConfig{}).ShouldDedupe() {
		t.Error("unset dedupe_on_install should dedupe")
	}
}

func TestWorkspaceConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*WorkspaceConfig)
	}{
		{"zero concurrency", func(c *WorkspaceConfig) { c.Runner.MaxConcurrency = 0 }},
		{"empty cache dir", func(c *WorkspaceConfig) { c.Runner.CacheDir = "" }},
		{"absolute project", func(c *WorkspaceConfig) { c.Projects["app"] = "/abs/app" }},
		{"bad manager", func(c *WorkspaceConfig) { c.Node.PackageManager = "bun" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultWorkspaceConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if err := DefaultWorkspaceConfig().Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestFindWorkspaceRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, Dir, WorkspaceFile), "projects: {}\n")
	nested := filepath.Join(root, "apps", "app", "src")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	got, err := FindWorkspaceRoot(nested)
	if err != nil {
		t.Fatalf("FindWorkspaceRoot() error = %v", err)
	}
	want, _ := filepath.EvalSymlinks(root)
	gotResolved, _ := filepath.EvalSymlinks(got)
	if gotResolved != want {
		t.Errorf("FindWorkspaceRoot() = %s, want %s", got, root)
	}

	if _, err := FindWorkspaceRoot(t.TempDir()); !errors.Is(err, ErrWorkspaceNotFound) {
		t.Errorf("expected ErrWorkspaceNotFound, got %v", err)
	}
}

func TestLoadProjectConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ProjectFile)
	writeFile(t, path, `
tasks:
  build:
    command: tsc --build "tsconfig.json"
    args: [--pretty]
    outputs: [lib]
    deps: ["~:codegen", "shared:build"]
    options:
      retry_count: 2
  lint:
    command: ./lint.sh
    type: system
    options:
      run_from_workspace_root: true
`)

	cfg, err := LoadProjectConfig(path)
	if err != nil {
		t.Fatalf("LoadProjectConfig() error = %v", err)
	}

	build, err := cfg.Tasks["build"].ToTask("app", "build")
	if err != nil {
		t.Fatalf("ToTask(build) error = %v", err)
	}
	if build.Target != "app:build" || build.Command != "tsc" {
		t.Errorf("unexpected task %+v", build)
	}
	if !reflect.DeepEqual(build.Args, []string{"--build", "tsconfig.json", "--pretty"}) {
		t.Errorf("unexpected args %v", build.Args)
	}
	if build.Type != models.TaskTypeNode {
		t.Errorf("expected node type by default, got %s", build.Type)
	}
	if !reflect.DeepEqual(build.Deps, []string{"app:codegen", "shared:build"}) {
		t.Errorf("unexpected deps %v", build.Deps)
	}
	if build.Options.RetryCount != 2 {
		t.Errorf("expected retry_count 2, got %d", build.Options.RetryCount)
	}

	lint, err := cfg.Tasks["lint"].ToTask("app", "lint")
	if err != nil {
		t.Fatalf("ToTask(lint) error = %v", err)
	}
	if lint.Type != models.TaskTypeSystem || !lint.Options.RunFromWorkspaceRoot {
		t.Errorf("unexpected lint task %+v", lint)
	}
}

func TestLoadProjectConfigMissing(t *testing.T) {
	cfg, err := LoadProjectConfig(filepath.Join(t.TempDir(), ProjectFile))
	if err != nil {
		t.Fatalf("missing project config should not error: %v", err)
	}
	if len(cfg.Tasks) != 0 {
		t.Errorf("expected no tasks, got %d", len(cfg.Tasks))
	}
}

func TestToTaskErrors(t *testing.T) {
	tests := []struct {
		name string
		tc   TaskConfig
	}{
		{"empty command", TaskConfig{}},
		{"unbalanced quote", TaskConfig{Command: `echo "oops`}},
		{"negative retry", TaskConfig{Command: "x", Options: TaskOptionsConfig{RetryCount: -1}}},
		{"bad type", TaskConfig{Command: "x", Type: "python"}},
		{"bad dep", TaskConfig{Command: "x", Deps: []string{"nocolon"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.tc.ToTask("app", "t"); err == nil {
				t.Error("expected error")
			}
		})
	}
}
