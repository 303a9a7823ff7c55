package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/fentz26/orbit/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// newTestWorkspace lays out a workspace without a node runtime so loading
// does not depend on the host.
func newTestWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, config.Dir, config.WorkspaceFile), `
projects:
  app: apps/app
  shared: packages/shared
node: null
runner:
  max_concurrency: 2
  cache_dir: .orbit/cache
  toolchain_dir: `+filepath.Join(root, "tools")+`
`)
	writeFile(t, filepath.Join(root, "apps", "app", config.ProjectFile), `
tasks:
  build:
    command: tsc --build
    deps: ["shared:build", "~:codegen"]
    outputs: [lib]
  codegen:
    command: ./gen.sh
    type: system
`)
	writeFile(t, filepath.Join(root, "packages", "shared", config.ProjectFile), `
tasks:
  build:
    command: tsc
`)
	return root
}

func TestLoad(t *testing.T) {
	root := newTestWorkspace(t)
	ws, err := Load(context.Background(), root, root, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer ws.Cache.Close()

	if len(ws.Projects) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(ws.Projects))
	}
	if ws.Toolchain.Node != nil {
		t.Error("expected no node runtime")
	}
	if ws.Cache.Dir != filepath.Join(root, ".orbit", "cache") {
		t.Errorf("unexpected cache dir %s", ws.Cache.Dir)
	}
	if _, err := os.Stat(ws.Cache.HashesDir); err != nil {
		t.Errorf("expected hashes dir to exist: %v", err)
	}

	app, err := ws.Project("app")
	if err != nil {
		t.Fatal(err)
	}
	if app.Root != filepath.Join(root, "apps", "app") || app.Source != "apps/app" {
		t.Errorf("unexpected project paths %s %s", app.Root, app.Source)
	}
}

func TestResolveTarget(t *testing.T) {
	root := newTestWorkspace(t)
	ws, err := Load(context.Background(), root, root, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer ws.Cache.Close()

	project, task, err := ws.ResolveTarget("app:build")
	if err != nil {
		t.Fatalf("ResolveTarget failed: %v", err)
	}
	if project.ID != "app" || task.Command != "tsc" {
		t.Errorf("unexpected resolution %s %s", project.ID, task.Command)
	}
	if len(task.Args) != 1 || task.Args[0] != "--build" {
		t.Errorf("expected command words to prepend args, got %v", task.Args)
	}
	if len(task.Deps) != 2 || task.Deps[1] != "app:codegen" {
		t.Errorf("expected ~ to resolve to the owning project, got %v", task.Deps)
	}

	if _, _, err := ws.ResolveTarget("missing:build"); !errors.Is(err, config.ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound, got %v", err)
	}
	if _, _, err := ws.ResolveTarget("app:deploy"); !errors.Is(err, config.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
	if _, _, err := ws.ResolveTarget("nocolon"); err == nil {
		t.Error("expected invalid target error")
	}
}

func TestTargetIDs(t *testing.T) {
	root := newTestWorkspace(t)
	projects, err := LoadProjects(root, map[string]string{"app": "apps/app", "shared": "packages/shared"})
	if err != nil {
		t.Fatal(err)
	}
	ws := &Workspace{Root: root, Projects: projects}

	want := []string{"app:build", "app:codegen", "shared:build"}
	got := ws.TargetIDs()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestLoadProjectsMissingDir(t *testing.T) {
	root := t.TempDir()
	if _, err := LoadProjects(root, map[string]string{"gone": "apps/gone"}); err == nil {
		t.Error("expected error for a missing project directory")
	}
}

func TestSharedReadWrite(t *testing.T) {
	shared := NewShared(&Workspace{Projects: nil})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = shared.Read(func(ws *Workspace) error {
				_ = len(ws.Projects)
				return nil
			})
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = shared.Write(func(ws *Workspace) error {
			ws.WorkingDir = "/tmp"
			return nil
		})
	}()
	wg.Wait()

	errBoom := errors.New("boom")
	if err := shared.Read(func(*Workspace) error { return errBoom }); !errors.Is(err, errBoom) {
		t.Errorf("expected callback error, got %v", err)
	}
	_ = shared.Read(func(ws *Workspace) error {
		if ws.WorkingDir != "/tmp" {
			t.Error("expected write to be visible")
		}
		return nil
	})
}
