package hasher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fentz26/orbit/internal/models"
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

func newProject(t *testing.T) *models.Project {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "index.ts"), "export {}")
	writeFile(t, filepath.Join(root, "package.json"), `{"name":"app"}`)
	writeFile(t, filepath.Join(root, "node_modules", "dep", "index.js"), "ignored")
	writeFile(t, filepath.Join(root, "lib", "index.js"), "output")
	return &models.Project{ID: "app", Root: root}
}

func newTask() *models.Task {
	return &models.Task{
		ID:          "build",
		Target:      "app:build",
		Command:     "tsc",
		Args:        []string{"--build"},
		Env:         map[string]string{"NODE_ENV": "production"},
		Type:        models.TaskTypeSystem,
		OutputPaths: []string{"lib"},
	}
}

func mustHash(t *testing.T, project *models.Project, task *models.Task, passthrough []string) string {
	t.Helper()
	hash, _, err := New().Hash(nil, project, task, passthrough)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	return hash
}

func TestHashDeterministic(t *testing.T) {
	project := newProject(t)
	a := mustHash(t, project, newTask(), nil)
	b := mustHash(t, project, newTask(), nil)
	if a != b {
		t.Errorf("identical inputs produced different hashes: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected sha256 hex, got %q", a)
	}
}

func TestHashChanges(t *testing.T) {
	project := newProject(t)
	base := mustHash(t, project, newTask(), nil)

	tests := []struct {
		name   string
		mutate func(*models.Task)
	}{
		{"args", func(task *models.Task) { task.Args = append(task.Args, "--force") }},
		{"env", func(task *models.Task) { task.Env["NODE_ENV"] = "development" }},
		{"command", func(task *models.Task) { task.Command = "swc" }},
		{"run from root", func(task *models.Task) { task.Options.RunFromWorkspaceRoot = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := newTask()
			tt.mutate(task)
			if mustHash(t, project, task, nil) == base {
				t.Error("expected hash to change")
			}
		})
	}

	if mustHash(t, project, newTask(), []string{"--watch"}) == base {
		t.Error("passthrough args must change the hash")
	}

	writeFile(t, filepath.Join(project.Root, "src", "index.ts"), "export const x = 1")
	if mustHash(t, project, newTask(), nil) == base {
		t.Error("changed source content must change the hash")
	}
}

func TestHashIgnoresOutputsAndNodeModules(t *testing.T) {
	project := newProject(t)
	base := mustHash(t, project, newTask(), nil)

	writeFile(t, filepath.Join(project.Root, "lib", "index.js"), "rebuilt output")
	writeFile(t, filepath.Join(project.Root, "node_modules", "dep", "index.js"), "upgraded")

	if mustHash(t, project, newTask(), nil) != base {
		t.Error("outputs and node_modules must not affect the hash")
	}
}

func TestManifestDeclaredInputs(t *testing.T) {
	project := newProject(t)
	task := newTask()
	task.Inputs = []string{"src", "*.json"}

	m, err := New().Manifest(nil, project, task, nil)
	if err != nil {
		t.Fatalf("Manifest failed: %v", err)
	}
	if len(m.Inputs) != 2 {
		t.Fatalf("expected 2 inputs, got %v", m.Inputs)
	}
	if _, ok := m.Inputs["src/index.ts"]; !ok {
		t.Errorf("expected src/index.ts in inputs, got %v", m.Inputs)
	}
	if _, ok := m.Inputs["package.json"]; !ok {
		t.Errorf("expected package.json in inputs, got %v", m.Inputs)
	}
}

func TestShortHash(t *testing.T) {
	if ShortHash("abcdef0123456789") != "abcdef012345" {
		t.Errorf("unexpected short hash %s", ShortHash("abcdef0123456789"))
	}
	if ShortHash("abc") != "abc" {
		t.Error("short hashes are returned as-is")
	}
}
