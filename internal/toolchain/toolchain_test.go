package toolchain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fentz26/orbit/internal/config"
	"github.com/fentz26/orbit/internal/connectors"
)

type recordingConnector struct {
	commands []*connectors.Command
	result   *connectors.ExecResult
	err      error
}

func (r *recordingConnector) Name() string { return "recording" }

func (r *recordingConnector) Execute(ctx context.Context, cmd *connectors.Command, stream bool) (*connectors.ExecResult, error) {
	r.commands = append(r.commands, cmd)
	if r.err != nil {
		return nil, r.err
	}
	if r.result != nil {
		return r.result, nil
	}
	return &connectors.ExecResult{Command: cmd.Bin}, nil
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}
}

func TestNewNodeSiblings(t *testing.T) {
	node := NewNode("/tools/node/20/bin/node", false)
	if node.NpmPath() != "/tools/node/20/bin/npm" {
		t.Errorf("unexpected npm path %s", node.NpmPath())
	}
	if node.BinDir() != "/tools/node/20/bin" {
		t.Errorf("unexpected bin dir %s", node.BinDir())
	}

	win := NewNode("/tools/node/20/node.exe", true)
	if !strings.HasSuffix(win.YarnPath(), "yarn.cmd") {
		t.Errorf("expected .cmd wrapper on windows, got %s", win.YarnPath())
	}
}

func TestFindPackageBinPath(t *testing.T) {
	root := t.TempDir()
	project := filepath.Join(root, "apps", "web")
	if err := os.MkdirAll(project, 0755); err != nil {
		t.Fatal(err)
	}
	// Hoisted to the workspace root
	touch(t, filepath.Join(root, "node_modules", ".bin", "eslint"))
	// Local to the project
	touch(t, filepath.Join(project, "node_modules", ".bin", "tsc"))

	node := NewNode("/usr/bin/node", false)

	got, err := node.FindPackageBinPath("tsc", project)
	if err != nil || got != filepath.Join(project, "node_modules", ".bin", "tsc") {
		t.Errorf("tsc: got %s, %v", got, err)
	}

	got, err = node.FindPackageBinPath("eslint", project)
	if err != nil || got != filepath.Join(root, "node_modules", ".bin", "eslint") {
		t.Errorf("eslint: got %s, %v", got, err)
	}

	if _, err := node.FindPackageBinPath("missing-bin-xyz", project); !errors.Is(err, ErrBinaryNotFound) {
		t.Errorf("expected ErrBinaryNotFound, got %v", err)
	}
}

func TestFindPackageBinPathWindows(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "node_modules", ".bin", "jest.cmd"))

	node := NewNode("/node/node.exe", true)
	got, err := node.FindPackageBinPath("jest", root)
	if err != nil {
		t.Fatalf("FindPackageBinPath failed: %v", err)
	}
	if filepath.Base(got) != "jest.cmd" {
		t.Errorf("expected jest.cmd, got %s", got)
	}
}

func TestPackageManagers(t *testing.T) {
	node := NewNode("/n/bin/node", false)
	tests := []struct {
		name     string
		lockfile string
		bin      string
	}{
		{"npm", "package-lock.json", "/n/bin/npm"},
		{"pnpm", "pnpm-lock.yaml", "/n/bin/pnpm"},
		{"yarn", "yarn.lock", "/n/bin/yarn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm, err := NewPackageManager(tt.name, node, nil)
			if err != nil {
				t.Fatalf("NewPackageManager failed: %v", err)
			}
			if pm.LockfileName() != tt.lockfile || pm.BinPath() != tt.bin {
				t.Errorf("got lockfile %s bin %s", pm.LockfileName(), pm.BinPath())
			}
		})
	}

	if _, err := NewPackageManager("bun", node, nil); !errors.Is(err, ErrManagerNotConfigured) {
		t.Errorf("expected ErrManagerNotConfigured, got %v", err)
	}
}

func TestPackageManagerInstall(t *testing.T) {
	conn := &recordingConnector{}
	pm, err := NewPackageManager("pnpm", NewNode("/n/bin/node", false), conn)
	if err != nil {
		t.Fatal(err)
	}

	if err := pm.InstallDependencies(context.Background(), "/ws"); err != nil {
		t.Fatalf("InstallDependencies failed: %v", err)
	}
	if err := pm.DedupeDependencies(context.Background(), "/ws"); err != nil {
		t.Fatalf("DedupeDependencies failed: %v", err)
	}

	if len(conn.commands) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(conn.commands))
	}
	install := conn.commands[0]
	if install.Bin != "/n/bin/pnpm" || install.Args[0] != "install" || install.Dir != "/ws" {
		t.Errorf("unexpected install command %+v", install)
	}
	if !strings.HasPrefix(install.Env["PATH"], "/n/bin") {
		t.Errorf("expected node dir first on PATH, got %s", install.Env["PATH"])
	}
	if conn.commands[1].Args[0] != "dedupe" {
		t.Errorf("unexpected dedupe command %+v", conn.commands[1])
	}
}

func TestPackageManagerInstallFailure(t *testing.T) {
	conn := &recordingConnector{err: errors.New("boom")}
	pm, _ := NewPackageManager("npm", NewNode("/n/bin/node", false), conn)
	if err := pm.InstallDependencies(context.Background(), "/ws"); err == nil {
		t.Error("expected install failure to propagate")
	}
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	nodeBin := filepath.Join(dir, "bin", "node")
	touch(t, nodeBin)
	conn := &recordingConnector{result: &connectors.ExecResult{Stdout: "v20.11.0\n"}}

	tc, err := Resolve(context.Background(), "/tools", &config.NodeConfig{BinPath: nodeBin, PackageManager: "yarn"}, false, conn)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if tc.Dir != "/tools" || tc.Node == nil {
		t.Fatalf("unexpected toolchain %+v", tc)
	}
	if tc.Node.Version() != "v20.11.0" {
		t.Errorf("expected version v20.11.0, got %q", tc.Node.Version())
	}
	pm, err := tc.Node.PackageManager()
	if err != nil || pm.Name() != "yarn" {
		t.Errorf("expected yarn manager, got %v, %v", pm, err)
	}

	empty, err := Resolve(context.Background(), "/tools", nil, false, conn)
	if err != nil || empty.Node != nil {
		t.Errorf("nil node config should resolve without node, got %+v, %v", empty, err)
	}
}

func TestPathEnvVar(t *testing.T) {
	t.Setenv("PATH", "/usr/bin")
	got := PathEnvVar("/tools/node/bin")
	want := "/tools/node/bin" + string(os.PathListSeparator) + "/usr/bin"
	if got != want {
		t.Errorf("PathEnvVar() = %s, want %s", got, want)
	}
}
