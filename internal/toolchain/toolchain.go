// Package toolchain resolves the Node.js runtime and its package manager.
// Installing or version-managing the runtime is out of scope: binaries are
// located from configuration or PATH.
package toolchain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/fentz26/orbit/internal/config"
	"github.com/fentz26/orbit/internal/connectors"
)

var (
	ErrBinaryNotFound       = errors.New("binary not found")
	ErrNodeNotConfigured    = errors.New("node runtime is not configured")
	ErrManagerNotConfigured = errors.New("package manager is not configured")
)

// Toolchain groups the runtimes available to a workspace.
type Toolchain struct {
	// Dir is the directory tools are installed into.
	Dir  string
	Node *Node
}

// Node is a resolved Node.js runtime.
type Node struct {
	binPath  string
	version  string
	windows  bool
	npmPath  string
	pnpmPath string
	yarnPath string
	manager  *PackageManager
}

// NewNode builds a runtime from an interpreter path. Package manager
// binaries default to siblings of the interpreter.
func NewNode(binPath string, windows bool) *Node {
	dir := filepath.Dir(binPath)
	return &Node{
		binPath:  binPath,
		windows:  windows,
		npmPath:  filepath.Join(dir, scriptName("npm", windows)),
		pnpmPath: filepath.Join(dir, scriptName("pnpm", windows)),
		yarnPath: filepath.Join(dir, scriptName("yarn", windows)),
	}
}

// BinPath returns the interpreter path.
func (n *Node) BinPath() string { return n.binPath }

// BinDir returns the directory containing the interpreter.
func (n *Node) BinDir() string { return filepath.Dir(n.binPath) }

// Version returns the interpreter version, if known.
func (n *Node) Version() string { return n.version }

// NpmPath returns the npm binary path.
func (n *Node) NpmPath() string { return n.npmPath }

// PnpmPath returns the pnpm binary path.
func (n *Node) PnpmPath() string { return n.pnpmPath }

// YarnPath returns the yarn binary path.
func (n *Node) YarnPath() string { return n.yarnPath }

// PackageManager returns the workspace's configured package manager.
func (n *Node) PackageManager() (*PackageManager, error) {
	if n.manager == nil {
		return nil, ErrManagerNotConfigured
	}
	return n.manager, nil
}

// SetPackageManager configures the package manager used for installs.
func (n *Node) SetPackageManager(pm *PackageManager) { n.manager = pm }

// FindPackageBinPath locates an installed package binary by walking up from
// projectRoot through each node_modules/.bin directory.
func (n *Node) FindPackageBinPath(bin, projectRoot string) (string, error) {
	name := scriptName(bin, n.windows)
	dir := projectRoot
	for {
		candidate := filepath.Join(dir, "node_modules", ".bin", name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: %s (searched from %s)", ErrBinaryNotFound, bin, projectRoot)
		}
		dir = parent
	}
}

// Resolve locates the runtime described by the workspace configuration. A
// nil node configuration yields a toolchain without Node.
func Resolve(ctx context.Context, dir string, cfg *config.NodeConfig, windows bool, conn connectors.Connector) (*Toolchain, error) {
	tc := &Toolchain{Dir: dir}
	if cfg == nil {
		return tc, nil
	}

	binPath := cfg.BinPath
	if binPath == "" {
		found, err := exec.LookPath("node")
		if err != nil {
			return nil, fmt.Errorf("%w: node: %v", ErrBinaryNotFound, err)
		}
		binPath = found
	}

	node := NewNode(binPath, windows)
	node.pnpmPath = lookupSibling(node.pnpmPath, "pnpm")
	node.yarnPath = lookupSibling(node.yarnPath, "yarn")

	if conn != nil {
		result, err := conn.Execute(ctx, &connectors.Command{Bin: binPath, Args: []string{"--version"}}, false)
		if err != nil {
			log.Printf("[toolchain] unable to detect node version: %v", err)
		} else {
			node.version = strings.TrimSpace(result.Stdout)
		}
	}

	pm, err := NewPackageManager(cfg.PackageManager, node, conn)
	if err != nil {
		return nil, err
	}
	node.SetPackageManager(pm)
	tc.Node = node

	log.Printf("[toolchain] node %s at %s, package manager %s", node.version, binPath, pm.Name())
	return tc, nil
}

// PathEnvVar returns a PATH value with dir prepended to the current PATH.
func PathEnvVar(dir string) string {
	current := os.Getenv("PATH")
	if current == "" {
		return dir
	}
	return dir + string(os.PathListSeparator) + current
}

// DefaultDir returns ~/.orbit/tools.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(config.Dir, "tools")
	}
	return filepath.Join(home, config.Dir, "tools")
}

func scriptName(bin string, windows bool) string {
	if windows && filepath.Ext(bin) == "" {
		return bin + ".cmd"
	}
	return bin
}

// lookupSibling keeps path when it exists, otherwise falls back to PATH.
func lookupSibling(path, name string) string {
	if _, err := os.Stat(path); err == nil {
		return path
	}
	if found, err := exec.LookPath(name); err == nil {
		return found
	}
	return path
}
