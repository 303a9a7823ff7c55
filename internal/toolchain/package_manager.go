package toolchain

import (
	"context"
	"fmt"
	"log"

	"github.com/fentz26/orbit/internal/connectors"
)

// PackageManager installs a workspace's dependencies.
type PackageManager struct {
	name        string
	binPath     string
	lockfile    string
	installArgs []string
	dedupeArgs  []string
	nodeBinDir  string
	conn        connectors.Connector
}

// NewPackageManager returns the npm, pnpm or yarn manager for a runtime.
func NewPackageManager(name string, node *Node, conn connectors.Connector) (*PackageManager, error) {
	pm := &PackageManager{name: name, nodeBinDir: node.BinDir(), conn: conn}
	switch name {
	case "npm":
		pm.binPath = node.NpmPath()
		pm.lockfile = "package-lock.json"
		pm.installArgs = []string{"install"}
		pm.dedupeArgs = []string{"dedupe"}
	case "pnpm":
		pm.binPath = node.PnpmPath()
		pm.lockfile = "pnpm-lock.yaml"
		pm.installArgs = []string{"install"}
		pm.dedupeArgs = []string{"dedupe"}
	case "yarn":
		pm.binPath = node.YarnPath()
		pm.lockfile = "yarn.lock"
		pm.installArgs = []string{"install"}
		pm.dedupeArgs = []string{"dedupe"}
	default:
		return nil, fmt.Errorf("%w: unknown package manager %q", ErrManagerNotConfigured, name)
	}
	return pm, nil
}

// Name returns the package manager name.
func (pm *PackageManager) Name() string { return pm.name }

// BinPath returns the package manager binary.
func (pm *PackageManager) BinPath() string { return pm.binPath }

// LockfileName returns the lockfile name at the workspace root.
func (pm *PackageManager) LockfileName() string { return pm.lockfile }

// InstallDependencies installs dependencies in the workspace root.
func (pm *PackageManager) InstallDependencies(ctx context.Context, workspaceRoot string) error {
	return pm.exec(ctx, workspaceRoot, pm.installArgs)
}

// DedupeDependencies dedupes the installed dependency tree.
func (pm *PackageManager) DedupeDependencies(ctx context.Context, workspaceRoot string) error {
	return pm.exec(ctx, workspaceRoot, pm.dedupeArgs)
}

func (pm *PackageManager) exec(ctx context.Context, dir string, args []string) error {
	if pm.conn == nil {
		return fmt.Errorf("%s %v: no connector configured", pm.name, args)
	}
	cmd := &connectors.Command{
		Bin:  pm.binPath,
		Args: args,
		Dir:  dir,
		Env:  map[string]string{"PATH": PathEnvVar(pm.nodeBinDir)},
	}
	log.Printf("[toolchain] running %s in %s", cmd, dir)
	if _, err := pm.conn.Execute(ctx, cmd, true); err != nil {
		return fmt.Errorf("%s %v: %w", pm.name, args, err)
	}
	return nil
}
