// Package installer implements the install gate: dependencies are
// reinstalled only when the lockfile changed since the last install.
package installer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fentz26/orbit/internal/audit"
	"github.com/fentz26/orbit/internal/models"
	"github.com/fentz26/orbit/internal/workspace"
)

// PackageManager is the part of a package manager the gate drives.
type PackageManager interface {
	Name() string
	LockfileName() string
	InstallDependencies(ctx context.Context, workspaceRoot string) error
	DedupeDependencies(ctx context.Context, workspaceRoot string) error
}

// Installer is the install gate.
type Installer struct {
	pdr     *audit.PDRWriter
	resolve func(ws *workspace.Workspace) (PackageManager, error)
}

// New creates an install gate that uses the workspace's configured package
// manager.
func New(pdr *audit.PDRWriter) *Installer {
	return &Installer{pdr: pdr, resolve: workspaceManager}
}

func workspaceManager(ws *workspace.Workspace) (PackageManager, error) {
	if ws.Toolchain == nil || ws.Toolchain.Node == nil {
		return nil, nil
	}
	pm, err := ws.Toolchain.Node.PackageManager()
	if err != nil {
		return nil, err
	}
	return pm, nil
}

// EnsureInstalled installs dependencies when the lockfile is missing or newer
// than the last recorded install. It holds the workspace exclusively and
// reports whether an install ran. Failures are returned, never retried.
func (i *Installer) EnsureInstalled(ctx context.Context, shared *workspace.Shared) (bool, error) {
	installed := false
	err := shared.Write(func(ws *workspace.Workspace) error {
		var err error
		installed, err = i.ensureInstalled(ctx, ws)
		return err
	})
	return installed, err
}

func (i *Installer) ensureInstalled(ctx context.Context, ws *workspace.Workspace) (bool, error) {
	pm, err := i.resolve(ws)
	if err != nil {
		return false, err
	}
	if pm == nil {
		log.Printf("[install] no node runtime configured, skipping dependency install")
		return false, nil
	}

	lockfile := filepath.Join(ws.Root, pm.LockfileName())
	lastModified, err := modifiedMillis(lockfile)
	if err != nil {
		return false, err
	}

	records := ws.Cache.Store
	state, err := records.LoadWorkspaceState()
	if err != nil {
		return false, fmt.Errorf("load install record: %w", err)
	}

	inputs := map[string]interface{}{
		"lockfile":      lockfile,
		"last_modified": lastModified,
		"last_install":  state.LastNodeInstallTime,
	}

	if lastModified != 0 && lastModified <= state.LastNodeInstallTime {
		log.Printf("[install] %s unchanged since last install, skipping", pm.LockfileName())
		i.pdr.Record(audit.ActionDepsUpToDate, inputs, audit.OutcomeSuccess, "", "lockfile unchanged")
		return false, nil
	}

	log.Printf("[install] installing dependencies with %s", pm.Name())
	if err := pm.InstallDependencies(ctx, ws.Root); err != nil {
		i.pdr.Record(audit.ActionDepsInstall, inputs, audit.OutcomeFailure, "", err.Error())
		return false, fmt.Errorf("install dependencies: %w", err)
	}

	dedupe := true
	if ws.Config != nil {
		dedupe = ws.Config.Node.ShouldDedupe()
	}
	if dedupe {
		log.Printf("[install] deduping dependencies with %s", pm.Name())
		if err := pm.DedupeDependencies(ctx, ws.Root); err != nil {
			i.pdr.Record(audit.ActionDepsInstall, inputs, audit.OutcomeFailure, "", err.Error())
			return false, fmt.Errorf("dedupe dependencies: %w", err)
		}
	}

	state.LastNodeInstallTime = nextInstallTime(state.LastNodeInstallTime, lastModified, models.NowMillis())
	if err := records.SaveWorkspaceState(state); err != nil {
		return true, err
	}

	i.pdr.Record(audit.ActionDepsInstall, inputs, audit.OutcomeSuccess, "", fmt.Sprintf("installed with %s", pm.Name()))
	return true, nil
}

// modifiedMillis returns the file's modification time, or 0 when it does not
// exist.
func modifiedMillis(path string) (int64, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("stat lockfile: %w", err)
	}
	return models.ToMillis(info.ModTime()), nil
}

// nextInstallTime never moves the record backwards and never records a time
// older than the lockfile it installed from.
func nextInstallTime(previous, lockfile, now int64) int64 {
	next := now
	if lockfile > next {
		next = lockfile
	}
	if previous > next {
		next = previous
	}
	return next
}
