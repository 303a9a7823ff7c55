// Package cache manages Orbit's cache directory: the record database,
// runfiles, hash manifests and the shared output area.
//
// Layout:
//
//	{Dir}/
//	  orbit.db           target and workspace records
//	  hashes/{hash}.json hasher manifest of each successful run
//	  runfiles/{id}.json project snapshot exposed to tasks
//	  out/{hash}/...     hard-linked task outputs
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fentz26/orbit/internal/models"
	"github.com/fentz26/orbit/internal/store"
)

// Engine owns the cache directory and its record store.
type Engine struct {
	Dir         string
	HashesDir   string
	OutDir      string
	RunfilesDir string
	Store       *store.Store
}

// NewEngine creates the cache directory structure and opens the store.
func NewEngine(dir string) (*Engine, error) {
	e := &Engine{
		Dir:         dir,
		HashesDir:   filepath.Join(dir, "hashes"),
		OutDir:      filepath.Join(dir, "out"),
		RunfilesDir: filepath.Join(dir, "runfiles"),
	}
	for _, d := range []string{e.HashesDir, e.OutDir, e.RunfilesDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	s, err := store.New(filepath.Join(dir, "orbit.db"))
	if err != nil {
		return nil, fmt.Errorf("opening cache store: %w", err)
	}
	e.Store = s
	return e, nil
}

// Close closes the record store.
func (e *Engine) Close() error {
	if e.Store == nil {
		return nil
	}
	return e.Store.Close()
}

// CreateRunfile snapshots a project to disk so tasks can introspect it.
func (e *Engine) CreateRunfile(project *models.Project) (string, error) {
	data, err := json.MarshalIndent(project, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling runfile: %w", err)
	}
	path := filepath.Join(e.RunfilesDir, project.ID+".json")
	if err := writeFileAtomic(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing runfile: %w", err)
	}
	return path, nil
}

// SaveHash persists the manifest a hash was computed from. An existing
// manifest for the same hash is left untouched.
func (e *Engine) SaveHash(hash string, manifest interface{}) error {
	path := filepath.Join(e.HashesDir, hash+".json")
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking hash manifest: %w", err)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling hash manifest: %w", err)
	}
	if err := writeFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("writing hash manifest: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
