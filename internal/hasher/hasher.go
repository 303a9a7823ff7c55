// Package hasher computes target fingerprints from a task's inputs.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fentz26/orbit/internal/models"
	"github.com/fentz26/orbit/internal/workspace"
)

// skipDirs are never walked when collecting inputs.
var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	".orbit":       true,
}

// TargetManifest is everything a target's hash is derived from. It is
// persisted next to the cache so a miss can be diagnosed.
type TargetManifest struct {
	Target          string            `json:"target"`
	Command         string            `json:"command"`
	Args            []string          `json:"args"`
	PassthroughArgs []string          `json:"passthroughArgs,omitempty"`
	Env             map[string]string `json:"env"`
	Type            models.TaskType   `json:"type"`
	Deps            []string          `json:"deps"`
	Outputs         []string          `json:"outputs"`
	RunFromRoot     bool              `json:"runFromWorkspaceRoot"`
	NodeVersion     string            `json:"nodeVersion,omitempty"`
	NodeBin         string            `json:"nodeBin,omitempty"`
	// Inputs maps slash-separated paths relative to the project root to the
	// sha256 of their contents.
	Inputs map[string]string `json:"inputs"`
}

// Hash returns the hex sha256 of the manifest's canonical JSON form.
func (m *TargetManifest) Hash() string {
	// encoding/json sorts map keys, so the encoding is deterministic.
	data, err := json.Marshal(m)
	if err != nil {
		panic(fmt.Sprintf("hasher: marshaling manifest: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Hasher builds target manifests from the workspace.
type Hasher struct{}

// New creates a Hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash computes the fingerprint of a target and returns it with the manifest
// it was derived from.
func (h *Hasher) Hash(ws *workspace.Workspace, project *models.Project, task *models.Task, passthrough []string) (string, interface{}, error) {
	manifest, err := h.Manifest(ws, project, task, passthrough)
	if err != nil {
		return "", nil, err
	}
	return manifest.Hash(), manifest, nil
}

// Manifest collects the hash inputs of a target.
func (h *Hasher) Manifest(ws *workspace.Workspace, project *models.Project, task *models.Task, passthrough []string) (*TargetManifest, error) {
	m := &TargetManifest{
		Target:          task.Target,
		Command:         task.Command,
		Args:            append([]string{}, task.Args...),
		PassthroughArgs: append([]string{}, passthrough...),
		Env:             map[string]string{},
		Type:            task.Type,
		Deps:            sortedCopy(task.Deps),
		Outputs:         sortedCopy(task.OutputPaths),
		RunFromRoot:     task.Options.RunFromWorkspaceRoot,
	}
	for k, v := range task.Env {
		m.Env[k] = v
	}

	if task.Type == models.TaskTypeNode && ws != nil && ws.Toolchain != nil && ws.Toolchain.Node != nil {
		m.NodeVersion = ws.Toolchain.Node.Version()
		m.NodeBin = ws.Toolchain.Node.BinPath()
	}

	inputs, err := collectInputs(project.Root, task)
	if err != nil {
		return nil, fmt.Errorf("hashing inputs of %s: %w", task.Target, err)
	}
	m.Inputs = inputs
	return m, nil
}

// collectInputs hashes the files matched by the task's inputs, or every
// project file when none are declared. Declared outputs are excluded.
func collectInputs(root string, task *models.Task) (map[string]string, error) {
	patterns := task.Inputs
	if len(patterns) == 0 {
		patterns = []string{"."}
	}

	excluded := make(map[string]bool, len(task.OutputPaths))
	for _, out := range task.OutputPaths {
		excluded[filepath.Clean(filepath.FromSlash(out))] = true
	}

	inputs := map[string]string{}
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(root, filepath.FromSlash(pattern)))
		if err != nil {
			return nil, fmt.Errorf("invalid input pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			if err := walkInput(root, match, excluded, inputs); err != nil {
				return nil, err
			}
		}
	}
	return inputs, nil
}

func walkInput(root, start string, excluded map[string]bool, inputs map[string]string) error {
	return filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != start && (skipDirs[d.Name()] || excluded[rel]) {
				return filepath.SkipDir
			}
			return nil
		}
		if excluded[rel] || !d.Type().IsRegular() {
			return nil
		}
		sum, err := fileSum(path)
		if err != nil {
			return err
		}
		inputs[filepath.ToSlash(rel)] = sum
		return nil
	})
}

func fileSum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func sortedCopy(in []string) []string {
	out := append([]string{}, in...)
	sort.Strings(out)
	return out
}

// ShortHash abbreviates a hash for display.
func ShortHash(hash string) string {
	hash = strings.TrimSpace(hash)
	if len(hash) <= 12 {
		return hash
	}
	return hash[:12]
}
