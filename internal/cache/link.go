package cache

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutputMissing indicates a declared output was not produced.
var ErrOutputMissing = errors.New("declared output does not exist")

// LinkTaskOutput publishes outputPath (relative to projectRoot) into
// out/{hash}/{outputPath}. Files are hard-linked, falling back to a copy
// across devices. Re-linking the same hash and path is a no-op.
func (e *Engine) LinkTaskOutput(hash, projectRoot, outputPath string) error {
	rel, err := cleanOutputPath(outputPath)
	if err != nil {
		return err
	}
	if hash == "" {
		return fmt.Errorf("linking %s: empty hash", outputPath)
	}

	src := filepath.Join(projectRoot, rel)
	dst := filepath.Join(e.OutDir, hash, rel)

	if _, err := os.Lstat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrOutputMissing, outputPath)
		}
		return fmt.Errorf("reading output %s: %w", outputPath, err)
	}

	linked := 0
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		sub, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, sub)

		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0755)
		case d.Type()&fs.ModeSymlink != 0:
			return linkSymlink(path, target)
		case d.Type().IsRegular():
			created, err := linkFile(path, target)
			if created {
				linked++
			}
			return err
		default:
			// sockets, devices and pipes are not cacheable
			return nil
		}
	})
	if err != nil {
		return fmt.Errorf("linking output %s: %w", outputPath, err)
	}

	log.Printf("[cache] linked %d new file(s) from %s into out/%s", linked, outputPath, hash)
	return nil
}

func cleanOutputPath(outputPath string) (string, error) {
	if outputPath == "" || filepath.IsAbs(outputPath) {
		return "", fmt.Errorf("output path %q must be relative to the project root", outputPath)
	}
	rel := filepath.Clean(outputPath)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("output path %q escapes the project root", outputPath)
	}
	return rel, nil
}

// linkFile reports whether a new entry was created.
func linkFile(src, dst string) (bool, error) {
	if _, err := os.Lstat(dst); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return false, err
	}

	err := os.Link(src, dst)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrExist) {
		// another worker linked the same hash first
		return false, nil
	}
	if err := copyFile(src, dst); err != nil {
		return false, err
	}
	return true, nil
}

func linkSymlink(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return nil
	}
	target, err := os.Readlink(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	if err := os.Symlink(target, dst); err != nil && !errors.Is(err, fs.ErrExist) {
		return err
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if _, err := os.Lstat(dst); err == nil {
		return nil
	}
	return os.Rename(tmpName, dst)
}
