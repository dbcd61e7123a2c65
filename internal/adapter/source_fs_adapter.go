// Package adapter contains the infrastructure adapters the evoprobe loader
// and CLI are built on: parsing and printing, disk access, package
// discovery and persistent stores.
package adapter

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/mod/modfile"

	m "github.com/mouse-blink/evoprobe/internal/model"
)

// ErrNoModule is returned when no go.mod is found above a path.
var ErrNoModule = errors.New("go.mod not found")

// SourceFSAdapter abstracts filesystem-specific operations the loader relies
// on. It hides direct `os` access so the loader can be tested without
// touching the disk.
//
//nolint:interfacebloat // A richer interface keeps loader logic decoupled from os/fs.
type SourceFSAdapter interface {
	// ReadFile loads a file from disk and returns its contents.
	ReadFile(path m.Path) ([]byte, error)

	// HashFile returns a stable fingerprint (SHA-256) for the file at path.
	HashFile(path m.Path) (string, error)

	// FileInfo returns metadata for a path.
	FileInfo(path m.Path) (os.FileInfo, error)

	// FindProjectRoot searches for go.mod file walking up the directory tree.
	FindProjectRoot(startPath m.Path) (m.Path, error)

	// ModulePath reads the module path declared in root/go.mod.
	ModulePath(root m.Path) (string, error)

	// WriteFile writes content to a file, creating parent directories.
	WriteFile(path m.Path, content []byte, perm os.FileMode) error

	// RemoveAll removes a path and all its contents.
	RemoveAll(path m.Path) error

	// RelPath returns the relative path from base to target.
	RelPath(base, target m.Path) (m.Path, error)

	// JoinPath joins path elements into a single path.
	JoinPath(elem ...string) m.Path
}

// LocalSourceFSAdapter implements SourceFSAdapter on the local disk.
type LocalSourceFSAdapter struct{}

// NewLocalSourceFSAdapter constructs a LocalSourceFSAdapter instance.
func NewLocalSourceFSAdapter() *LocalSourceFSAdapter {
	return &LocalSourceFSAdapter{}
}

// ReadFile loads file contents from disk.
func (a *LocalSourceFSAdapter) ReadFile(path m.Path) ([]byte, error) {
	return os.ReadFile(string(path))
}

// HashFile returns the SHA-256 hash of the file at the provided path.
func (a *LocalSourceFSAdapter) HashFile(path m.Path) (string, error) {
	f, err := os.Open(string(path))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// HashBytes returns the same fingerprint HashFile computes, for content
// already in memory.
func HashBytes(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

// FileInfo returns os.FileInfo metadata for the given path.
func (a *LocalSourceFSAdapter) FileInfo(path m.Path) (os.FileInfo, error) {
	return os.Stat(string(path))
}

// FindProjectRoot searches for go.mod file walking up the directory tree.
// startPath may be a directory or a file inside one.
func (a *LocalSourceFSAdapter) FindProjectRoot(startPath m.Path) (m.Path, error) {
	dir, err := filepath.Abs(string(startPath))
	if err != nil {
		return "", err
	}

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return m.Path(dir), nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w in any parent directory of %s", ErrNoModule, startPath)
		}

		dir = parent
	}
}

// ModulePath reads the module path declared in root/go.mod.
func (a *LocalSourceFSAdapter) ModulePath(root m.Path) (string, error) {
	content, err := os.ReadFile(filepath.Join(string(root), "go.mod"))
	if err != nil {
		return "", err
	}

	path := modfile.ModulePath(content)
	if path == "" {
		return "", fmt.Errorf("%w: no module directive in %s", ErrNoModule, root)
	}

	return path, nil
}

// WriteFile writes content to a file with the given permissions.
func (a *LocalSourceFSAdapter) WriteFile(path m.Path, content []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(string(path)), 0o750); err != nil {
		return err
	}

	return os.WriteFile(string(path), content, perm)
}

// RemoveAll removes a path and all its contents.
func (a *LocalSourceFSAdapter) RemoveAll(path m.Path) error {
	return os.RemoveAll(string(path))
}

// RelPath returns the relative path from base to target.
func (a *LocalSourceFSAdapter) RelPath(base, target m.Path) (m.Path, error) {
	rel, err := filepath.Rel(string(base), string(target))
	if err != nil {
		return "", err
	}

	return m.Path(rel), nil
}

// JoinPath joins path elements into a single path.
func (a *LocalSourceFSAdapter) JoinPath(elem ...string) m.Path {
	return m.Path(filepath.Join(elem...))
}
