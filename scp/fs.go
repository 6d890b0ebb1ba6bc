package scp

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileSystem is the local filesystem surface the transfer engine operates
// on. It is the authority on rooting and symlink policy: every name handed
// to it has already been translated to the native separator, and
// implementations may reject names that escape their root.
type FileSystem interface {
	Stat(name string) (fs.FileInfo, error)
	Open(name string) (io.ReadCloser, error)

	// Create opens name for truncating write, creating it if absent.
	Create(name string) (io.WriteCloser, error)

	Mkdir(name string, perm fs.FileMode) error
	ReadDir(name string) ([]fs.DirEntry, error)
	Chmod(name string, perm fs.FileMode) error
	Chtimes(name string, atime, mtime time.Time) error
}

// OsFS passes every operation straight to the os package.
type OsFS struct{}

func (OsFS) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }

func (OsFS) Open(name string) (io.ReadCloser, error) { return os.Open(name) }

func (OsFS) Create(name string) (io.WriteCloser, error) {
	return os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
}

func (OsFS) Mkdir(name string, perm fs.FileMode) error { return os.Mkdir(name, perm) }

func (OsFS) ReadDir(name string) ([]fs.DirEntry, error) { return os.ReadDir(name) }

func (OsFS) Chmod(name string, perm fs.FileMode) error { return os.Chmod(name, perm) }

func (OsFS) Chtimes(name string, atime, mtime time.Time) error {
	return os.Chtimes(name, atime, mtime)
}

// RootedFS confines every operation beneath Root. Relative names resolve
// against Root; names that lexically escape it are rejected.
type RootedFS struct {
	Root string
}

func (r RootedFS) resolve(name string) (string, error) {
	root := filepath.Clean(r.Root)
	joined := filepath.Clean(filepath.Join(root, name))
	if joined != root && !strings.HasPrefix(joined, root+string(filepath.Separator)) {
		return "", NewPathError(ErrCannotWrite, name, "outside transfer root")
	}
	return joined, nil
}

func (r RootedFS) Stat(name string) (fs.FileInfo, error) {
	p, err := r.resolve(name)
	if err != nil {
		return nil, err
	}
	return os.Stat(p)
}

func (r RootedFS) Open(name string) (io.ReadCloser, error) {
	p, err := r.resolve(name)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func (r RootedFS) Create(name string) (io.WriteCloser, error) {
	p, err := r.resolve(name)
	if err != nil {
		return nil, err
	}
	return os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
}

func (r RootedFS) Mkdir(name string, perm fs.FileMode) error {
	p, err := r.resolve(name)
	if err != nil {
		return err
	}
	return os.Mkdir(p, perm)
}

func (r RootedFS) ReadDir(name string) ([]fs.DirEntry, error) {
	p, err := r.resolve(name)
	if err != nil {
		return nil, err
	}
	return os.ReadDir(p)
}

func (r RootedFS) Chmod(name string, perm fs.FileMode) error {
	p, err := r.resolve(name)
	if err != nil {
		return err
	}
	return os.Chmod(p, perm)
}

func (r RootedFS) Chtimes(name string, atime, mtime time.Time) error {
	p, err := r.resolve(name)
	if err != nil {
		return err
	}
	return os.Chtimes(p, atime, mtime)
}
