package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

var (
	ErrFileNotFound = errors.New("filesystem: file not found")
	ErrInvalidPath  = errors.New("filesystem: invalid path")
)

// Filesystem stores whole files by name. Names are slash separated and
// relative to the store root.
type Filesystem interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, content []byte) error
}

type localFileSystem struct {
	root  string
	locks *keyedMutex
}

// NewLocalFileSystem stores files under root. An empty root is the working directory.
func NewLocalFileSystem(root string) Filesystem {
	if root == "" {
		root = "."
	}

	return &localFileSystem{
		root:  root,
		locks: newKeyedMutex(),
	}
}

// resolve maps a name to a file below the root. Names that are empty,
// absolute, climb out of the root or name the root itself are rejected.
func (filesystem *localFileSystem) resolve(name string) (string, error) {
	local := filepath.FromSlash(name)
	if !filepath.IsLocal(local) || filepath.Clean(local) == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	return filepath.Join(filesystem.root, local), nil
}

func (filesystem *localFileSystem) ReadFile(name string) ([]byte, error) {
	path, err := filesystem.resolve(name)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrFileNotFound, name)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
		}
		return nil, err
	}

	return content, nil
}

// WriteFile replaces the file with content. Writers of the same name take
// turns; readers see either the old or the new content, never a mix.
func (filesystem *localFileSystem) WriteFile(name string, content []byte) error {
	path, err := filesystem.resolve(name)
	if err != nil {
		return err
	}

	unlock := filesystem.locks.lock(path)
	defer unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0770); err != nil {
		return err
	}

	file, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := file.Name()

	committed := false
	defer func() {
		if committed {
			return
		}
		if removeErr := os.Remove(tmpName); removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) {
			slog.Error("removing temporary file error", "file", tmpName, "error", removeErr)
		}
	}()

	if _, err := file.Write(content); err != nil {
		file.Close()
		return err
	}
	if err := file.Chmod(0644); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true

	return nil
}

// keyedMutex hands out one lock per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	m, found := k.locks[key]
	if !found {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()

	return func() {
		m.Unlock()

		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
