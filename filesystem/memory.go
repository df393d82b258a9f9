package filesystem

import (
	"fmt"
	"path"
	"strings"
	"sync"
)

type MemoryFileSystem struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryFileSystem() *MemoryFileSystem {
	return &MemoryFileSystem{
		data: make(map[string][]byte),
	}
}

func (m *MemoryFileSystem) key(name string) (string, error) {
	if name == "" || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	cleaned := path.Clean(name)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	return cleaned, nil
}

func (m *MemoryFileSystem) ReadFile(name string) ([]byte, error) {
	key, err := m.key(name)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	content, found := m.data[key]
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}

	return append([]byte(nil), content...), nil
}

func (m *MemoryFileSystem) WriteFile(name string, content []byte) error {
	key, err := m.key(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = append([]byte(nil), content...)
	return nil
}

// Len returns the number of stored files.
func (m *MemoryFileSystem) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.data)
}
