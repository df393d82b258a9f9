package filesystem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestLocalFileSystem(t *testing.T) {
	tempDir := t.TempDir()
	fs := NewLocalFileSystem(tempDir)

	// Test WriteFile
	content := []byte("Hello, World!")
	if err := fs.WriteFile("test.txt", content); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	onDisk, err := os.ReadFile(filepath.Join(tempDir, "test.txt"))
	if err != nil {
		t.Fatalf("file not written under root: %v", err)
	}
	if string(onDisk) != string(content) {
		t.Errorf("Expected %s on disk, got %s", content, onDisk)
	}

	// Test ReadFile
	readContent, err := fs.ReadFile("test.txt")
	if err != nil {
		t.Errorf("ReadFile failed: %v", err)
	}
	if string(readContent) != string(content) {
		t.Errorf("Expected %s, got %s", content, readContent)
	}

	// Test overwrite
	if err := fs.WriteFile("test.txt", []byte("short")); err != nil {
		t.Errorf("WriteFile overwrite failed: %v", err)
	}
	readContent, _ = fs.ReadFile("test.txt")
	if string(readContent) != "short" {
		t.Errorf("Expected overwrite to replace content, got %s", readContent)
	}

	// Test nested names create directories
	if err := fs.WriteFile("nested/dir/file.bin", []byte{0, 1, 2}); err != nil {
		t.Errorf("WriteFile nested failed: %v", err)
	}
	readContent, err = fs.ReadFile("nested/dir/file.bin")
	if err != nil || len(readContent) != 3 {
		t.Errorf("ReadFile nested failed: %v %v", readContent, err)
	}

	// Test empty file
	if err := fs.WriteFile("empty", nil); err != nil {
		t.Errorf("WriteFile empty failed: %v", err)
	}
	readContent, err = fs.ReadFile("empty")
	if err != nil || len(readContent) != 0 {
		t.Errorf("ReadFile empty failed: %v %v", readContent, err)
	}

	// No temporary files are left behind
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) == ".tmp" {
			t.Errorf("temporary file left behind: %s", entry.Name())
		}
	}
}

func TestLocalFileSystemNotFound(t *testing.T) {
	tempDir := t.TempDir()
	fs := NewLocalFileSystem(tempDir)

	if _, err := fs.ReadFile("missing.txt"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Expected ErrFileNotFound, got %v", err)
	}

	if err := os.Mkdir(filepath.Join(tempDir, "dir"), 0770); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.ReadFile("dir"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Expected ErrFileNotFound for a directory, got %v", err)
	}
}

func TestLocalFileSystemInvalidPath(t *testing.T) {
	tempDir := t.TempDir()
	root := filepath.Join(tempDir, "root")
	fs := NewLocalFileSystem(root)

	for _, name := range []string{"", "../escape.txt", "a/../../escape.txt", "/etc/passwd", "..", ".", "a/.."} {
		if err := fs.WriteFile(name, []byte("x")); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("WriteFile(%q): expected ErrInvalidPath, got %v", name, err)
		}
		if _, err := fs.ReadFile(name); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("ReadFile(%q): expected ErrInvalidPath, got %v", name, err)
		}
	}

	if _, err := os.Stat(filepath.Join(tempDir, "escape.txt")); !os.IsNotExist(err) {
		t.Error("file written outside of root")
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if entry.Name() != "root" {
			t.Errorf("unexpected %s next to the root", entry.Name())
		}
	}
}

func TestLocalFileSystemConcurrentWrites(t *testing.T) {
	fs := NewLocalFileSystem(t.TempDir())

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := []byte(fmt.Sprintf("writer-%02d", i))
			if err := fs.WriteFile("shared.txt", payload); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	content, err := fs.ReadFile("shared.txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(content) != len("writer-00") {
		t.Errorf("content is a mix of writes: %q", content)
	}

	local := fs.(*localFileSystem)
	if n := len(local.locks.locks); n != 0 {
		t.Errorf("expected released locks to be forgotten, %d left", n)
	}
}

func TestMemoryFileSystem(t *testing.T) {
	fs := NewMemoryFileSystem()

	if _, err := fs.ReadFile("a.txt"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Expected ErrFileNotFound, got %v", err)
	}

	content := []byte("hello")
	if err := fs.WriteFile("a.txt", content); err != nil {
		t.Fatal(err)
	}
	content[0] = 'j'

	got, err := fs.ReadFile("a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Errorf("store must copy on write, got %s", got)
	}

	for _, name := range []string{"../a.txt", ".", "a/.."} {
		if _, err := fs.ReadFile(name); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("ReadFile(%q): expected ErrInvalidPath, got %v", name, err)
		}
	}
	if fs.Len() != 1 {
		t.Errorf("Expected 1 file, got %d", fs.Len())
	}
}
