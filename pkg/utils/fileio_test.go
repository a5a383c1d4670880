package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAtomicWriteFile(t *testing.T) {
	tmpDir := t.TempDir()

	filePath := filepath.Join(tmpDir, "test.txt")
	testData := []byte("Hello, World!")

	if err := AtomicWriteFile(filePath, testData, 0600); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}

	if string(content) != string(testData) {
		t.Errorf("File content mismatch. Expected %q, got %q", testData, content)
	}

	info, err := os.Stat(filePath)
	if err != nil {
		t.Fatalf("Failed to stat file: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected permissions 0600, got %v", info.Mode().Perm())
	}

	// No temporary files may be left behind
	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected only the target file in %s, found %d entries", tmpDir, len(entries))
	}
}

func TestAtomicWriteFileWithSubdirectory(t *testing.T) {
	tmpDir := t.TempDir()

	filePath := filepath.Join(tmpDir, "subdir", "test.txt")

	if err := AtomicWriteFile(filePath, []byte("nested"), 0644); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	if _, err := os.Stat(filePath); err != nil {
		t.Errorf("Expected file to exist: %v", err)
	}
}

func TestAtomicWriteFileOverwrite(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "test.txt")

	if err := AtomicWriteFile(filePath, []byte("first"), 0600); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := AtomicWriteFile(filePath, []byte("second"), 0600); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(content) != "second" {
		t.Errorf("Expected %q, got %q", "second", content)
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	if err := EnsureDir(dir, 0700); err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("Failed to stat dir: %v", err)
	}
	if !info.IsDir() {
		t.Error("Expected a directory")
	}
}
