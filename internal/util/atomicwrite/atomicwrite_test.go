package atomicwrite

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAtomicWriteFile_CreatesDirAndReplaces(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "keys")
	path := filepath.Join(dir, "k.pem")

	if err := AtomicWriteFile(path, []byte("one"), 0o600); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := AtomicWriteFile(path, []byte("two"), 0o600); err != nil {
		t.Fatalf("second write: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "two" {
		t.Fatalf("content = %q, want %q", got, "two")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the final file, got %d entries", len(entries))
	}
}
