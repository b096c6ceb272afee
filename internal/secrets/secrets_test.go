package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := &fileStore{path: filepath.Join(dir, fallbackFileName)}

	if _, err := store.OracleKey(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty store error = %v, want ErrNotFound", err)
	}

	if err := store.SetOracleKey("sk-test-123"); err != nil {
		t.Fatalf("SetOracleKey: %v", err)
	}

	got, err := store.OracleKey()
	if err != nil {
		t.Fatalf("OracleKey: %v", err)
	}
	if got != "sk-test-123" {
		t.Errorf("key = %q", got)
	}

	info, err := os.Stat(store.path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("key file permissions = %o, want 0600", perm)
	}

	if err := store.DeleteOracleKey(); err != nil {
		t.Fatalf("DeleteOracleKey: %v", err)
	}
	if _, err := store.OracleKey(); !errors.Is(err, ErrNotFound) {
		t.Errorf("after delete error = %v, want ErrNotFound", err)
	}

	// Deleting an absent key is not an error.
	if err := store.DeleteOracleKey(); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestFileStoreTrimsWhitespace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, fallbackFileName)
	if err := os.WriteFile(path, []byte("  sk-abc\n"), 0600); err != nil {
		t.Fatal(err)
	}

	store := &fileStore{path: path}
	got, err := store.OracleKey()
	if err != nil {
		t.Fatalf("OracleKey: %v", err)
	}
	if got != "sk-abc" {
		t.Errorf("key = %q, want trimmed value", got)
	}
}
