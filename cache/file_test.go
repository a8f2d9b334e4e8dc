package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_Contract(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "entries"))
	if err != nil {
		t.Fatal(err)
	}
	testStoreContract(t, s)
}

// TestFileStore_Layout verifies entries are sharded by hash prefix.
func TestFileStore_Layout(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewFileStore(dir)
	if err := s.Put(context.Background(), sampleEntry("cmd:abcdef", "x")); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "ab", "abcdef.json")); err != nil {
		t.Errorf("expected sharded file: %v", err)
	}
}

func TestFileStore_Corrupt(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewFileStore(dir)
	if err := os.MkdirAll(filepath.Join(dir, "ff"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ff", "ff00.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(context.Background(), "cmd:ff00"); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Get() error = %v, want ErrCorrupt", err)
	}
}

func TestFileStore_InvalidIdentity(t *testing.T) {
	s, _ := NewFileStore(t.TempDir())
	if _, err := s.Get(context.Background(), "cmd:../x"); err != ErrInvalidIdentity {
		t.Errorf("Get() error = %v, want ErrInvalidIdentity", err)
	}
	if err := s.Delete(context.Background(), ""); err != ErrInvalidIdentity {
		t.Errorf("Delete() error = %v, want ErrInvalidIdentity", err)
	}
}

func TestNewFileStore_RequiresDir(t *testing.T) {
	if _, err := NewFileStore(""); err == nil {
		t.Error("NewFileStore(\"\") should fail")
	}
}
