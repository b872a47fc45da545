package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()

	db := filepath.Join(dir, "refs.db")
	if err := os.WriteFile(db, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := DiskUsageBytes(db)
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Errorf("single file: got %d bytes, want 5", got)
	}

	if err := os.WriteFile(db+"-wal", []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err = DiskUsageBytes(db)
	if err != nil {
		t.Fatal(err)
	}
	if got != 8 {
		t.Errorf("with wal: got %d bytes, want 8", got)
	}

	index := filepath.Join(dir, "index")
	if err := os.MkdirAll(filepath.Join(index, "store"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(index, "store", "seg"), []byte("ab"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err = DiskUsageBytes(index)
	if err != nil {
		t.Fatal(err)
	}
	if got != 2 {
		t.Errorf("directory: got %d bytes, want 2", got)
	}
}

func TestDiskUsageBytes_MissingAndEmpty(t *testing.T) {
	got, err := DiskUsageBytes("", filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}
