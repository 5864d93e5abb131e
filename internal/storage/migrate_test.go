package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestMigrationFilesOrderedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "002_add_index.sql")
	writeFile(t, dir, "001_init.sql")
	writeFile(t, dir, "README.md")
	writeFile(t, dir, "010_retention.sql")
	if err := os.Mkdir(filepath.Join(dir, "archive"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := migrationFiles(dir)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"001_init.sql", "002_add_index.sql", "010_retention.sql"}
	if len(files) != len(want) {
		t.Fatalf("got %d files, want %d: %v", len(files), len(want), files)
	}
	for i, name := range want {
		if files[i] != name {
			t.Fatalf("position %d: got %s, want %s", i, files[i], name)
		}
	}
}

func TestMigrationFilesMissingDir(t *testing.T) {
	if _, err := migrationFiles(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("missing directory should be an error")
	}
}
