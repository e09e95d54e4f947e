package filecab

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestMoveFile(t *testing.T) {
	t.Parallel()

	t.Run("creates intermediate directories", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		source := filepath.Join(dir, "invoice.pdf")
		dest := filepath.Join(dir, "archive", "Taxes", "2021", "invoice.pdf")
		writeFile(t, source, "contents")

		if err := MoveFile(source, dest); err != nil {
			t.Fatalf("MoveFile: %v", err)
		}

		data, err := os.ReadFile(dest)
		if err != nil {
			t.Fatalf("reading destination: %v", err)
		}
		if string(data) != "contents" {
			t.Errorf("destination contents = %q", data)
		}
		if _, err := os.Lstat(source); !os.IsNotExist(err) {
			t.Error("source still exists after move")
		}
	})

	t.Run("conflict aborts and preserves source", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		source := filepath.Join(dir, "invoice.pdf")
		dest := filepath.Join(dir, "archive", "invoice.pdf")
		writeFile(t, source, "new")
		writeFile(t, dest, "existing")

		err := MoveFile(source, dest)
		var conflict *ConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("expected ConflictError, got %v", err)
		}
		if conflict.Destination != dest {
			t.Errorf("conflict destination = %q, want %q", conflict.Destination, dest)
		}

		if data, err := os.ReadFile(source); err != nil || string(data) != "new" {
			t.Errorf("source disturbed: %q, %v", data, err)
		}
		if data, err := os.ReadFile(dest); err != nil || string(data) != "existing" {
			t.Errorf("destination disturbed: %q, %v", data, err)
		}
	})

	t.Run("missing source", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		err := MoveFile(filepath.Join(dir, "absent.pdf"), filepath.Join(dir, "out", "absent.pdf"))
		if err == nil {
			t.Fatal("expected an error for a missing source")
		}
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			t.Error("missing source must not be reported as a conflict")
		}
	})
}
