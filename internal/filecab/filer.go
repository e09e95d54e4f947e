package filecab

import (
	"fmt"
	"os"
	"path/filepath"
)

// MoveFile moves source to dest, creating any missing intermediate
// directories. The move is an atomic rename; an existing file at dest aborts
// the move with a ConflictError and leaves source untouched. Nothing is ever
// overwritten. Other filesystem failures surface as plain errors with no
// automatic retry.
func MoveFile(source, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating destination directory: %w", err)
	}

	if _, err := os.Lstat(dest); err == nil {
		return &ConflictError{Destination: dest}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking destination: %w", err)
	}

	if err := os.Rename(source, dest); err != nil {
		return fmt.Errorf("moving file: %w", err)
	}
	return nil
}
