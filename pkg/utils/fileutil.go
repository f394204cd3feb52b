package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteAtomic streams content into a temporary file beside dest and renames it
// into place. Readers see either the old file or the complete new one.
func WriteAtomic(dest string, perm os.FileMode, write func(w io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	fail := func(step string, err error) error {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%s %s: %w", step, filepath.Base(dest), err)
	}

	if err := write(tmp); err != nil {
		return fail("write", err)
	}
	if err := tmp.Close(); err != nil {
		return fail("close", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fail("chmod", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return fail("rename", err)
	}
	return nil
}

// WriteFileAtomic is WriteAtomic for content already in memory.
func WriteFileAtomic(dest string, data []byte, perm os.FileMode) error {
	return WriteAtomic(dest, perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
