// Package fsutil holds small filesystem helpers shared by the exporters.
package fsutil

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteAtomic streams the output of write into a temporary file next to path
// and renames it over path only when every step succeeded. On failure the
// temporary file is removed and any existing file at path is left untouched.
func WriteAtomic(path string, perm os.FileMode, write func(w io.Writer) error) error {
	filename, err := stage(path, perm, write)
	if err != nil {
		return err
	}

	if err := os.Rename(filename, path); err != nil {
		os.Remove(filename)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// WriteFileAtomic is WriteAtomic for an in-memory payload.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return WriteAtomic(path, perm, payload(data))
}

// File is one destination of WriteFilesAtomic.
type File struct {
	Path string
	Data []byte
	Perm os.FileMode
}

// WriteFilesAtomic writes every file to a temporary sibling first and renames
// them into place only once all of them are staged, so a failure while
// writing leaves every destination untouched. The renames themselves run in
// order; if one fails, earlier destinations have already been replaced and
// the remaining temporary files are removed.
func WriteFilesAtomic(files []File) error {
	staged := make([]string, 0, len(files))
	discard := func(names []string) {
		for _, name := range names {
			os.Remove(name)
		}
	}

	for _, f := range files {
		filename, err := stage(f.Path, f.Perm, payload(f.Data))
		if err != nil {
			discard(staged)
			return fmt.Errorf("%s: %w", f.Path, err)
		}
		staged = append(staged, filename)
	}

	for i, f := range files {
		if err := os.Rename(staged[i], f.Path); err != nil {
			discard(staged[i:])
			return fmt.Errorf("%s: failed to rename temp file: %w", f.Path, err)
		}
	}
	return nil
}

func payload(data []byte) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	}
}

// stage writes a synced temporary file next to path and returns its name.
// The caller owns the file on success.
func stage(path string, perm os.FileMode, write func(w io.Writer) error) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempFile.Name())
		}
	}()

	buf := bufio.NewWriter(tempFile)
	if err := write(buf); err != nil {
		return "", err
	}
	if err := buf.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush temp file: %w", err)
	}

	if err := tempFile.Chmod(perm); err != nil {
		return "", fmt.Errorf("failed to chmod temp file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		return "", fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	filename := tempFile.Name()
	tempFile = nil // Prevent defer from removing it
	return filename, nil
}
