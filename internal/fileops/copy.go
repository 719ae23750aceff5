package fileops

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyFile copies src to dst, creating dst's directory. The copy is staged
// next to dst and swapped in with Replace.
func CopyFile(src string, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open copy source %q: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat copy source %q: %w", src, err)
	}
	if info.IsDir() {
		return fmt.Errorf("copy source is a directory: %s", src)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create copy directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".copy-*")
	if err != nil {
		return fmt.Errorf("create copy temp: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		_ = removeFile(tmpPath)
		return fmt.Errorf("copy %q: %w", src, err)
	}
	if err := tmp.Close(); err != nil {
		_ = removeFile(tmpPath)
		return fmt.Errorf("close copy temp: %w", err)
	}
	_ = os.Chmod(tmpPath, info.Mode().Perm())

	if err := Replace(tmpPath, dst); err != nil {
		_ = removeFile(tmpPath)
		return err
	}
	return nil
}

// MoveFile renames src onto dst (replacing it safely) and falls back to
// copy plus delete when the rename crosses filesystems.
func MoveFile(src string, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create move directory: %w", err)
	}
	err := Replace(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return err
	}

	if copyErr := CopyFile(src, dst); copyErr != nil {
		return fmt.Errorf("move %q: %w", src, errors.Join(err, copyErr))
	}
	if rmErr := removeFile(src); rmErr != nil {
		return fmt.Errorf("remove moved source %q: %w", src, rmErr)
	}
	return nil
}

// WriteFileAtomic writes data to a sibling temp file, then replaces path.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %q: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".write-*")
	if err != nil {
		return fmt.Errorf("create temp for %q: %w", path, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = removeFile(tmpPath)
		return fmt.Errorf("write temp for %q: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = removeFile(tmpPath)
		return fmt.Errorf("close temp for %q: %w", path, err)
	}
	_ = os.Chmod(tmpPath, perm)
	if err := Replace(tmpPath, path); err != nil {
		_ = removeFile(tmpPath)
		return err
	}
	return nil
}
