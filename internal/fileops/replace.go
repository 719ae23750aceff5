// Package fileops moves finished downloads into the library without ever
// leaving a half-written or missing file behind.
package fileops

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Indirections for fault injection in tests.
var (
	statFile   = os.Stat
	renameFile = os.Rename
	removeFile = os.Remove
)

// BackupSuffix names the copy of the old file parked while a replacement
// is in flight.
const BackupSuffix = ".ytmp3.bak"

// swap is one replacement of dst by src.
type swap struct {
	src    string
	dst    string
	backup string
	parked bool
}

// Replace renames src onto dst. An existing dst is parked under
// BackupSuffix first and put back if the rename fails.
func Replace(src string, dst string) error {
	s := &swap{src: strings.TrimSpace(src), dst: strings.TrimSpace(dst)}
	if err := s.check(); err != nil {
		return err
	}
	s.backup = s.dst + BackupSuffix

	if err := s.clearStaleBackup(); err != nil {
		return err
	}
	if err := s.park(); err != nil {
		return err
	}
	if err := renameFile(s.src, s.dst); err != nil {
		return s.rollback(err)
	}
	if s.parked {
		if err := removeFile(s.backup); err != nil {
			return fmt.Errorf("remove backup %q: %w", s.backup, err)
		}
	}
	return nil
}

func (s *swap) check() error {
	switch {
	case s.src == "":
		return errors.New("replace: source path is empty")
	case s.dst == "":
		return errors.New("replace: destination path is empty")
	case s.src == s.dst:
		return fmt.Errorf("replace: source and destination are both %s", s.src)
	}
	info, err := statFile(s.src)
	if err != nil {
		return fmt.Errorf("replace: stat source: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("replace: source %s is a directory", s.src)
	}
	return nil
}

// clearStaleBackup drops a backup left behind by an earlier crash.
func (s *swap) clearStaleBackup() error {
	_, err := statFile(s.backup)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("replace: stat backup %q: %w", s.backup, err)
	}
	if err := removeFile(s.backup); err != nil {
		return fmt.Errorf("replace: remove stale backup %q: %w", s.backup, err)
	}
	return nil
}

func (s *swap) park() error {
	_, err := statFile(s.dst)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("replace: stat destination %q: %w", s.dst, err)
	}
	if err := renameFile(s.dst, s.backup); err != nil {
		return fmt.Errorf("replace: park existing file: %w", err)
	}
	s.parked = true
	return nil
}

func (s *swap) rollback(cause error) error {
	if !s.parked {
		return fmt.Errorf("replace %s: %w", s.dst, cause)
	}
	if err := renameFile(s.backup, s.dst); err != nil {
		return fmt.Errorf("replace %s failed (%v) and restoring the old file failed: %w", s.dst, cause, err)
	}
	return fmt.Errorf("replace %s: %w", s.dst, cause)
}
