package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// StagingPath returns the temporary sibling path used to stage output for
// path.  Staging in the same directory keeps the final rename atomic.
func StagingPath(path string) string {
	dir, base := filepath.Split(path)
	return filepath.Join(dir, fmt.Sprintf(".%s.tmp.%d", base, os.Getpid()))
}

// AtomicWriteFile writes data to path through a staged sibling file followed
// by a rename, so a crash mid-write can never leave a truncated file at
// path.
func AtomicWriteFile(path string, data []byte) error {
	staging := StagingPath(path)

	f, err := os.Create(staging)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(staging)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(staging)
		return err
	}

	if err := os.Rename(staging, path); err != nil {
		os.Remove(staging)
		return err
	}

	return nil
}

// PromoteStaging renames the staged file for path into place.
func PromoteStaging(path string) error {
	return os.Rename(StagingPath(path), path)
}

// DiscardStaging removes the staged file for path if one exists.
func DiscardStaging(path string) {
	os.Remove(StagingPath(path))
}
