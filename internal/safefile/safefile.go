// Package safefile opens and reads config, trigger and log files while
// rejecting symlinks, FIFOs, devices and oversized content.
package safefile

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Sentinel errors.
var (
	// ErrNotRegularFile is returned for symlinks, FIFOs, devices, sockets
	// and directories.
	ErrNotRegularFile = errors.New("not a regular file")

	// ErrTooLarge is returned when a file exceeds the read limit.
	ErrTooLarge = errors.New("file too large")

	// ErrEmpty is returned by ReadLimited for zero-length files.
	ErrEmpty = errors.New("file is empty")
)

// OpenRegular opens path and verifies it is a regular file.
//
// The path is checked with os.Lstat (symlinks are rejected), opened, and the
// descriptor is stat-ed again to catch a replacement between the two steps.
// A small window remains between Lstat and Open since Go does not expose
// O_NOFOLLOW portably.
//
// The caller must close the returned file.
func OpenRegular(path string) (*os.File, os.FileInfo, error) {
	linkInfo, err := os.Lstat(path)
	if err != nil {
		return nil, nil, err
	}
	if !linkInfo.Mode().IsRegular() {
		return nil, nil, ErrNotRegularFile
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, ErrNotRegularFile
	}

	return f, info, nil
}

// ReadLimited reads a whole regular file of at most max bytes.
// Returns ErrEmpty for an empty file and ErrTooLarge when the file is,
// or grows while being read, larger than max.
func ReadLimited(path string, max int64) ([]byte, error) {
	f, info, err := OpenRegular(path)
	if err != nil {
		return nil, SanitizePathError(err)
	}
	defer f.Close()

	if info.Size() == 0 {
		return nil, ErrEmpty
	}
	if info.Size() > max {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, info.Size(), max)
	}

	// Read one byte past the limit to detect growth since Stat
	data, err := io.ReadAll(io.LimitReader(f, max+1))
	if err != nil {
		return nil, SanitizePathError(err)
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, max)
	}
	return data, nil
}

// SanitizePathError strips the path from an *os.PathError so messages
// shown to users do not leak file system layout.
func SanitizePathError(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return fmt.Errorf("%s: %w", pathErr.Op, pathErr.Err)
	}
	return err
}
