package fsops

import (
	"errors"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// OSDeleter implements Deleter using real os package calls
type OSDeleter struct{}

// Exists reports false without error only when the path is definitely absent
func (OSDeleter) Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Remove unlinks path and refuses directories, empty or not
func (OSDeleter) Remove(path string) error {
	if err := unix.Unlink(path); err != nil {
		return &fs.PathError{Op: "remove", Path: path, Err: err}
	}
	return nil
}
