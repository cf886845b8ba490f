package fsops

import (
	"io/fs"
	"sync"
)

// FakeDeleter implements Deleter for testing
// Tracks a set of existing paths and records every call made against it
type FakeDeleter struct {
	mu    sync.Mutex
	Calls []string

	// Files holds the paths that currently exist
	Files map[string]bool
	// RemoveErrors forces Remove to fail for a path; the file stays present
	RemoveErrors map[string]error
	// StatErrors forces Exists to fail for a path
	StatErrors map[string]error
	// VanishOnRemove makes the file disappear right before Remove runs,
	// simulating another actor deleting it after the existence check
	VanishOnRemove map[string]bool
}

// NewFakeDeleter returns a fake where the given paths exist
func NewFakeDeleter(existing ...string) *FakeDeleter {
	f := &FakeDeleter{
		Files:          map[string]bool{},
		RemoveErrors:   map[string]error{},
		StatErrors:     map[string]error{},
		VanishOnRemove: map[string]bool{},
	}
	for _, p := range existing {
		f.Files[p] = true
	}
	return f
}

func (f *FakeDeleter) Exists(path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "stat:"+path)
	if err := f.StatErrors[path]; err != nil {
		return false, err
	}
	return f.Files[path], nil
}

func (f *FakeDeleter) Remove(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "rm:"+path)
	if f.VanishOnRemove[path] {
		delete(f.Files, path)
	}
	if err := f.RemoveErrors[path]; err != nil {
		return err
	}
	if !f.Files[path] {
		return &fs.PathError{Op: "remove", Path: path, Err: fs.ErrNotExist}
	}
	delete(f.Files, path)
	return nil
}

// Removed reports whether Remove was called for path
func (f *FakeDeleter) Removed(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.Calls {
		if c == "rm:"+path {
			return true
		}
	}
	return false
}
