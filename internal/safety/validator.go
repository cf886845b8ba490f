package safety

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidPath   = errors.New("invalid path")
	ErrNotAbsolute   = errors.New("path must be absolute")
	ErrProtectedPath = errors.New("protected directory")
	ErrTraversal     = errors.New("path traversal detected")
)

// protectedDirs may never be a removal target themselves. Files inside
// them are fine: the pacemaker authkey lives under /etc.
var protectedDirs = []string{
	"/",
	"/etc",
	"/etc/pacemaker",
	"/etc/corosync",
	"/bin",
	"/sbin",
	"/usr",
	"/boot",
	"/lib",
	"/lib64",
	"/var",
	"/var/lib",
	"/var/lib/pcsd",
	"/var/lib/pacemaker",
}

// ValidateTarget checks that a configured removal target names a single
// file location rather than a system directory
func ValidateTarget(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrInvalidPath
	}
	if DetectTraversal(raw) {
		return "", fmt.Errorf("%w: %s", ErrTraversal, raw)
	}
	p := filepath.Clean(raw)
	if !filepath.IsAbs(p) {
		return "", fmt.Errorf("%w: %s", ErrNotAbsolute, raw)
	}
	if IsProtectedDir(p) {
		return "", fmt.Errorf("%w: %s", ErrProtectedPath, p)
	}
	return p, nil
}

// DetectTraversal blocks any ".." segment in raw input
func DetectTraversal(raw string) bool {
	for _, part := range strings.Split(filepath.ToSlash(raw), "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

// IsProtectedDir reports whether path is exactly one of the protected directories
func IsProtectedDir(path string) bool {
	p := filepath.Clean(path)
	if p == string(os.PathSeparator) {
		return true
	}
	for _, dir := range protectedDirs {
		if p == dir {
			return true
		}
	}
	return false
}
