package scanner

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Scanner defaults.
const (
	// DefaultMaxFileSizeMB is the size cap applied by the CLI when none is given.
	DefaultMaxFileSizeMB = 5

	// BytesPerMB converts the CLI's megabyte flag to bytes.
	BytesPerMB = 1024 * 1024
)

// ErrInvalidConfig is returned by New for malformed configuration.
var ErrInvalidConfig = errors.New("invalid scan configuration")

// defaultExcludeDirs are skipped during every walk: version-control metadata,
// dependency trees and build output.
//
//nolint:gochecknoglobals // Read-only lookup table.
var defaultExcludeDirs = []string{
	".git", ".hg", ".svn", ".jj",
	"node_modules", "vendor", "bower_components",
	"__pycache__", ".pytest_cache", ".venv", "venv", "env", ".tox",
	"dist", "build", "bin", "obj", "target", ".next",
}

// DefaultExcludeDirs returns a copy of the directory names skipped by default.
func DefaultExcludeDirs() []string {
	out := make([]string, len(defaultExcludeDirs))
	copy(out, defaultExcludeDirs)
	return out
}

// Config controls a scan.
type Config struct {
	// Root is the directory to walk.
	Root string

	// Extensions limits scanning to files ending in ".<ext>". Matching is
	// case-insensitive and a leading dot is optional. Empty scans every file.
	Extensions []string

	// MaxFileSize skips files larger than this many bytes. Zero disables the cap.
	MaxFileSize int64

	// ExcludeDirs are directory names never descended into, compared
	// case-insensitively. Nil uses DefaultExcludeDirs; an empty non-nil slice
	// excludes nothing.
	ExcludeDirs []string

	// Workers bounds how many files are read concurrently. Zero uses NumCPU.
	Workers int

	// Matcher decides whether a line references a key. Nil uses SubstringMatcher.
	Matcher Matcher
}

// Validate reports configuration errors that do not need filesystem access.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Root) == "" {
		return fmt.Errorf("%w: root directory is required", ErrInvalidConfig)
	}
	if c.MaxFileSize < 0 {
		return fmt.Errorf("%w: max file size must be >= 0, got %d", ErrInvalidConfig, c.MaxFileSize)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0, got %d", ErrInvalidConfig, c.Workers)
	}
	return nil
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// nameSet is a case-insensitive set of names.
type nameSet map[string]struct{}

func newNameSet(names []string, normalize func(string) string) nameSet {
	set := make(nameSet, len(names))
	for _, n := range names {
		n = normalize(n)
		if n == "" {
			continue
		}
		set[n] = struct{}{}
	}
	return set
}

func (s nameSet) has(name string) bool {
	_, ok := s[strings.ToLower(name)]
	return ok
}

func normalizeDirName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func normalizeExtension(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}

// acceptsFile reports whether a file name passes the extension allow-list.
// Suffix matching lets multi-part extensions such as "d.ts" work.
func (s nameSet) acceptsFile(name string) bool {
	if len(s) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for ext := range s {
		if strings.HasSuffix(lower, "."+ext) {
			return true
		}
	}
	return false
}
