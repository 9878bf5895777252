package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ldaudit/ldaudit/internal/logging"
)

var (
	// ErrScanRootInvalid is returned when the scan root is missing or not a directory.
	ErrScanRootInvalid = errors.New("scan root is not a readable directory")

	// ErrFileUnreadable wraps per-file read and decode failures in warnings.
	ErrFileUnreadable = errors.New("file unreadable")
)

// Scanner walks a directory tree looking for flag key references.
type Scanner struct {
	cfg      Config
	exts     nameSet
	excludes nameSet
	matcher  Matcher
}

// New validates cfg and returns a Scanner.
func New(cfg Config) (*Scanner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	excludes := cfg.ExcludeDirs
	if excludes == nil {
		excludes = defaultExcludeDirs
	}
	matcher := cfg.Matcher
	if matcher == nil {
		matcher = SubstringMatcher{}
	}

	return &Scanner{
		cfg:      cfg,
		exts:     newNameSet(cfg.Extensions, normalizeExtension),
		excludes: newNameSet(excludes, normalizeDirName),
		matcher:  matcher,
	}, nil
}

// candidate is a file selected by the walk for content scanning.
type candidate struct {
	path string
	rel  string
}

// fileResult is the per-file outcome written by exactly one worker.
type fileResult struct {
	matches []Match
	warning *FileWarning
	scanned bool
	binary  bool
	tooBig  bool
}

// Scan walks the configured root and reports every line referencing one of
// keys. Unreadable files are recorded as warnings; only an invalid root or
// context cancellation fails the scan.
func (s *Scanner) Scan(ctx context.Context, keys []string) (*Result, error) {
	log := logging.FromContext(ctx)

	root, err := s.resolveRoot()
	if err != nil {
		return nil, err
	}

	keys = normalizeKeys(keys)
	result := &Result{
		Root:    root,
		Matcher: s.matcher.Name(),
		Keys:    keys,
		Matches: []Match{},
	}

	candidates, err := s.walk(ctx, root, result)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Ctx(ctx).
		Str("component", "scanner").
		Str("operation", "scan").
		Str("root", root).
		Int("candidates", len(candidates)).
		Int("keys", len(keys)).
		Msg("directory walk complete")

	if len(keys) == 0 || len(candidates) == 0 {
		sortWarnings(result.Warnings)
		return result, nil
	}

	results := make([]fileResult, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.workers())
	for i, c := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.scanFile(c, keys)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan cancelled: %w", err)
	}

	for _, fr := range results {
		if fr.warning != nil {
			result.Warnings = append(result.Warnings, *fr.warning)
		}
		if fr.binary {
			result.Stats.SkippedBinary++
		}
		if fr.tooBig {
			result.Stats.SkippedSize++
		}
		if fr.scanned {
			result.Stats.FilesScanned++
		}
		result.Matches = append(result.Matches, fr.matches...)
	}
	sortMatches(result.Matches)
	sortWarnings(result.Warnings)

	for _, w := range result.Warnings {
		log.Warn().
			Ctx(ctx).
			Str("component", "scanner").
			Str("path", w.Path).
			Err(w.Err).
			Msg("file skipped")
	}

	log.Debug().
		Ctx(ctx).
		Str("component", "scanner").
		Str("operation", "scan").
		Int("files_scanned", result.Stats.FilesScanned).
		Int("matches", len(result.Matches)).
		Int("warnings", len(result.Warnings)).
		Msg("scan complete")

	return result, nil
}

// ValidateRoot checks that the configured root exists and is a directory.
func (s *Scanner) ValidateRoot() error {
	_, err := s.resolveRoot()
	return err
}

func (s *Scanner) resolveRoot() (string, error) {
	root, err := filepath.Abs(s.cfg.Root)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrScanRootInvalid, s.cfg.Root, err)
	}
	if resolved, evalErr := filepath.EvalSymlinks(root); evalErr == nil {
		root = resolved
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrScanRootInvalid, s.cfg.Root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrScanRootInvalid, s.cfg.Root)
	}
	return root, nil
}

// walk selects candidate files in lexical depth-first order. Symlinked
// directories are not followed.
func (s *Scanner) walk(ctx context.Context, root string, result *Result) ([]candidate, error) {
	var candidates []candidate

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return fmt.Errorf("%w: %w", ErrScanRootInvalid, walkErr)
			}
			result.Warnings = append(result.Warnings, FileWarning{
				Path: relPath(root, path),
				Err:  fmt.Errorf("%w: %w", ErrFileUnreadable, walkErr),
			})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && s.excludes.has(d.Name()) {
				result.Stats.DirsExcluded++
				return filepath.SkipDir
			}
			return nil
		}

		size, ok, err := regularFileSize(path, d)
		if err != nil {
			result.Warnings = append(result.Warnings, FileWarning{
				Path: relPath(root, path),
				Err:  fmt.Errorf("%w: %w", ErrFileUnreadable, err),
			})
			return nil
		}
		if !ok {
			return nil
		}

		result.Stats.FilesVisited++
		if !s.exts.acceptsFile(d.Name()) {
			result.Stats.SkippedExtension++
			return nil
		}
		if s.cfg.MaxFileSize > 0 && size > s.cfg.MaxFileSize {
			result.Stats.SkippedSize++
			return nil
		}

		candidates = append(candidates, candidate{path: path, rel: relPath(root, path)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

// regularFileSize reports the size of a regular file, resolving symlinks to
// files. ok is false for anything that should not be scanned.
func regularFileSize(path string, d fs.DirEntry) (int64, bool, error) {
	if d.Type()&fs.ModeSymlink != 0 {
		info, err := os.Stat(path)
		if err != nil {
			return 0, false, err
		}
		if !info.Mode().IsRegular() {
			return 0, false, nil
		}
		return info.Size(), true, nil
	}
	if !d.Type().IsRegular() {
		return 0, false, nil
	}
	info, err := d.Info()
	if err != nil {
		return 0, false, err
	}
	return info.Size(), true, nil
}

func (s *Scanner) scanFile(c candidate, keys []string) fileResult {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return fileResult{warning: &FileWarning{Path: c.rel, Err: fmt.Errorf("%w: %w", ErrFileUnreadable, err)}}
	}
	// The file may have grown since the walk looked at it.
	if s.cfg.MaxFileSize > 0 && int64(len(data)) > s.cfg.MaxFileSize {
		return fileResult{tooBig: true}
	}

	text, err := decodeText(data)
	if errors.Is(err, ErrBinaryFile) {
		return fileResult{binary: true, warning: &FileWarning{Path: c.rel, Err: err}}
	}
	if err != nil {
		return fileResult{warning: &FileWarning{Path: c.rel, Err: fmt.Errorf("%w: %w", ErrFileUnreadable, err)}}
	}

	var matches []Match
	lineNo := 0
	for {
		lineNo++
		line, rest, more := strings.Cut(text, "\n")
		line = strings.TrimSuffix(line, "\r")
		for _, key := range keys {
			if s.matcher.Match(line, key) {
				matches = append(matches, Match{
					Key:  key,
					Path: c.rel,
					Line: lineNo,
					Text: strings.TrimSpace(line),
				})
			}
		}
		if !more {
			break
		}
		text = rest
	}
	return fileResult{matches: matches, scanned: true}
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// normalizeKeys trims, dedupes and sorts keys, dropping empty ones.
func normalizeKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortWarnings(ws []FileWarning) {
	sort.SliceStable(ws, func(i, j int) bool { return ws[i].Path < ws[j].Path })
}
