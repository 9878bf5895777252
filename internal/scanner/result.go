package scanner

import (
	"sort"
)

// Match is one line of one file that references a key.
type Match struct {
	Key  string `json:"key"`
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// KeyMatches groups every match of one key.
type KeyMatches struct {
	Key     string  `json:"key"`
	Matches []Match `json:"matches"`
}

// FileWarning records a file or directory that could not be scanned.
type FileWarning struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

// Error implements error.
func (w FileWarning) Error() string {
	return w.Path + ": " + w.Err.Error()
}

// Unwrap returns the underlying cause.
func (w FileWarning) Unwrap() error { return w.Err }

// Stats counts what the walk saw.
type Stats struct {
	FilesVisited     int `json:"files_visited"`
	FilesScanned     int `json:"files_scanned"`
	SkippedExtension int `json:"skipped_extension"`
	SkippedSize      int `json:"skipped_size"`
	SkippedBinary    int `json:"skipped_binary"`
	DirsExcluded     int `json:"dirs_excluded"`
}

// Result is the outcome of a scan. Matches are ordered by path, line, key.
type Result struct {
	Root     string        `json:"root"`
	Matcher  string        `json:"matcher"`
	Keys     []string      `json:"keys"`
	Matches  []Match       `json:"matches"`
	Warnings []FileWarning `json:"-"`
	Stats    Stats         `json:"stats"`
}

// Grouped returns matches grouped by key, keys ascending. Keys with no
// matches are omitted.
func (r *Result) Grouped() []KeyMatches {
	byKey := r.ByKey()
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]KeyMatches, 0, len(keys))
	for _, k := range keys {
		out = append(out, KeyMatches{Key: k, Matches: byKey[k]})
	}
	return out
}

// ByKey indexes matches by key, preserving path/line order within each key.
func (r *Result) ByKey() map[string][]Match {
	out := make(map[string][]Match)
	for _, m := range r.Matches {
		out[m.Key] = append(out[m.Key], m)
	}
	return out
}

// Unreferenced returns the scanned keys with no match, in key order.
func (r *Result) Unreferenced() []string {
	byKey := r.ByKey()
	var out []string
	for _, k := range r.Keys {
		if _, ok := byKey[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}

func sortMatches(matches []Match) {
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Key < b.Key
	})
}
