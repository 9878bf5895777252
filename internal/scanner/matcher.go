package scanner

import (
	"fmt"
	"strings"
)

// Matcher names accepted by MatcherByName.
const (
	MatchSubstring = "substring"
	MatchQuoted    = "quoted"
	MatchBoundary  = "boundary"
)

// Matcher decides whether a line references a flag key.
type Matcher interface {
	Match(line, key string) bool
	Name() string
}

// SubstringMatcher matches any literal occurrence of the key. A key that is
// part of a longer identifier still matches ("flag" inside "flag-v2"); the
// scanner prefers reporting a false positive over missing a reference.
type SubstringMatcher struct{}

// Match implements Matcher.
func (SubstringMatcher) Match(line, key string) bool {
	return strings.Contains(line, key)
}

// Name implements Matcher.
func (SubstringMatcher) Name() string { return MatchSubstring }

// QuotedMatcher only matches keys written as string literals: "key", 'key'
// or `key`.
type QuotedMatcher struct{}

// Match implements Matcher.
func (QuotedMatcher) Match(line, key string) bool {
	if !strings.Contains(line, key) {
		return false
	}
	for _, q := range []string{`"`, `'`, "`"} {
		if strings.Contains(line, q+key+q) {
			return true
		}
	}
	return false
}

// Name implements Matcher.
func (QuotedMatcher) Name() string { return MatchQuoted }

// BoundaryMatcher matches the key only when the characters on either side
// cannot be part of a flag key. Letters, digits, '_', '-' and '.' count as
// key characters, so "flag" does not match inside "flag-v2" or "my_flag".
type BoundaryMatcher struct{}

// Match implements Matcher.
func (BoundaryMatcher) Match(line, key string) bool {
	if key == "" {
		return false
	}
	offset := 0
	for {
		idx := strings.Index(line[offset:], key)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(key)

		beforeOK := start == 0 || !isKeyByte(line[start-1])
		afterOK := end == len(line) || !isKeyByte(line[end])
		if beforeOK && afterOK {
			return true
		}
		offset = start + 1
	}
}

// Name implements Matcher.
func (BoundaryMatcher) Name() string { return MatchBoundary }

func isKeyByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '_' || b == '-' || b == '.':
		return true
	default:
		return false
	}
}

// MatcherByName returns the matcher registered under name. An empty name
// selects the substring matcher.
func MatcherByName(name string) (Matcher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", MatchSubstring:
		return SubstringMatcher{}, nil
	case MatchQuoted:
		return QuotedMatcher{}, nil
	case MatchBoundary:
		return BoundaryMatcher{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown match strategy %q (valid: %s, %s, %s)",
			ErrInvalidConfig, name, MatchSubstring, MatchQuoted, MatchBoundary)
	}
}
