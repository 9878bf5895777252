package engine

import (
	"sort"
	"strings"
	"time"
)

const (
	// DaysPerMonth is the fixed month length used for inactivity thresholds.
	DaysPerMonth = 30

	// MaxMonths bounds Criteria.Months so the threshold fits in a Duration.
	MaxMonths = 1200

	hoursPerDay = 24
)

// Criteria selects which flags count as inactive.
type Criteria struct {
	// Months is the inactivity threshold; a month is DaysPerMonth days.
	Months int

	// Environments is the priority list used to pick each flag's primary
	// environment.
	Environments []string

	// Maintainers keeps only flags whose maintainer first name, full name or
	// email equals one of these values. Empty keeps every flag.
	Maintainers []string

	// Excludes removes these flag keys unconditionally.
	Excludes []string

	// SkipArchived drops archived flags.
	SkipArchived bool

	// TemporaryOnly drops flags not marked temporary.
	TemporaryOnly bool

	// Now is the reference time. Zero means time.Now().
	Now time.Time
}

// Validate reports unusable criteria as ErrConfigInvalid.
func (c Criteria) Validate() error {
	if c.Months <= 0 {
		return configError("months must be greater than 0, got %d", c.Months)
	}
	if c.Months > MaxMonths {
		return configError("months must be at most %d, got %d", MaxMonths, c.Months)
	}
	if len(cleanList(c.Environments)) == 0 {
		return configError("at least one environment is required")
	}
	return nil
}

// Threshold returns the inactivity threshold as a duration.
func (c Criteria) Threshold() time.Duration {
	return time.Duration(c.Months) * DaysPerMonth * hoursPerDay * time.Hour
}

func (c Criteria) now() time.Time {
	if c.Now.IsZero() {
		return time.Now().UTC()
	}
	return c.Now
}

// ComputeInactive returns the flags that were not modified in any environment
// within the threshold, ordered by idle time descending (never-modified flags
// first) and then by key. Idle time is measured from the most recent
// modification across all environments, not from the oldest one.
func ComputeInactive(flags []Flag, c Criteria) ([]InactiveFlag, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	now := c.now()
	threshold := c.Threshold()
	priority := cleanList(c.Environments)

	out := make([]InactiveFlag, 0)
	for _, f := range ApplyCommonFilters(flags, c.Maintainers, c.Excludes) {
		if c.SkipArchived && f.Archived {
			continue
		}
		if c.TemporaryOnly && !f.Temporary {
			continue
		}
		if !IsInactive(f, now, threshold) {
			continue
		}

		inactive := InactiveFlag{
			Flag:               f,
			PrimaryEnvironment: PrimaryEnvironment(f, priority),
		}
		if last, ok := f.LastModified(); ok {
			inactive.LastModifiedAt = &last
			inactive.IdleFor = now.Sub(last)
		} else {
			inactive.NeverModified = true
		}
		out = append(out, inactive)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.NeverModified != b.NeverModified {
			return a.NeverModified
		}
		if a.IdleFor != b.IdleFor {
			return a.IdleFor > b.IdleFor
		}
		return a.Key < b.Key
	})

	return out, nil
}

// IsInactive reports whether no environment of f was modified within
// threshold of now. A flag without environments is inactive.
func IsInactive(f Flag, now time.Time, threshold time.Duration) bool {
	for _, env := range f.Environments {
		if env.LastModified == nil {
			continue
		}
		if now.Sub(*env.LastModified) <= threshold {
			return false
		}
	}
	return true
}

// PrimaryEnvironment returns the first entry of priority present on f, or ""
// when none is.
func PrimaryEnvironment(f Flag, priority []string) string {
	for _, env := range priority {
		if _, ok := f.Environments[env]; ok {
			return env
		}
	}
	return ""
}

// ApplyCommonFilters applies the maintainer and exclude filters shared by
// every command. Input order is preserved.
func ApplyCommonFilters(flags []Flag, maintainers, excludes []string) []Flag {
	excluded := toSet(excludes)
	wanted := toSet(maintainers)

	out := make([]Flag, 0, len(flags))
	for _, f := range flags {
		if _, skip := excluded[f.Key]; skip {
			continue
		}
		if len(wanted) > 0 && !maintainerMatches(f.Maintainer, wanted) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func maintainerMatches(m *Maintainer, wanted map[string]struct{}) bool {
	if m == nil {
		return false
	}
	for _, candidate := range []string{m.FirstName, m.FullName(), m.Email} {
		if candidate == "" {
			continue
		}
		if _, ok := wanted[candidate]; ok {
			return true
		}
	}
	return false
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range cleanList(values) {
		set[v] = struct{}{}
	}
	return set
}
