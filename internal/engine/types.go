package engine

import (
	"sort"
	"strings"
	"time"
)

// Maintainer is the person responsible for a flag.
type Maintainer struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
}

// FullName returns "First Last", omitting empty parts.
func (m Maintainer) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// Display returns the most descriptive identifier available.
func (m Maintainer) Display() string {
	if name := m.FullName(); name != "" {
		return name
	}
	return m.Email
}

// EnvironmentState is a flag's state in one environment.
type EnvironmentState struct {
	Name string `json:"name"`
	On   bool   `json:"on"`
	// LastModified is nil when the source did not report a modification time.
	LastModified *time.Time `json:"last_modified,omitempty"`
}

// Flag is a normalized feature flag record.
type Flag struct {
	Key          string                      `json:"key"`
	Name         string                      `json:"name"`
	Description  string                      `json:"description,omitempty"`
	Kind         string                      `json:"kind,omitempty"`
	Temporary    bool                        `json:"temporary"`
	Archived     bool                        `json:"archived"`
	Tags         []string                    `json:"tags,omitempty"`
	CreatedAt    *time.Time                  `json:"created_at,omitempty"`
	Maintainer   *Maintainer                 `json:"maintainer,omitempty"`
	Environments map[string]EnvironmentState `json:"environments"`
}

// EnvironmentNames returns the flag's environment names in sorted order.
func (f Flag) EnvironmentNames() []string {
	names := make([]string, 0, len(f.Environments))
	for name := range f.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LastModified returns the most recent modification time across all
// environments, and false when no environment reports one.
func (f Flag) LastModified() (time.Time, bool) {
	var latest time.Time
	found := false
	for _, env := range f.Environments {
		if env.LastModified == nil {
			continue
		}
		if !found || env.LastModified.After(latest) {
			latest = *env.LastModified
			found = true
		}
	}
	return latest, found
}

// FlagSet is the result of one gateway request.
type FlagSet struct {
	Project      string    `json:"project"`
	Environments []string  `json:"environments"`
	Flags        []Flag    `json:"flags"`
	FetchedAt    time.Time `json:"fetched_at"`
	FromCache    bool      `json:"from_cache"`
}

// InactiveFlag is a flag that has not been modified within the threshold.
type InactiveFlag struct {
	Flag

	// PrimaryEnvironment is the first priority environment present on the
	// flag, or "" when none is.
	PrimaryEnvironment string `json:"primary_environment,omitempty"`

	// LastModifiedAt is the most recent modification across environments.
	LastModifiedAt *time.Time `json:"last_modified,omitempty"`

	// IdleFor is the time since LastModifiedAt; zero when NeverModified.
	IdleFor time.Duration `json:"idle_for_ns"`

	// NeverModified is set when no environment reports a modification time.
	NeverModified bool `json:"never_modified"`
}

// PrimaryState returns the flag's state in its primary environment.
func (f InactiveFlag) PrimaryState() (EnvironmentState, bool) {
	if f.PrimaryEnvironment == "" {
		return EnvironmentState{}, false
	}
	state, ok := f.Environments[f.PrimaryEnvironment]
	return state, ok
}
