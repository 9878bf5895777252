package engine

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// rawFlagPage mirrors the LaunchDarkly flag list response.
type rawFlagPage struct {
	Items      []rawFlag `json:"items"`
	TotalCount int       `json:"totalCount"`
}

type rawFlag struct {
	Key          string                    `json:"key"`
	Name         string                    `json:"name"`
	Description  string                    `json:"description"`
	Kind         string                    `json:"kind"`
	Temporary    bool                      `json:"temporary"`
	Archived     bool                      `json:"archived"`
	Tags         []string                  `json:"tags"`
	CreationDate int64                     `json:"creationDate"`
	Maintainer   *rawMaintainer            `json:"_maintainer"`
	Environments map[string]rawEnvironment `json:"environments"`
}

type rawMaintainer struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

type rawEnvironment struct {
	On           bool  `json:"on"`
	LastModified int64 `json:"lastModified"`
}

// Normalize converts a raw flag list payload into flags sorted by key.
// Timestamps are Unix milliseconds; zero or missing values become nil.
// Records without a key and duplicate keys are rejected with ErrInvalidFlagData.
func Normalize(raw json.RawMessage) ([]Flag, error) {
	var page rawFlagPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFlagData, err)
	}

	flags := make([]Flag, 0, len(page.Items))
	seen := make(map[string]struct{}, len(page.Items))
	for i, item := range page.Items {
		key := strings.TrimSpace(item.Key)
		if key == "" {
			return nil, fmt.Errorf("%w: item %d has no key", ErrInvalidFlagData, i)
		}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrInvalidFlagData, key)
		}
		seen[key] = struct{}{}
		flags = append(flags, normalizeFlag(key, item))
	}

	sort.Slice(flags, func(i, j int) bool { return flags[i].Key < flags[j].Key })
	return flags, nil
}

func normalizeFlag(key string, item rawFlag) Flag {
	envs := make(map[string]EnvironmentState, len(item.Environments))
	for name, env := range item.Environments {
		envs[name] = EnvironmentState{
			Name:         name,
			On:           env.On,
			LastModified: millisToTime(env.LastModified),
		}
	}

	name := item.Name
	if name == "" {
		name = key
	}

	return Flag{
		Key:          key,
		Name:         name,
		Description:  item.Description,
		Kind:         item.Kind,
		Temporary:    item.Temporary,
		Archived:     item.Archived,
		Tags:         item.Tags,
		CreatedAt:    millisToTime(item.CreationDate),
		Maintainer:   normalizeMaintainer(item.Maintainer),
		Environments: envs,
	}
}

func normalizeMaintainer(m *rawMaintainer) *Maintainer {
	if m == nil {
		return nil
	}
	out := Maintainer{
		FirstName: strings.TrimSpace(m.FirstName),
		LastName:  strings.TrimSpace(m.LastName),
		Email:     strings.TrimSpace(m.Email),
	}
	if out == (Maintainer{}) {
		return nil
	}
	return &out
}

func millisToTime(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}
