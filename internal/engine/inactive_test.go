package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:gochecknoglobals // Fixed reference time for deterministic tests.
var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

func ago(d time.Duration) *time.Time {
	t := testNow.Add(-d)
	return &t
}

func env(name string, on bool, modified *time.Time) EnvironmentState {
	return EnvironmentState{Name: name, On: on, LastModified: modified}
}

func flagWith(key string, envs ...EnvironmentState) Flag {
	f := Flag{Key: key, Name: key, Temporary: true, Environments: map[string]EnvironmentState{}}
	for _, e := range envs {
		f.Environments[e.Name] = e
	}
	return f
}

func keysOf(flags []InactiveFlag) []string {
	out := make([]string, 0, len(flags))
	for _, f := range flags {
		out = append(out, f.Key)
	}
	return out
}

func criteria(months int) Criteria {
	return Criteria{Months: months, Environments: []string{"production"}, Now: testNow}
}

func TestComputeInactive_Threshold(t *testing.T) {
	flags := []Flag{
		flagWith("four-months", env("production", true, ago(120*day))),
		flagWith("one-month", env("production", true, ago(30*day))),
		flagWith("exactly-three", env("production", true, ago(90*day))),
		flagWith("just-over-three", env("production", true, ago(90*day+time.Second))),
	}

	got, err := ComputeInactive(flags, criteria(3))
	require.NoError(t, err)

	assert.Equal(t, []string{"four-months", "just-over-three"}, keysOf(got))
	assert.Equal(t, 120*day, got[0].IdleFor)
	require.NotNil(t, got[0].LastModifiedAt)
	assert.True(t, got[0].LastModifiedAt.Equal(*ago(120 * day)))
}

func TestComputeInactive_AllEnvironmentsMustBeIdle(t *testing.T) {
	flags := []Flag{
		flagWith("prod-old-staging-new",
			env("production", true, ago(200*day)),
			env("staging", false, ago(2*day))),
		flagWith("all-old",
			env("production", false, ago(200*day)),
			env("staging", false, ago(150*day))),
	}

	got, err := ComputeInactive(flags, criteria(3))
	require.NoError(t, err)

	require.Equal(t, []string{"all-old"}, keysOf(got))
	assert.Equal(t, 150*day, got[0].IdleFor, "idle time counts from the most recent change")
}

func TestComputeInactive_MissingTimestamps(t *testing.T) {
	flags := []Flag{
		flagWith("no-envs"),
		flagWith("no-timestamp", env("production", true, nil)),
		flagWith("future", env("production", true, ago(-10*day))),
	}

	got, err := ComputeInactive(flags, criteria(1))
	require.NoError(t, err)

	assert.Equal(t, []string{"no-envs", "no-timestamp"}, keysOf(got))
	for _, f := range got {
		assert.True(t, f.NeverModified, f.Key)
		assert.Nil(t, f.LastModifiedAt, f.Key)
		assert.Zero(t, f.IdleFor, f.Key)
	}
}

func TestComputeInactive_Ordering(t *testing.T) {
	flags := []Flag{
		flagWith("b-old", env("production", true, ago(100*day))),
		flagWith("z-never"),
		flagWith("a-old", env("production", true, ago(100*day))),
		flagWith("older", env("production", true, ago(400*day))),
		flagWith("a-never", env("production", true, nil)),
	}

	got, err := ComputeInactive(flags, criteria(1))
	require.NoError(t, err)

	assert.Equal(t, []string{"a-never", "z-never", "older", "a-old", "b-old"}, keysOf(got))
}

func TestComputeInactive_IdleMeasuredFromLatestModification(t *testing.T) {
	flags := []Flag{
		flagWith("mixed", env("production", true, ago(500*day)), env("staging", false, ago(100*day))),
		flagWith("single", env("production", true, ago(200*day))),
	}

	got, err := ComputeInactive(flags, criteria(1))
	require.NoError(t, err)

	require.Equal(t, []string{"single", "mixed"}, keysOf(got))
	assert.Equal(t, 100*day, got[1].IdleFor)
}

func TestComputeInactive_PrimaryEnvironment(t *testing.T) {
	flags := []Flag{
		flagWith("both", env("production", true, nil), env("staging", false, nil)),
		flagWith("staging-only", env("staging", false, nil)),
		flagWith("dev-only", env("dev", true, nil)),
	}
	c := criteria(1)
	c.Environments = []string{"production", "staging"}

	got, err := ComputeInactive(flags, c)
	require.NoError(t, err)
	require.Len(t, got, 3)

	primary := map[string]string{}
	for _, f := range got {
		primary[f.Key] = f.PrimaryEnvironment
	}
	assert.Equal(t, map[string]string{
		"both":         "production",
		"staging-only": "staging",
		"dev-only":     "",
	}, primary)

	for _, f := range got {
		state, ok := f.PrimaryState()
		if f.Key == "dev-only" {
			assert.False(t, ok)
			continue
		}
		assert.True(t, ok)
		assert.Equal(t, f.PrimaryEnvironment, state.Name)
	}
}

func TestComputeInactive_MaintainerFilter(t *testing.T) {
	ada := &Maintainer{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
	grace := &Maintainer{FirstName: "Grace", LastName: "Hopper"}

	withMaintainer := func(key string, m *Maintainer) Flag {
		f := flagWith(key, env("production", true, ago(365*day)))
		f.Maintainer = m
		return f
	}
	flags := []Flag{
		withMaintainer("ada-flag", ada),
		withMaintainer("grace-flag", grace),
		withMaintainer("orphan", nil),
	}

	tests := []struct {
		name        string
		maintainers []string
		want        []string
	}{
		{"no filter", nil, []string{"ada-flag", "grace-flag", "orphan"}},
		{"first name", []string{"Ada"}, []string{"ada-flag"}},
		{"full name", []string{"Grace Hopper"}, []string{"grace-flag"}},
		{"email", []string{"ada@example.com"}, []string{"ada-flag"}},
		{"case sensitive", []string{"ada"}, []string{}},
		{"several", []string{"Ada", "Grace"}, []string{"ada-flag", "grace-flag"}},
		{"last name alone does not match", []string{"Hopper"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := criteria(3)
			c.Maintainers = tt.maintainers
			got, err := ComputeInactive(flags, c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, keysOf(got))
		})
	}
}

func TestComputeInactive_Excludes(t *testing.T) {
	flags := []Flag{
		flagWith("keep", env("production", true, ago(365*day))),
		flagWith("drop", env("production", true, ago(365*day))),
	}
	c := criteria(3)
	c.Excludes = []string{"drop", "not-present"}

	got, err := ComputeInactive(flags, c)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, keysOf(got))
}

func TestComputeInactive_ArchivedAndTemporary(t *testing.T) {
	archived := flagWith("archived", env("production", true, ago(365*day)))
	archived.Archived = true
	permanent := flagWith("permanent", env("production", true, ago(365*day)))
	permanent.Temporary = false
	temporary := flagWith("temporary", env("production", true, ago(365*day)))
	flags := []Flag{archived, permanent, temporary}

	tests := []struct {
		name          string
		skipArchived  bool
		temporaryOnly bool
		want          []string
	}{
		{"zero value keeps all", false, false, []string{"archived", "permanent", "temporary"}},
		{"skip archived", true, false, []string{"permanent", "temporary"}},
		{"temporary only", false, true, []string{"archived", "temporary"}},
		{"cli defaults", true, true, []string{"temporary"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := criteria(3)
			c.SkipArchived = tt.skipArchived
			c.TemporaryOnly = tt.temporaryOnly
			got, err := ComputeInactive(flags, c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, keysOf(got))
		})
	}
}

func TestCriteria_Validate(t *testing.T) {
	tests := []struct {
		name string
		c    Criteria
	}{
		{"zero months", Criteria{Months: 0, Environments: []string{"production"}}},
		{"negative months", Criteria{Months: -1, Environments: []string{"production"}}},
		{"too many months", Criteria{Months: MaxMonths + 1, Environments: []string{"production"}}},
		{"no environments", Criteria{Months: 3}},
		{"blank environments", Criteria{Months: 3, Environments: []string{" ", ""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeInactive([]Flag{flagWith("a")}, tt.c)
			require.ErrorIs(t, err, ErrConfigInvalid)
		})
	}
}

func TestCriteria_Threshold(t *testing.T) {
	assert.Equal(t, 90*day, criteria(3).Threshold())
	assert.Equal(t, 30*day, criteria(1).Threshold())
}

func TestComputeInactive_DefaultsNow(t *testing.T) {
	c := Criteria{Months: 1, Environments: []string{"production"}}
	got, err := ComputeInactive([]Flag{
		flagWith("recent", env("production", true, func() *time.Time { n := time.Now(); return &n }())),
	}, c)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestApplyCommonFilters_PreservesOrder(t *testing.T) {
	flags := []Flag{flagWith("c"), flagWith("a"), flagWith("b")}
	got := ApplyCommonFilters(flags, nil, []string{"a"})
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].Key)
	assert.Equal(t, "b", got[1].Key)
}
