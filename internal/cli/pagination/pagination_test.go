package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldaudit/ldaudit/internal/engine"
)

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		errMsg string
	}{
		{name: "zero value", params: Params{}},
		{name: "offset mode", params: Params{Limit: 10, Offset: 20}},
		{name: "page mode", params: Params{Page: 2, PageSize: 10}},
		{name: "valid sort", params: Params{Sort: "modified:desc"}},
		{name: "negative limit", params: Params{Limit: -1}, errMsg: "limit cannot be negative"},
		{name: "negative offset", params: Params{Offset: -1}, errMsg: "offset cannot be negative"},
		{name: "negative page", params: Params{Page: -1}, errMsg: "page cannot be negative"},
		{name: "negative page-size", params: Params{PageSize: -1}, errMsg: "page-size cannot be negative"},
		{name: "mixed modes", params: Params{Page: 1, PageSize: 5, Offset: 10}, errMsg: "mutually exclusive"},
		{name: "page-size without page", params: Params{PageSize: 5}, errMsg: "page must be specified"},
		{name: "page without page-size", params: Params{Page: 2}, errMsg: "page-size must be specified"},
		{name: "unknown sort field", params: Params{Sort: "cost"}, errMsg: "invalid sort field"},
		{name: "bad sort order", params: Params{Sort: "key:up"}, errMsg: "sort order"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		in        string
		field     string
		order     string
		wantError error
	}{
		{in: "key", field: "key", order: "asc"},
		{in: "Modified:DESC", field: "modified", order: "desc"},
		{in: " name : asc ", field: "name", order: "asc"},
		{in: ":desc", wantError: ErrEmptySortField},
		{in: "a:b:c", wantError: ErrInvalidSortFormat},
		{in: "key:sideways", wantError: ErrInvalidSortOrder},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			field, order, err := ParseSort(tt.in)
			if tt.wantError != nil {
				require.ErrorIs(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.field, field)
			assert.Equal(t, tt.order, order)
		})
	}
}

func TestApply(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	tests := []struct {
		name   string
		params Params
		want   []int
	}{
		{name: "disabled", params: Params{}, want: items},
		{name: "limit", params: Params{Limit: 3}, want: []int{1, 2, 3}},
		{name: "offset only", params: Params{Offset: 5}, want: []int{6, 7}},
		{name: "offset and limit", params: Params{Offset: 2, Limit: 2}, want: []int{3, 4}},
		{name: "offset past end", params: Params{Offset: 10}, want: []int{}},
		{name: "first page", params: Params{Page: 1, PageSize: 3}, want: []int{1, 2, 3}},
		{name: "last partial page", params: Params{Page: 3, PageSize: 3}, want: []int{7}},
		{name: "page past end clamps", params: Params{Page: 9, PageSize: 3}, want: []int{7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Apply(tt.params, items))
		})
	}

	assert.Empty(t, Apply(Params{Limit: 2}, []int{}))
}

func TestNewMeta(t *testing.T) {
	m := NewMeta(Params{Offset: 2, Limit: 2}, 7)
	assert.Equal(t, Meta{TotalItems: 7, Offset: 2, Limit: 2, Returned: 2, HasNext: true}, m)

	m = NewMeta(Params{Page: 3, PageSize: 3}, 7)
	assert.Equal(t, Meta{TotalItems: 7, Offset: 6, Limit: 3, Returned: 1, HasNext: false}, m)

	m = NewMeta(Params{}, 4)
	assert.Equal(t, Meta{TotalItems: 4, Returned: 4}, m)

	m = NewMeta(Params{Offset: 10}, 4)
	assert.Equal(t, 0, m.Returned)
	assert.False(t, m.HasNext)
}

func ptr(t time.Time) *time.Time { return &t }

func TestSort(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	flags := []engine.Flag{
		{
			Key: "b-flag", Name: "Beta", CreatedAt: ptr(base.AddDate(0, 2, 0)),
			Maintainer: &engine.Maintainer{FirstName: "Zoe"},
			Environments: map[string]engine.EnvironmentState{
				"production": {Name: "production", LastModified: ptr(base.AddDate(0, 0, 1))},
			},
		},
		{
			Key: "a-flag", Name: "alpha", CreatedAt: ptr(base),
			Environments: map[string]engine.EnvironmentState{
				"production": {Name: "production", LastModified: ptr(base.AddDate(0, 0, 9))},
			},
		},
		{
			Key: "c-flag", Name: "Gamma", CreatedAt: ptr(base.AddDate(0, 1, 0)),
			Maintainer: &engine.Maintainer{FirstName: "Ann"},
		},
	}
	identity := func(f engine.Flag) engine.Flag { return f }
	keys := func(fs []engine.Flag) []string {
		out := make([]string, 0, len(fs))
		for _, f := range fs {
			out = append(out, f.Key)
		}
		return out
	}

	tests := []struct {
		expr string
		want []string
	}{
		{expr: "", want: []string{"b-flag", "a-flag", "c-flag"}},
		{expr: "key", want: []string{"a-flag", "b-flag", "c-flag"}},
		{expr: "key:desc", want: []string{"c-flag", "b-flag", "a-flag"}},
		{expr: "name", want: []string{"a-flag", "b-flag", "c-flag"}},
		{expr: "created", want: []string{"a-flag", "c-flag", "b-flag"}},
		{expr: "modified", want: []string{"c-flag", "b-flag", "a-flag"}},
		{expr: "maintainer", want: []string{"a-flag", "c-flag", "b-flag"}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Sort(flags, tt.expr, identity)
			require.NoError(t, err)
			assert.Equal(t, tt.want, keys(got))
		})
	}

	assert.Equal(t, []string{"b-flag", "a-flag", "c-flag"}, keys(flags), "input is not reordered")

	_, err := Sort(flags, "cost", identity)
	require.ErrorIs(t, err, ErrInvalidSortField)
}

func TestValidFields(t *testing.T) {
	assert.Equal(t, []string{"created", "key", "maintainer", "modified", "name"}, ValidFields())
}
