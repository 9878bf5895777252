package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ldaudit/ldaudit/internal/engine"
)

func TestSplitListValues(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "nil", in: nil, want: nil},
		{name: "repeated", in: []string{"js", "go"}, want: []string{"js", "go"}},
		{name: "comma separated", in: []string{"cs,js", "go"}, want: []string{"cs", "js", "go"}},
		{name: "blanks and spaces", in: []string{" a , ,b", ""}, want: []string{"a", "b"}},
		{name: "duplicates keep first", in: []string{"b,a", "b"}, want: []string{"b", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitListValues(tt.in))
		})
	}
}

func TestApplyFilters(t *testing.T) {
	t.Parallel()

	flags := []engine.Flag{
		{Key: "checkout-v2", Maintainer: &engine.Maintainer{FirstName: "Ana", LastName: "Ruiz", Email: "ana@example.com"}},
		{Key: "dark-mode", Maintainer: &engine.Maintainer{FirstName: "Ben"}},
		{Key: "orphan"},
	}

	tests := []struct {
		name        string
		maintainers []string
		excludes    []string
		want        []string
	}{
		{name: "no filters", want: []string{"checkout-v2", "dark-mode", "orphan"}},
		{name: "maintainer first name", maintainers: []string{"Ana"}, want: []string{"checkout-v2"}},
		{name: "maintainer email", maintainers: []string{"ana@example.com"}, want: []string{"checkout-v2"}},
		{name: "maintainer is case sensitive", maintainers: []string{"ana"}, want: []string{}},
		{name: "exclude", excludes: []string{"dark-mode"}, want: []string{"checkout-v2", "orphan"}},
		{
			name:        "both",
			maintainers: []string{"Ana", "Ben"},
			excludes:    []string{"checkout-v2"},
			want:        []string{"dark-mode"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ApplyFilters(context.Background(), flags, tt.maintainers, tt.excludes)
			keys := make([]string, 0, len(got))
			for _, f := range got {
				keys = append(keys, f.Key)
			}
			assert.Equal(t, tt.want, keys)
		})
	}
}
