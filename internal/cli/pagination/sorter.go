package pagination

import (
	"sort"
	"strings"
	"time"

	"github.com/ldaudit/ldaudit/internal/engine"
)

// Sort fields.
const (
	FieldKey        = "key"
	FieldName       = "name"
	FieldCreated    = "created"
	FieldModified   = "modified"
	FieldMaintainer = "maintainer"
)

//nolint:gochecknoglobals // Fixed lookup table.
var flagLess = map[string]func(a, b engine.Flag) bool{
	FieldKey:  func(a, b engine.Flag) bool { return a.Key < b.Key },
	FieldName: func(a, b engine.Flag) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) },
	FieldCreated: func(a, b engine.Flag) bool {
		return timeOrZero(a.CreatedAt).Before(timeOrZero(b.CreatedAt))
	},
	FieldModified: func(a, b engine.Flag) bool {
		ta, _ := a.LastModified()
		tb, _ := b.LastModified()
		return ta.Before(tb)
	},
	FieldMaintainer: func(a, b engine.Flag) bool {
		return maintainerName(a) < maintainerName(b)
	},
}

// IsValidField reports whether field can be sorted on.
func IsValidField(field string) bool {
	_, ok := flagLess[field]
	return ok
}

// ValidFields returns the sortable field names in order.
func ValidFields() []string {
	fields := make([]string, 0, len(flagLess))
	for f := range flagLess {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Sort returns a copy of items ordered by the --sort expression. flagOf
// extracts the flag a row describes. An empty expression returns items
// unchanged. The sort is stable, so equal rows keep their incoming order.
func Sort[T any](items []T, expr string, flagOf func(T) engine.Flag) ([]T, error) {
	if expr == "" {
		return items, nil
	}
	field, order, err := ParseSort(expr)
	if err != nil {
		return nil, err
	}
	less, ok := flagLess[field]
	if !ok {
		return nil, ErrInvalidSortField
	}

	sorted := make([]T, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if order == SortOrderDesc {
			i, j = j, i
		}
		return less(flagOf(sorted[i]), flagOf(sorted[j]))
	})
	return sorted, nil
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func maintainerName(f engine.Flag) string {
	if f.Maintainer == nil {
		return ""
	}
	return strings.ToLower(f.Maintainer.Display())
}
