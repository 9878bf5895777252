package pagination

import (
	"errors"
	"fmt"
	"strings"
)

// Defaults and sort orders.
const (
	DefaultLimit     = 0
	DefaultOffset    = 0
	DefaultSortOrder = SortOrderAsc
	SortOrderAsc     = "asc"
	SortOrderDesc    = "desc"
)

// Validation errors.
var (
	ErrInvalidSortOrder  = errors.New("sort order must be 'asc' or 'desc'")
	ErrInvalidSortFormat = errors.New("invalid sort format: use 'field' or 'field:order' (e.g., 'modified:desc')")
	ErrEmptySortField    = errors.New("sort field cannot be empty")
	ErrInvalidSortField  = errors.New("invalid sort field")
)

// Params holds the paging and sorting flags of a listing command.
// Offset mode (--limit/--offset) and page mode (--page/--page-size) are
// mutually exclusive. A zero Limit means no limit.
type Params struct {
	Limit    int
	Offset   int
	Page     int
	PageSize int

	// Sort is the raw --sort value, "field" or "field:order".
	Sort string
}

// Validate checks bounds and mode consistency.
func (p Params) Validate() error {
	switch {
	case p.Limit < 0:
		return errors.New("limit cannot be negative")
	case p.Offset < 0:
		return errors.New("offset cannot be negative")
	case p.Page < 0:
		return errors.New("page cannot be negative")
	case p.PageSize < 0:
		return errors.New("page-size cannot be negative")
	case p.Page > 0 && p.Offset > 0:
		return errors.New("page and offset parameters are mutually exclusive")
	case p.Page == 0 && p.PageSize > 0:
		return errors.New("page must be specified when using page-size")
	case p.PageSize == 0 && p.Page > 0:
		return errors.New("page-size must be specified when using page")
	}
	if p.Sort != "" {
		field, _, err := ParseSort(p.Sort)
		if err != nil {
			return err
		}
		if !IsValidField(field) {
			return fmt.Errorf("%w: %q (valid: %s)", ErrInvalidSortField, field, strings.Join(ValidFields(), ", "))
		}
	}
	return nil
}

// sortPartsMax is the maximum number of parts in a sort string (field:order).
const sortPartsMax = 2

// ParseSort parses "field" or "field:order". The order defaults to asc.
//
//nolint:nonamedreturns // Named returns improve readability for this multi-value function.
func ParseSort(sortStr string) (field, order string, err error) {
	parts := strings.Split(sortStr, ":")
	switch len(parts) {
	case 1:
		field = strings.TrimSpace(parts[0])
		order = DefaultSortOrder
	case sortPartsMax:
		field = strings.TrimSpace(parts[0])
		order = strings.ToLower(strings.TrimSpace(parts[1]))
	default:
		return "", "", fmt.Errorf("%w: %q", ErrInvalidSortFormat, sortStr)
	}

	if field == "" {
		return "", "", ErrEmptySortField
	}
	field = strings.ToLower(field)

	if order != SortOrderAsc && order != SortOrderDesc {
		return "", "", fmt.Errorf("%w: got %q", ErrInvalidSortOrder, order)
	}
	return field, order, nil
}

// IsPageBased reports whether page mode is active.
func (p Params) IsPageBased() bool {
	return p.Page > 0
}

// IsEnabled reports whether any paging is requested.
func (p Params) IsEnabled() bool {
	return p.Limit > 0 || p.Offset > 0 || p.Page > 0
}

// OffsetLimit returns the effective offset and limit. A zero limit means
// everything from offset on.
//
//nolint:nonamedreturns // Named returns improve readability for this multi-value function.
func (p Params) OffsetLimit() (offset, limit int) {
	if p.IsPageBased() {
		return (p.Page - 1) * p.PageSize, p.PageSize
	}
	return p.Offset, p.Limit
}

// Apply returns the window of items selected by p. Pages past the end clamp
// to the last page; offsets past the end yield an empty slice.
func Apply[T any](p Params, items []T) []T {
	if len(items) == 0 || !p.IsEnabled() {
		return items
	}

	offset, limit := p.OffsetLimit()
	if p.IsPageBased() && offset >= len(items) {
		offset = ((len(items) - 1) / p.PageSize) * p.PageSize
	}
	if offset >= len(items) {
		return []T{}
	}

	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
