package cli

import (
	"context"
	"strings"

	"github.com/ldaudit/ldaudit/internal/engine"
	"github.com/ldaudit/ldaudit/internal/logging"
)

// splitListValues flattens list flag values given either repeated or
// comma-separated, trimming blanks and dropping duplicates while keeping
// first-seen order.
func splitListValues(values []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, v := range values {
		for part := range strings.SplitSeq(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, dup := seen[part]; dup {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}

// ApplyFilters applies the maintainer and exclude filters to flags and logs
// the effect. Empty filter lists leave flags unchanged.
func ApplyFilters(ctx context.Context, flags []engine.Flag, maintainers, excludes []string) []engine.Flag {
	log := logging.FromContext(ctx)

	if len(maintainers) == 0 && len(excludes) == 0 {
		return flags
	}

	result := engine.ApplyCommonFilters(flags, maintainers, excludes)
	log.Debug().Ctx(ctx).
		Str("component", "cli").
		Str("operation", "apply_filters").
		Strs("maintainers", maintainers).
		Strs("excludes", excludes).
		Int("before", len(flags)).
		Int("after", len(result)).
		Msg("applied filters")

	if len(result) == 0 && len(flags) > 0 {
		log.Warn().Ctx(ctx).
			Str("component", "cli").
			Str("operation", "apply_filters").
			Int("original_count", len(flags)).
			Msg("no flags match filter criteria")
	}

	return result
}
