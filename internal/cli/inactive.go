package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ldaudit/ldaudit/internal/cli/pagination"
	"github.com/ldaudit/ldaudit/internal/config"
	"github.com/ldaudit/ldaudit/internal/engine"
)

func inactiveFlagOf(f engine.InactiveFlag) engine.Flag { return f.Flag }

// newInactiveCmd creates the inactive command.
func newInactiveCmd(deps Deps) *cobra.Command {
	var (
		filters  filterFlags
		criteria criteriaFlags
		paging   pagingFlags
	)

	cmd := &cobra.Command{
		Use:   "inactive",
		Short: "List flags not modified in any environment for a number of months",
		Long: `Lists flags whose most recent modification in every audited environment is
older than the threshold. Flags with no modification time at all are listed
first. By default only temporary, non-archived flags are audited.`,
		Example: `  # Temporary flags idle for 3+ months in production
  ldaudit inactive --project web

  # Six months across production and staging, permanent flags included
  ldaudit inactive --project web --months 6 --env production,staging --include-permanent

  # Fail a CI job when anything is stale
  ldaudit inactive --project web --fail-on-stale`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.GetGlobalConfig()
			filters.apply(cmd, cfg)
			criteria.apply(cmd, cfg)
			return executeInactive(cmd, cfg, deps, paging.params, criteria.failOnStale)
		},
	}

	filters.bind(cmd)
	criteria.bind(cmd)
	paging.bind(cmd)
	return cmd
}

func executeInactive(
	cmd *cobra.Command,
	cfg *config.Config,
	deps Deps,
	params pagination.Params,
	failOnStale bool,
) error {
	if err := (&pagingFlags{params: params}).validate(); err != nil {
		return err
	}
	if err := validateForFetch(cfg); err != nil {
		return err
	}

	ctx := cmd.Context()
	gw, err := newGateway(cmd, cfg, deps)
	if err != nil {
		return err
	}
	set, err := gw.Flags(ctx, fetchRequest(cmd, cfg))
	if err != nil {
		return err
	}

	now := deps.Now()
	inactive, err := engine.ComputeInactive(set.Flags, criteriaFrom(cfg, now))
	if err != nil {
		return err
	}

	logger.Debug().Ctx(ctx).
		Str("operation", "inactive").
		Int("flags", len(set.Flags)).
		Int("inactive", len(inactive)).
		Bool("from_cache", set.FromCache).
		Msg("computed inactive flags")

	sorted, err := pagination.Sort(inactive, params.Sort, inactiveFlagOf)
	if err != nil {
		return err
	}
	meta := pagination.NewMeta(params, len(sorted))
	page := pagination.Apply(params, sorted)

	w := cmd.OutOrStdout()
	v := newView(w, cfg, now)
	switch v.format {
	case formatJSON:
		err = v.renderInactiveJSON(w, set, page, meta)
	case formatSlack:
		err = v.renderSlack(w, page, meta.TotalItems, nil)
	case formatTable:
		err = v.renderInactiveTable(w, page, meta)
	default:
		err = fmt.Errorf("%w: unknown output format %q", engine.ErrConfigInvalid, v.format)
	}
	if err != nil {
		return err
	}

	if failOnStale && len(inactive) > 0 {
		return &ExitError{
			Code:   ExitCodeStale,
			Reason: fmt.Sprintf("%d inactive %s found", len(inactive), pluralize(len(inactive), "flag", "flags")),
		}
	}
	return nil
}
