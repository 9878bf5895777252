package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ldaudit/ldaudit/internal/cli/pagination"
	"github.com/ldaudit/ldaudit/internal/config"
	"github.com/ldaudit/ldaudit/internal/engine"
)

func flagIdentity(f engine.Flag) engine.Flag { return f }

// newListCmd creates the list command.
func newListCmd(deps Deps) *cobra.Command {
	var (
		filters filterFlags
		paging  pagingFlags
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every feature flag of a project",
		Long: `Lists all flags of the project with their state in each environment,
maintainer, creation date and the latest modification across environments.`,
		Example: `  # All flags
  ldaudit list --project web

  # Flags owned by Ana, most recently modified first
  ldaudit list --project web --maintainer Ana --sort modified:desc

  # Second page of 20 as JSON
  ldaudit list --project web --page 2 --page-size 20 --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.GetGlobalConfig()
			filters.apply(cmd, cfg)
			return executeList(cmd, cfg, deps, paging.params)
		},
	}

	filters.bind(cmd)
	paging.bind(cmd)
	return cmd
}

func executeList(cmd *cobra.Command, cfg *config.Config, deps Deps, params pagination.Params) error {
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

	flags := ApplyFilters(ctx, set.Flags, cfg.Audit.Maintainers, cfg.Audit.Excludes)
	flags, err = pagination.Sort(flags, params.Sort, flagIdentity)
	if err != nil {
		return err
	}
	meta := pagination.NewMeta(params, len(flags))
	page := pagination.Apply(params, flags)

	w := cmd.OutOrStdout()
	v := newView(w, cfg, deps.Now())
	switch v.format {
	case formatJSON:
		return v.renderFlagListJSON(w, set, page, meta)
	case formatSlack:
		return v.renderFlagListSlack(w, page, meta)
	case formatTable:
		return v.renderFlagListTable(w, set, page, meta)
	default:
		return fmt.Errorf("%w: unknown output format %q", engine.ErrConfigInvalid, v.format)
	}
}
