package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ldaudit/ldaudit/internal/cli/pagination"
	"github.com/ldaudit/ldaudit/internal/config"
	"github.com/ldaudit/ldaudit/internal/engine"
	"github.com/ldaudit/ldaudit/internal/scanner"
)

func auditEntryFlagOf(e engine.AuditEntry) engine.Flag { return e.Flag.Flag }

// newScanCmd creates the scan command.
func newScanCmd(deps Deps) *cobra.Command {
	var (
		filters  filterFlags
		criteria criteriaFlags
		scan     scanFlags
		paging   pagingFlags
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Find code that still references inactive flags",
		Long: `Computes the inactive flags like 'inactive' does and then searches a
directory tree for lines that mention their keys. Version control, dependency
and build output directories are skipped, as are files above the size limit
and binary files.`,
		Example: `  # Scan the current directory
  ldaudit scan --project web

  # Only JavaScript and TypeScript sources under ./src
  ldaudit scan --project web --dir ./src --ext js,ts

  # Require the key to appear as a quoted string literal
  ldaudit scan --project web --match quoted`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.GetGlobalConfig()
			filters.apply(cmd, cfg)
			criteria.apply(cmd, cfg)
			scan.apply(cmd, cfg)
			return executeScan(cmd, cfg, deps, paging.params, criteria.failOnStale)
		},
	}

	filters.bind(cmd)
	criteria.bind(cmd)
	scan.bind(cmd)
	paging.bind(cmd)
	return cmd
}

func executeScan(
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
	scanCfg, err := scanConfigFrom(cfg, deps.WorkingDir)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	gw, err := newGateway(cmd, cfg, deps)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	now := deps.Now()
	v := newView(w, cfg, now)
	if v.format == formatTable {
		if err := v.renderScanHeader(w, scanCfg); err != nil {
			return err
		}
	}

	report, err := engine.NewAuditor(gw).Run(ctx, engine.AuditRequest{
		Fetch:    fetchRequest(cmd, cfg),
		Criteria: criteriaFrom(cfg, now),
		Scan:     scanCfg,
	})
	if err != nil {
		return err
	}

	for _, fw := range report.Warnings {
		logger.Debug().Ctx(ctx).Str("operation", "scan").Str("path", fw.Path).Err(fw.Err).Msg("file not scanned")
	}

	entries, err := pagination.Sort(report.Entries, params.Sort, auditEntryFlagOf)
	if err != nil {
		return err
	}
	meta := pagination.NewMeta(params, len(entries))
	page := pagination.Apply(params, entries)

	switch v.format {
	case formatJSON:
		err = v.renderAuditJSON(w, report, page, meta)
	case formatSlack:
		err = v.renderSlack(w, entryFlags(page), meta.TotalItems, referenceCounts(page))
	case formatTable:
		err = v.renderAuditText(w, report, page, meta)
	default:
		err = fmt.Errorf("%w: unknown output format %q", engine.ErrConfigInvalid, v.format)
	}
	if err != nil {
		return err
	}

	if failOnStale && len(report.Entries) > 0 {
		return &ExitError{
			Code: ExitCodeStale,
			Reason: fmt.Sprintf("%d inactive %s still referenced in code",
				len(report.Entries), pluralize(len(report.Entries), "flag", "flags")),
		}
	}
	return nil
}

func entryFlags(entries []engine.AuditEntry) []engine.InactiveFlag {
	out := make([]engine.InactiveFlag, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Flag)
	}
	return out
}

func referenceCounts(entries []engine.AuditEntry) map[string]int {
	out := make(map[string]int, len(entries))
	for _, e := range entries {
		out[e.Flag.Key] = len(e.Matches)
	}
	return out
}

func (v view) renderScanHeader(w io.Writer, cfg scanner.Config) error {
	bold := v.style().Bold(true)
	muted := v.style().Foreground(colorMuted())
	key := v.style().Foreground(colorKey())

	lines := []string{bold.Render("Scanning directory:") + " " + key.Render(cfg.Root)}
	if len(cfg.Extensions) > 0 {
		exts := make([]string, 0, len(cfg.Extensions))
		for _, e := range cfg.Extensions {
			exts = append(exts, "."+strings.TrimPrefix(e, "."))
		}
		lines = append(lines, bold.Render("File extensions:")+" "+strings.Join(exts, ", "))
	} else {
		lines = append(lines, muted.Render("Scanning all file types"))
	}
	if len(v.excludes) > 0 {
		lines = append(lines, bold.Render("Excluding flags:")+" "+strings.Join(v.excludes, ", "))
	}
	_, err := fmt.Fprintf(w, "%s\n\n", strings.Join(lines, "\n"))
	return err
}
