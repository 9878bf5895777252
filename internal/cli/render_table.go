package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ldaudit/ldaudit/internal/cli/pagination"
	"github.com/ldaudit/ldaudit/internal/engine"
)

// flagTable builds the table layout shared by list and inactive.
func (v view) flagTable(headers []string, rows [][]string) *table.Table {
	headerStyle := v.style().Bold(true).Foreground(colorHeader()).Padding(0, 1)
	keyStyle := v.style().Foreground(colorKey()).Padding(0, 1)
	cellStyle := v.style().Padding(0, 1)
	mutedStyle := v.style().Foreground(colorMuted()).Padding(0, 1)
	last := len(headers) - 1

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(v.style().Foreground(colorBorder())).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return keyStyle
			case col >= last-1:
				return mutedStyle
			default:
				return cellStyle
			}
		})
}

func (v view) pagingFooter(w io.Writer, meta pagination.Meta) error {
	if meta.Returned == meta.TotalItems {
		return nil
	}
	muted := v.style().Foreground(colorMuted())
	_, err := fmt.Fprintln(w, muted.Render(v.printer.Sprintf(
		"Showing %d-%d of %d", meta.Offset+min(1, meta.Returned), meta.Offset+meta.Returned, meta.TotalItems)))
	return err
}

// renderFlagListTable prints every flag with its environment states.
func (v view) renderFlagListTable(w io.Writer, set *engine.FlagSet, flags []engine.Flag, meta pagination.Meta) error {
	muted := v.style().Foreground(colorMuted())
	source := "live"
	if set.FromCache {
		source = "cached " + dateText(&set.FetchedAt)
	}
	if _, err := fmt.Fprintf(w, "%s\n\n", muted.Render(fmt.Sprintf("Total flags: %s (%s)", v.count(meta.TotalItems), source))); err != nil {
		return err
	}
	if len(flags) == 0 {
		_, err := fmt.Fprintln(w, "No flags to show.")
		return err
	}

	rows := make([][]string, 0, len(flags))
	for _, f := range flags {
		rows = append(rows, []string{
			f.Key,
			v.envStatus(f),
			maintainerText(f),
			dateText(f.CreatedAt),
			lastModifiedText(f),
		})
	}
	t := v.flagTable([]string{"Flag Key", "Environments", "Maintainer", "Created", "Last Modified"}, rows)
	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}
	return v.pagingFooter(w, meta)
}

// renderInactiveTable prints the inactive flags with their idle time.
func (v view) renderInactiveTable(w io.Writer, inactive []engine.InactiveFlag, meta pagination.Meta) error {
	if meta.TotalItems == 0 {
		ok := v.style().Foreground(colorOn()).Bold(true)
		_, err := fmt.Fprintf(w, "%s\n%s\n",
			ok.Render("No inactive flags found!"),
			v.printer.Sprintf("Every audited flag was modified within the last %d months.", v.months))
		return err
	}

	title := v.style().Foreground(colorWarning()).Bold(true)
	muted := v.style().Foreground(colorMuted())
	if _, err := fmt.Fprintf(w, "%s\n%s\n\nTotal inactive flags: %s\n\n",
		title.Render("Inactive Feature Flags"),
		muted.Render(v.printer.Sprintf("Flags not modified in any environment for %d+ months", v.months)),
		v.count(meta.TotalItems)); err != nil {
		return err
	}

	rows := make([][]string, 0, len(inactive))
	for _, f := range inactive {
		rows = append(rows, []string{
			f.Key,
			v.envStatus(f.Flag),
			maintainerText(f.Flag),
			dateText(f.CreatedAt),
			dateText(f.LastModifiedAt),
			v.idleText(f),
		})
	}
	t := v.flagTable([]string{"Flag Key", "Environments", "Maintainer", "Created", "Last Modified", "Idle"}, rows)
	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}
	return v.pagingFooter(w, meta)
}

// renderAuditText prints each referenced inactive flag with its locations.
func (v view) renderAuditText(w io.Writer, report *engine.AuditReport, entries []engine.AuditEntry, meta pagination.Meta) error {
	muted := v.style().Foreground(colorMuted())
	bold := v.style().Bold(true)

	if _, err := fmt.Fprintln(w, muted.Render(v.printer.Sprintf(
		"Checked %d inactive %s against %d files (%d skipped by extension, %d by size, %d binary).",
		len(report.Inactive), pluralize(len(report.Inactive), "flag", "flags"),
		report.Stats.FilesScanned, report.Stats.SkippedExtension, report.Stats.SkippedSize,
		report.Stats.SkippedBinary))); err != nil {
		return err
	}

	if meta.TotalItems == 0 {
		ok := v.style().Foreground(colorOn()).Bold(true)
		_, err := fmt.Fprintf(w, "\n%s\n%s\n",
			ok.Render("No inactive flags found in codebase!"),
			muted.Render("All inactive flags have been cleaned up."))
		return err
	}

	title := v.style().Foreground(colorWarning()).Bold(true)
	if _, err := fmt.Fprintf(w, "\n%s\n\n", title.Render(v.printer.Sprintf(
		"Found %d inactive %s in codebase", meta.TotalItems, pluralize(meta.TotalItems, "flag", "flags")))); err != nil {
		return err
	}

	keyStyle := v.style().Foreground(colorKey()).Bold(true)
	pathStyle := v.style().Foreground(colorWarning())
	lineStyle := v.style().Foreground(colorKey())
	for _, e := range entries {
		f := e.Flag
		if _, err := fmt.Fprintf(w, "%s (%s)\n", keyStyle.Render(f.Key), v.envStatus(f.Flag)); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "  %s %s\n  %s %s\n  %s %s\n  %s %s\n  %s\n",
			muted.Render("Maintainer:"), maintainerText(f.Flag),
			muted.Render("Created:"), dateText(f.CreatedAt),
			muted.Render("Idle:"), v.idleText(f),
			muted.Render("URL:"), v.flagURL(f.Key, f.PrimaryEnvironment),
			bold.Render("Locations:")); err != nil {
			return err
		}
		for _, m := range e.Matches {
			if _, err := fmt.Fprintf(w, "    %s:%s  %s\n",
				pathStyle.Render(m.Path), lineStyle.Render(fmt.Sprint(m.Line)), muted.Render(m.Text)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}

	if err := v.pagingFooter(w, meta); err != nil {
		return err
	}
	return v.renderWarnings(w, report)
}

func (v view) renderWarnings(w io.Writer, report *engine.AuditReport) error {
	if len(report.Warnings) == 0 {
		return nil
	}
	warn := v.style().Foreground(colorWarning())
	if _, err := fmt.Fprintln(w, warn.Render(v.printer.Sprintf("%d %s could not be scanned:",
		len(report.Warnings), pluralize(len(report.Warnings), "file", "files")))); err != nil {
		return err
	}
	for _, fw := range report.Warnings {
		if _, err := fmt.Fprintf(w, "  %s\n", fw.Error()); err != nil {
			return err
		}
	}
	return nil
}
