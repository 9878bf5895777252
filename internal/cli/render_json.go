package cli

import (
	"encoding/json"
	"io"
	"time"

	"github.com/ldaudit/ldaudit/internal/cli/pagination"
	"github.com/ldaudit/ldaudit/internal/engine"
	"github.com/ldaudit/ldaudit/internal/scanner"
)

type flagJSON struct {
	engine.Flag
	URL string `json:"url"`
}

type inactiveFlagJSON struct {
	engine.InactiveFlag
	IdleDays int    `json:"idle_days"`
	URL      string `json:"url"`
}

type flagListJSON struct {
	Project      string          `json:"project"`
	Environments []string        `json:"environments"`
	FetchedAt    time.Time       `json:"fetched_at"`
	FromCache    bool            `json:"from_cache"`
	Pagination   pagination.Meta `json:"pagination"`
	Flags        []flagJSON      `json:"flags"`
}

type inactiveListJSON struct {
	Project      string             `json:"project"`
	Environments []string           `json:"environments"`
	Months       int                `json:"months"`
	GeneratedAt  time.Time          `json:"generated_at"`
	FromCache    bool               `json:"from_cache"`
	TotalFlags   int                `json:"total_flags"`
	Pagination   pagination.Meta    `json:"pagination"`
	Flags        []inactiveFlagJSON `json:"flags"`
}

type auditEntryJSON struct {
	Flag       inactiveFlagJSON `json:"flag"`
	References []scanner.Match  `json:"references"`
}

type scanWarningJSON struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

type auditJSON struct {
	Project       string            `json:"project"`
	Environments  []string          `json:"environments"`
	Months        int               `json:"months"`
	GeneratedAt   time.Time         `json:"generated_at"`
	FromCache     bool              `json:"from_cache"`
	TotalFlags    int               `json:"total_flags"`
	InactiveCount int               `json:"inactive_count"`
	Stats         scanner.Stats     `json:"stats"`
	Pagination    pagination.Meta   `json:"pagination"`
	Entries       []auditEntryJSON  `json:"entries"`
	Unreferenced  []string          `json:"unreferenced"`
	Warnings      []scanWarningJSON `json:"warnings"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (v view) inactiveJSON(f engine.InactiveFlag) inactiveFlagJSON {
	return inactiveFlagJSON{InactiveFlag: f, IdleDays: idleDays(f), URL: v.flagURL(f.Key, f.PrimaryEnvironment)}
}

func (v view) renderFlagListJSON(w io.Writer, set *engine.FlagSet, flags []engine.Flag, meta pagination.Meta) error {
	out := flagListJSON{
		Project:      set.Project,
		Environments: set.Environments,
		FetchedAt:    set.FetchedAt,
		FromCache:    set.FromCache,
		Pagination:   meta,
		Flags:        make([]flagJSON, 0, len(flags)),
	}
	for _, f := range flags {
		out.Flags = append(out.Flags, flagJSON{Flag: f, URL: v.flagURL(f.Key, engine.PrimaryEnvironment(f, v.envs))})
	}
	return writeJSON(w, out)
}

func (v view) renderInactiveJSON(
	w io.Writer,
	set *engine.FlagSet,
	inactive []engine.InactiveFlag,
	meta pagination.Meta,
) error {
	out := inactiveListJSON{
		Project:      set.Project,
		Environments: v.envs,
		Months:       v.months,
		GeneratedAt:  v.now.UTC(),
		FromCache:    set.FromCache,
		TotalFlags:   len(set.Flags),
		Pagination:   meta,
		Flags:        make([]inactiveFlagJSON, 0, len(inactive)),
	}
	for _, f := range inactive {
		out.Flags = append(out.Flags, v.inactiveJSON(f))
	}
	return writeJSON(w, out)
}

func (v view) renderAuditJSON(w io.Writer, report *engine.AuditReport, entries []engine.AuditEntry, meta pagination.Meta) error {
	out := auditJSON{
		Project:       report.Project,
		Environments:  v.envs,
		Months:        v.months,
		GeneratedAt:   report.GeneratedAt.UTC(),
		FromCache:     report.FromCache,
		TotalFlags:    report.TotalFlags,
		InactiveCount: len(report.Inactive),
		Stats:         report.Stats,
		Pagination:    meta,
		Entries:       make([]auditEntryJSON, 0, len(entries)),
		Unreferenced:  []string{},
		Warnings:      make([]scanWarningJSON, 0, len(report.Warnings)),
	}
	for _, e := range entries {
		out.Entries = append(out.Entries, auditEntryJSON{Flag: v.inactiveJSON(e.Flag), References: e.Matches})
	}
	for _, f := range report.Unreferenced() {
		out.Unreferenced = append(out.Unreferenced, f.Key)
	}
	for _, fw := range report.Warnings {
		msg := ""
		if fw.Err != nil {
			msg = fw.Err.Error()
		}
		out.Warnings = append(out.Warnings, scanWarningJSON{Path: fw.Path, Error: msg})
	}
	return writeJSON(w, out)
}
