package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/ldaudit/ldaudit/internal/logging"
	"github.com/ldaudit/ldaudit/internal/scanner"
)

// AuditRequest describes one audit run.
type AuditRequest struct {
	// Fetch selects the flag data. Empty Fetch.Environments defaults to
	// Criteria.Environments.
	Fetch    FetchRequest
	Criteria Criteria
	Scan     scanner.Config
}

// AuditEntry is an inactive flag together with its code references.
type AuditEntry struct {
	Flag    InactiveFlag    `json:"flag"`
	Matches []scanner.Match `json:"matches"`
}

// AuditReport is the outcome of an audit run.
type AuditReport struct {
	Project     string    `json:"project"`
	GeneratedAt time.Time `json:"generated_at"`
	FromCache   bool      `json:"from_cache"`
	TotalFlags  int       `json:"total_flags"`

	// Inactive lists every inactive flag, referenced or not.
	Inactive []InactiveFlag `json:"inactive"`

	// Entries lists inactive flags with at least one reference, in the
	// same order as Inactive.
	Entries []AuditEntry `json:"entries"`

	Warnings []scanner.FileWarning `json:"-"`
	Stats    scanner.Stats         `json:"stats"`
}

// Unreferenced returns inactive flags with no code references.
func (r *AuditReport) Unreferenced() []InactiveFlag {
	referenced := make(map[string]struct{}, len(r.Entries))
	for _, e := range r.Entries {
		referenced[e.Flag.Key] = struct{}{}
	}
	var out []InactiveFlag
	for _, f := range r.Inactive {
		if _, ok := referenced[f.Key]; !ok {
			out = append(out, f)
		}
	}
	return out
}

// Auditor combines flag data, inactivity analysis and the code scan.
type Auditor struct {
	flags FlagProvider
}

// NewAuditor returns an auditor reading flags from provider.
func NewAuditor(provider FlagProvider) *Auditor {
	return &Auditor{flags: provider}
}

// Run fetches flags, computes the inactive set and scans for references to
// it. Criteria, scan configuration and the scan root are validated before
// any data is fetched.
func (a *Auditor) Run(ctx context.Context, req AuditRequest) (*AuditReport, error) {
	log := logging.FromContext(ctx)

	if err := req.Criteria.Validate(); err != nil {
		return nil, err
	}
	sc, err := scanner.New(req.Scan)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}
	if err := sc.ValidateRoot(); err != nil {
		return nil, err
	}

	fetch := req.Fetch
	if len(fetch.Environments) == 0 {
		fetch.Environments = req.Criteria.Environments
	}
	set, err := a.flags.Flags(ctx, fetch)
	if err != nil {
		return nil, err
	}

	inactive, err := ComputeInactive(set.Flags, req.Criteria)
	if err != nil {
		return nil, err
	}

	report := &AuditReport{
		Project:     set.Project,
		GeneratedAt: req.Criteria.now(),
		FromCache:   set.FromCache,
		TotalFlags:  len(set.Flags),
		Inactive:    inactive,
		Entries:     []AuditEntry{},
	}
	if len(inactive) == 0 {
		return report, nil
	}

	keys := make([]string, 0, len(inactive))
	for _, f := range inactive {
		keys = append(keys, f.Key)
	}

	result, err := sc.Scan(ctx, keys)
	if err != nil {
		return nil, err
	}
	report.Warnings = result.Warnings
	report.Stats = result.Stats

	byKey := result.ByKey()
	for _, f := range inactive {
		matches, ok := byKey[f.Key]
		if !ok {
			continue
		}
		report.Entries = append(report.Entries, AuditEntry{Flag: f, Matches: matches})
	}

	log.Debug().
		Ctx(ctx).
		Str("component", "auditor").
		Str("operation", "run").
		Str("project", set.Project).
		Int("flags", len(set.Flags)).
		Int("inactive", len(inactive)).
		Int("referenced", len(report.Entries)).
		Msg("audit complete")

	return report, nil
}
