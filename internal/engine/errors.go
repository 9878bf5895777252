package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for the audit pipeline.
var (
	// ErrDataSourceUnavailable indicates flag data could not be fetched.
	// The concrete cause is available through *SourceError.
	ErrDataSourceUnavailable = errors.New("flag data source unavailable")

	// ErrConfigInvalid indicates caller-supplied criteria or settings are unusable.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrInvalidFlagData indicates the source returned data that cannot be normalized.
	ErrInvalidFlagData = errors.New("invalid flag data")
)

// SourceErrorKind classifies data source failures.
type SourceErrorKind string

// Data source failure kinds.
const (
	KindAuth        SourceErrorKind = "auth"
	KindNotFound    SourceErrorKind = "not-found"
	KindRateLimited SourceErrorKind = "rate-limited"
	KindNetwork     SourceErrorKind = "network"
	KindServer      SourceErrorKind = "server"
	KindUnknown     SourceErrorKind = "unknown"
)

// kindedError is implemented by source errors that know their kind.
type kindedError interface {
	SourceKind() SourceErrorKind
}

// SourceError wraps a data source failure. It matches
// ErrDataSourceUnavailable with errors.Is.
type SourceError struct {
	Kind    SourceErrorKind
	Project string
	Err     error
}

// Error implements error.
func (e *SourceError) Error() string {
	return fmt.Sprintf("%s (%s) for project %q: %v", ErrDataSourceUnavailable, e.Kind, e.Project, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *SourceError) Unwrap() []error {
	return []error{ErrDataSourceUnavailable, e.Err}
}

// Hint returns a short remediation message for the failure kind.
func (e *SourceError) Hint() string {
	switch e.Kind {
	case KindAuth:
		return "check that the API key is valid and has read access"
	case KindNotFound:
		return "check the project key"
	case KindRateLimited:
		return "rate limited by the API; retry later or rely on the cache"
	case KindNetwork:
		return "check network connectivity and the base URL"
	case KindServer:
		return "the API returned a server error; retry later"
	case KindUnknown:
		return ""
	default:
		return ""
	}
}

func newSourceError(project string, err error) *SourceError {
	kind := KindUnknown
	var k kindedError
	if errors.As(err, &k) {
		kind = k.SourceKind()
	}
	return &SourceError{Kind: kind, Project: project, Err: err}
}

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfigInvalid, fmt.Sprintf(format, args...))
}
