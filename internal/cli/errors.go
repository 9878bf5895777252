package cli

import (
	"errors"

	"github.com/ldaudit/ldaudit/internal/engine"
	"github.com/ldaudit/ldaudit/internal/scanner"
)

// ExitCodeStale is the exit code used by --fail-on-stale.
const ExitCodeStale = 2

// ExitError carries a specific process exit code to main. The command's
// output has already been written when it is returned.
type ExitError struct {
	Code   int
	Reason string
}

func (e *ExitError) Error() string {
	return e.Reason
}

// ErrorHint returns a short remediation message for err, or "" when there
// is nothing useful to add.
func ErrorHint(err error) string {
	var srcErr *engine.SourceError
	if errors.As(err, &srcErr) {
		return srcErr.Hint()
	}
	switch {
	case errors.Is(err, scanner.ErrScanRootInvalid):
		return "check the --dir value or scan.directory"
	case errors.Is(err, engine.ErrInvalidFlagData):
		return "the API response could not be parsed; retry with --override-cache"
	case errors.Is(err, engine.ErrConfigInvalid):
		return "run 'ldaudit config validate' to check the effective configuration"
	default:
		return ""
	}
}
