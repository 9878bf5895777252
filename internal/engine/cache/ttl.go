package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// TTL configuration constants and defaults.
const (
	// DefaultTTLSeconds is the default cache TTL (1 hour).
	DefaultTTLSeconds = 3600

	// MaxTTLSeconds is the maximum allowed TTL (7 days).
	MaxTTLSeconds = 604800

	// minutesPerHour is used for duration formatting calculations.
	minutesPerHour = 60

	// hoursPerDay is used for duration formatting calculations.
	hoursPerDay = 24

	// appCacheDirName is the directory created under the user cache dir.
	appCacheDirName = "ldaudit"
)

// ErrInvalidTTL is returned for TTLs outside [0, MaxTTLSeconds].
var ErrInvalidTTL = fmt.Errorf("TTL must be between 0 and %d seconds", MaxTTLSeconds)

// Mode selects how a caller uses the cache for one request.
type Mode int

const (
	// ModeDefault serves fresh entries and writes fetched results.
	ModeDefault Mode = iota

	// ModeNoCache skips the read but still writes the fetched result, so the
	// next normal run is served from cache.
	ModeNoCache

	// ModeOverride skips the read, forces a fetch and always rewrites the entry.
	ModeOverride
)

// ReadAllowed reports whether lookups are performed in this mode.
func (m Mode) ReadAllowed() bool {
	return m == ModeDefault
}

// WriteAllowed reports whether fetched results are written in this mode.
func (m Mode) WriteAllowed() bool {
	return true
}

// String returns the flag-style name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeDefault:
		return "default"
	case ModeNoCache:
		return "no-cache"
	case ModeOverride:
		return "override"
	default:
		return "mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// ModeFromFlags maps the --no-cache and --override-cache flags to a Mode.
// Override wins when both are set.
func ModeFromFlags(noCache, override bool) Mode {
	switch {
	case override:
		return ModeOverride
	case noCache:
		return ModeNoCache
	default:
		return ModeDefault
	}
}

// DefaultDirectory returns the per-user cache directory for ldaudit.
func DefaultDirectory() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user cache directory: %w", err)
	}
	return filepath.Join(base, appCacheDirName), nil
}

// FormatDuration formats a duration in a human-readable way.
// Examples: "1h", "30m", "5m30s".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	if d < hoursPerDay*time.Hour {
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % minutesPerHour
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	days := int(d.Hours()) / hoursPerDay
	hours := int(d.Hours()) % hoursPerDay
	if hours == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd%dh", days, hours)
}

// ParseTTL parses a TTL string in various formats:
// - Integer seconds: "3600".
// - Duration string: "1h", "30m", "1h30m".
func ParseTTL(s string) (int, error) {
	if seconds, err := strconv.Atoi(s); err == nil {
		if seconds < 0 || seconds > MaxTTLSeconds {
			return 0, fmt.Errorf("%w: got %d", ErrInvalidTTL, seconds)
		}
		return seconds, nil
	}

	duration, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid TTL format: %w", err)
	}

	seconds := int(duration.Seconds())
	if seconds < 0 || seconds > MaxTTLSeconds {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidTTL, seconds)
	}

	return seconds, nil
}
