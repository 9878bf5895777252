package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ldaudit/ldaudit/internal/engine"
)

// Environment variables read by ApplyEnv.
const (
	EnvAPIKey       = "LD_API_KEY"
	EnvBaseURL      = "LD_BASE_URL"
	EnvProject      = "LDAUDIT_PROJECT"
	EnvMonths       = "LDAUDIT_MONTHS"
	EnvEnvironments = "LDAUDIT_ENVIRONMENTS"
	EnvCacheEnabled = "LDAUDIT_CACHE_ENABLED"
	EnvCacheTTL     = "LDAUDIT_CACHE_TTL"
	EnvCacheDir     = "LDAUDIT_CACHE_DIR"
	EnvOutput       = "LDAUDIT_OUTPUT"
	EnvLogLevel     = "LDAUDIT_LOG_LEVEL"
	EnvLogFormat    = "LDAUDIT_LOG_FORMAT"
	EnvLogFile      = "LDAUDIT_LOG_FILE"
)

// LoadDotEnv loads dir/.env into the process environment. Variables that
// are already set win. A missing file is not an error.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables onto cfg. getenv is normally
// os.Getenv. Malformed numeric or boolean values are reported as
// ErrConfigInvalid after all valid values are applied.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	var errs []error

	setString := func(name string, dst *string) {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		v := strings.TrimSpace(getenv(name))
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s=%q is not an integer", engine.ErrConfigInvalid, name, v))
			return
		}
		*dst = n
	}
	setBool := func(name string, dst *bool) {
		v := strings.TrimSpace(getenv(name))
		if v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s=%q is not a boolean", engine.ErrConfigInvalid, name, v))
			return
		}
		*dst = b
	}

	setString(EnvAPIKey, &cfg.LaunchDarkly.APIKey)
	setString(EnvBaseURL, &cfg.LaunchDarkly.BaseURL)
	setString(EnvProject, &cfg.LaunchDarkly.Project)
	setInt(EnvMonths, &cfg.Audit.Months)
	if v := getenv(EnvEnvironments); strings.TrimSpace(v) != "" {
		cfg.Audit.Environments = SplitList(v)
	}
	setBool(EnvCacheEnabled, &cfg.Cache.Enabled)
	setInt(EnvCacheTTL, &cfg.Cache.TTLSeconds)
	setString(EnvCacheDir, &cfg.Cache.Directory)
	setString(EnvOutput, &cfg.Output.DefaultFormat)
	setString(EnvLogLevel, &cfg.Logging.Level)
	setString(EnvLogFormat, &cfg.Logging.Format)
	setString(EnvLogFile, &cfg.Logging.File)

	return errors.Join(errs...)
}

// SplitList splits a comma-separated value, trimming blanks.
func SplitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
