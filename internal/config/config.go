// Package config loads ldaudit settings from the user config file, a
// project-local overlay, a .env file and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default values.
const (
	DefaultBaseURL        = "https://app.launchdarkly.com"
	DefaultMonths         = 3
	DefaultEnvironment    = "production"
	DefaultTimeoutSeconds = 30
	DefaultPageSize       = 100
	DefaultMaxFileSizeMB  = 5
	DefaultCacheTTL       = 3600
	DefaultMatch          = "substring"
	DefaultOutputFormat   = "table"
	DefaultColor          = "auto"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "console"

	configFileName  = "config.yaml"
	projectFileName = ".ldaudit.yaml"
	configDirName   = ".ldaudit"
)

// Config is the complete ldaudit configuration.
type Config struct {
	LaunchDarkly LaunchDarklyConfig `yaml:"launchdarkly"`
	Audit        AuditConfig        `yaml:"audit"`
	Scan         ScanConfig         `yaml:"scan"`
	Cache        CacheConfig        `yaml:"cache"`
	Output       OutputConfig       `yaml:"output"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// LaunchDarklyConfig holds API connection settings.
type LaunchDarklyConfig struct {
	// APIKey is normally supplied through LD_API_KEY rather than the file.
	APIKey         string `yaml:"api_key,omitempty"`
	BaseURL        string `yaml:"base_url" validate:"required,http_url"`
	Project        string `yaml:"project,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"gte=1,lte=600"`
	PageSize       int    `yaml:"page_size" validate:"gte=1,lte=100"`
}

// AuditConfig holds inactivity criteria defaults.
type AuditConfig struct {
	Months           int      `yaml:"months" validate:"gte=1,lte=1200"`
	Environments     []string `yaml:"environments" validate:"min=1,dive,required"`
	Maintainers      []string `yaml:"maintainers,omitempty"`
	Excludes         []string `yaml:"excludes,omitempty"`
	IncludePermanent bool     `yaml:"include_permanent"`
	IncludeArchived  bool     `yaml:"include_archived"`
}

// ScanConfig holds codebase scan defaults.
type ScanConfig struct {
	Directory     string   `yaml:"directory" validate:"required"`
	Extensions    []string `yaml:"extensions,omitempty"`
	MaxFileSizeMB int      `yaml:"max_file_size_mb" validate:"gte=0,lte=1024"`
	// ExcludeDirs replaces the built-in exclusion list when non-empty.
	ExcludeDirs []string `yaml:"exclude_dirs,omitempty"`
	Workers     int      `yaml:"workers" validate:"gte=0,lte=256"`
	Match       string   `yaml:"match" validate:"oneof=substring quoted boundary"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Enabled    bool `yaml:"enabled"`
	TTLSeconds int  `yaml:"ttl_seconds" validate:"gte=0,lte=604800"`
	// Directory defaults to the per-user cache directory when empty.
	Directory string `yaml:"directory,omitempty"`
}

// OutputConfig holds presentation defaults.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format" validate:"oneof=table json slack"`
	Color         string `yaml:"color" validate:"oneof=auto always never"`
}

// New returns the configuration with built-in defaults only.
func New() *Config {
	return &Config{
		LaunchDarkly: LaunchDarklyConfig{
			BaseURL:        DefaultBaseURL,
			TimeoutSeconds: DefaultTimeoutSeconds,
			PageSize:       DefaultPageSize,
		},
		Audit: AuditConfig{
			Months:       DefaultMonths,
			Environments: []string{DefaultEnvironment},
		},
		Scan: ScanConfig{
			Directory:     ".",
			MaxFileSizeMB: DefaultMaxFileSizeMB,
			Match:         DefaultMatch,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: DefaultCacheTTL,
		},
		Output: OutputConfig{
			DefaultFormat: DefaultOutputFormat,
			Color:         DefaultColor,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// LoadFile unmarshals the YAML file at path onto cfg. Sections absent from
// the file keep their current values.
func LoadFile(cfg *Config, path string) error {
	if cfg == nil {
		return errors.New("nil *Config in LoadFile")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// Save writes cfg to path as YAML, creating parent directories. The API key
// is never written.
func (c *Config) Save(path string) error {
	out := *c
	out.LaunchDarkly.APIKey = ""

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file %s: %w", path, err)
	}
	return nil
}

// GetConfigDir returns the ldaudit configuration directory: $LDAUDIT_HOME
// when set, otherwise ~/.ldaudit.
func GetConfigDir() (string, error) {
	if home := os.Getenv("LDAUDIT_HOME"); home != "" {
		return home, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, configDirName), nil
}

// GetConfigPath returns the path of the user configuration file.
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// ProjectConfigPath returns the project overlay path inside dir.
func ProjectConfigPath(dir string) string {
	return filepath.Join(dir, projectFileName)
}
