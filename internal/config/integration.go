package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/ldaudit/ldaudit/internal/logging"
)

// GlobalConfig holds the global configuration instance.
var GlobalConfig *Config        //nolint:gochecknoglobals // Singleton pattern for configuration
var globalConfigMu sync.RWMutex //nolint:gochecknoglobals // Protects globalConfigInit flag
var globalConfigInit bool       //nolint:gochecknoglobals // Tracks if global config has been initialized

// LoadOptions controls Load.
type LoadOptions struct {
	// ConfigPath overrides the user config file location.
	ConfigPath string

	// ProjectDir is searched for .env and .ldaudit.yaml. Empty skips both.
	ProjectDir string

	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Load builds the effective configuration: defaults, then the user config
// file, then the project overlay, then environment variables. The .env file
// in ProjectDir is loaded into the environment first. The result is not
// validated; callers apply flag overrides and then call Validate.
func Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	log := logging.FromContext(ctx)
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	if opts.ProjectDir != "" {
		if err := LoadDotEnv(opts.ProjectDir); err != nil {
			log.Warn().Ctx(ctx).Str("component", "config").Err(err).Msg("ignoring unreadable .env file")
		}
	}

	cfg := New()

	path := opts.ConfigPath
	explicit := path != ""
	if !explicit {
		var err error
		if path, err = GetConfigPath(); err != nil {
			return nil, err
		}
	}
	if err := LoadFile(cfg, path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || explicit {
			return nil, err
		}
		log.Debug().Ctx(ctx).Str("component", "config").Str("path", path).Msg("no user config file, using defaults")
	}

	if opts.ProjectDir != "" {
		overlay := ProjectConfigPath(opts.ProjectDir)
		if _, err := os.Stat(overlay); err == nil {
			if mergeErr := ShallowMergeYAML(cfg, overlay); mergeErr != nil {
				return nil, mergeErr
			}
			log.Debug().
				Ctx(ctx).
				Str("component", "config").
				Str("operation", "merge_project_config").
				Str("overlay_path", overlay).
				Msg("applied project config")
		}
	}

	if err := ApplyEnv(cfg, getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetGlobalConfig installs cfg as the global configuration.
func SetGlobalConfig(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	GlobalConfig = cfg
	globalConfigInit = true
}

// InitGlobalConfig initializes the global configuration from the default
// locations, falling back to built-in defaults when loading fails.
func InitGlobalConfig() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()

	if globalConfigInit {
		return
	}

	cfg, err := Load(context.Background(), LoadOptions{})
	if err != nil {
		cfg = New()
	}
	GlobalConfig = cfg
	globalConfigInit = true
}

// ResetGlobalConfigForTest resets the global config for testing purposes.
func ResetGlobalConfigForTest() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()

	GlobalConfig = nil
	globalConfigInit = false
}

// GetGlobalConfig returns the global configuration, initializing it if needed.
func GetGlobalConfig() *Config {
	InitGlobalConfig()
	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return GlobalConfig
}

// EnsureConfigDir ensures the ldaudit configuration directory exists.
func EnsureConfigDir() error {
	dir, err := GetConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory %q: %w", dir, err)
	}
	return nil
}
