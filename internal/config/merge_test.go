package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShallowMergeYAML(t *testing.T) {
	tests := []struct {
		name    string
		overlay string
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name:    "empty overlay keeps target",
			overlay: "# nothing here\n",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9, cfg.Audit.Months)
			},
		},
		{
			name:    "section replaced wholesale",
			overlay: "audit:\n  excludes: [keep-me]\n",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"keep-me"}, cfg.Audit.Excludes)
				assert.Equal(t, DefaultMonths, cfg.Audit.Months, "omitted fields fall back to defaults")
			},
		},
		{
			name:    "untouched sections survive",
			overlay: "output:\n  default_format: json\n",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "json", cfg.Output.DefaultFormat)
				assert.Equal(t, 9, cfg.Audit.Months)
			},
		},
		{
			name:    "api key is never taken from the overlay",
			overlay: "launchdarkly:\n  api_key: leaked\n  project: web\n",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "user-key", cfg.LaunchDarkly.APIKey)
				assert.Equal(t, "web", cfg.LaunchDarkly.Project)
			},
		},
		{
			name:    "unknown keys ignored",
			overlay: "plugins:\n  x: 1\n",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9, cfg.Audit.Months)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ".ldaudit.yaml")
			writeYAML(t, path, tt.overlay)

			cfg := New()
			cfg.Audit.Months = 9
			cfg.LaunchDarkly.APIKey = "user-key"
			require.NoError(t, ShallowMergeYAML(cfg, path))
			tt.check(t, cfg)
		})
	}
}

func TestShallowMergeYAML_Errors(t *testing.T) {
	require.Error(t, ShallowMergeYAML(nil, "x"))
	require.Error(t, ShallowMergeYAML(New(), filepath.Join(t.TempDir(), "missing.yaml")))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeYAML(t, path, "audit:\n  months: [1, 2]\n")
	require.Error(t, ShallowMergeYAML(New(), path))
}
