package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveProjectDir(t *testing.T) {
	ctx := context.Background()

	t.Run("override wins", func(t *testing.T) {
		override := t.TempDir()
		assert.Equal(t, override, ResolveProjectDir(ctx, override, t.TempDir()))
	})

	t.Run("overlay in start dir", func(t *testing.T) {
		dir := t.TempDir()
		writeYAML(t, ProjectConfigPath(dir), "audit:\n  months: 2\n")
		assert.Equal(t, dir, ResolveProjectDir(ctx, "", dir))
	})

	t.Run("overlay in parent", func(t *testing.T) {
		root := t.TempDir()
		writeYAML(t, ProjectConfigPath(root), "audit:\n  months: 2\n")
		nested := filepath.Join(root, "services", "api")
		require.NoError(t, os.MkdirAll(nested, 0o755))
		assert.Equal(t, root, ResolveProjectDir(ctx, "", nested))
	})

	t.Run("search stops at repository root", func(t *testing.T) {
		outer := t.TempDir()
		writeYAML(t, ProjectConfigPath(outer), "audit:\n  months: 2\n")
		repo := filepath.Join(outer, "repo")
		require.NoError(t, os.MkdirAll(filepath.Join(repo, ".git"), 0o755))
		nested := filepath.Join(repo, "src")
		require.NoError(t, os.MkdirAll(nested, 0o755))

		assert.Equal(t, nested, ResolveProjectDir(ctx, "", nested))
	})

	t.Run("empty start", func(t *testing.T) {
		assert.Empty(t, ResolveProjectDir(ctx, "", ""))
	})
}

func TestLoad_ProjectOverlayFromParent(t *testing.T) {
	t.Setenv("LDAUDIT_HOME", t.TempDir())
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	writeYAML(t, ProjectConfigPath(root), "launchdarkly:\n  project: mobile\n")
	nested := filepath.Join(root, "app")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	ctx := context.Background()
	cfg, err := Load(ctx, LoadOptions{ProjectDir: ResolveProjectDir(ctx, "", nested), Getenv: noEnv})
	require.NoError(t, err)
	assert.Equal(t, "mobile", cfg.LaunchDarkly.Project)
}
