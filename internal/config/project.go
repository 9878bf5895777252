package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ldaudit/ldaudit/internal/logging"
)

// EnvProjectDir pins the directory searched for .env and .ldaudit.yaml.
const EnvProjectDir = "LDAUDIT_PROJECT_DIR"

const repoMarker = ".git"

// ResolveProjectDir returns the directory Load should treat as the project.
// override (normally $LDAUDIT_PROJECT_DIR) wins when set. Otherwise the
// search walks up from startDir to the nearest directory holding a
// .ldaudit.yaml, stopping at the repository root or the filesystem root.
// When nothing is found startDir itself is returned.
// The returned path is absolute when it can be resolved.
func ResolveProjectDir(ctx context.Context, override, startDir string) string {
	if override != "" {
		return absOrSelf(ctx, override)
	}
	if startDir == "" {
		return ""
	}

	start := absOrSelf(ctx, startDir)
	current := start
	for {
		if _, err := os.Stat(ProjectConfigPath(current)); err == nil {
			if current != start {
				logging.FromContext(ctx).Debug().
					Ctx(ctx).
					Str("component", "config").
					Str("operation", "resolve_project_dir").
					Str("start_dir", start).
					Str("project_dir", current).
					Msg("found project config in parent directory")
			}
			return current
		}
		if _, err := os.Stat(filepath.Join(current, repoMarker)); err == nil {
			return start
		}

		parent := filepath.Dir(current)
		if parent == current {
			return start
		}
		current = parent
	}
}

func absOrSelf(ctx context.Context, dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		logging.FromContext(ctx).Warn().
			Str("component", "config").
			Err(err).
			Str("dir", dir).
			Msg("failed to resolve absolute path for project directory")
		return dir
	}
	return abs
}
