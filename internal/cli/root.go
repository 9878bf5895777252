package cli

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ldaudit/ldaudit/internal/config"
	"github.com/ldaudit/ldaudit/internal/engine"
	"github.com/ldaudit/ldaudit/internal/launchdarkly"
	"github.com/ldaudit/ldaudit/internal/logging"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// annotationConfigOptional marks commands that still run when the config
// files cannot be loaded.
const annotationConfigOptional = "ldaudit/config-optional"

// Deps are the collaborators a command tree runs against. Zero fields use
// the real implementations.
type Deps struct {
	// Getenv reads environment variables.
	Getenv func(string) string

	// WorkingDir is searched for .env and .ldaudit.yaml. Empty uses the
	// process working directory.
	WorkingDir string

	// Now is the clock used for inactivity and cache ages.
	Now func() time.Time

	// NewSource builds the flag source from the effective configuration.
	NewSource func(cfg *config.Config) (engine.FlagSource, error)
}

func (d Deps) withDefaults(ver string) Deps {
	if d.Getenv == nil {
		d.Getenv = os.Getenv
	}
	if d.WorkingDir == "" {
		if wd, err := os.Getwd(); err == nil {
			d.WorkingDir = wd
		}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewSource == nil {
		d.NewSource = func(cfg *config.Config) (engine.FlagSource, error) {
			ld := cfg.LaunchDarkly
			client := launchdarkly.NewClient(ld.BaseURL, ld.APIKey, time.Duration(ld.TimeoutSeconds)*time.Second)
			client.PageSize = ld.PageSize
			client.UserAgent = "ldaudit/" + ver
			return client, nil
		}
	}
	return d
}

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath    string
	debug         bool
	project       string
	environments  []string
	baseURL       string
	noCache       bool
	overrideCache bool
	cacheTTL      string
	output        string
	color         string
}

// NewRootCmd creates the root Cobra command for the ldaudit CLI.
func NewRootCmd(ver string) *cobra.Command {
	return NewRootCmdWithDeps(ver, Deps{})
}

// NewRootCmdWithDeps creates the root command with explicit collaborators
// for testability.
func NewRootCmdWithDeps(ver string, deps Deps) *cobra.Command {
	deps = deps.withDefaults(ver)
	opts := &rootOptions{}
	var logResult *logging.LogPathResult

	cmd := &cobra.Command{
		Use:   "ldaudit",
		Short: "Find stale LaunchDarkly feature flags and where the code still uses them",
		Long: `ldaudit reads flag metadata from the LaunchDarkly API, reports flags that
have not been modified for a number of months in any tracked environment,
and scans a codebase for lines that still reference them.`,
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, deps, opts)
			if err != nil {
				return err
			}
			config.SetGlobalConfig(cfg)

			result := setupLogging(cmd, cfg, opts.debug)
			logResult = &result
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return cleanupLogging(logResult)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default $LDAUDIT_HOME/config.yaml)")
	pf.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	pf.StringVarP(&opts.project, "project", "p", "", "LaunchDarkly project key")
	pf.StringSliceVar(&opts.environments, "env", nil,
		"environments to evaluate, in priority order (comma-separated or repeated)")
	pf.StringVar(&opts.baseURL, "base-url", "", "LaunchDarkly base URL")
	pf.BoolVar(&opts.noCache, "no-cache", false, "skip reading the response cache (results are still cached)")
	pf.BoolVar(&opts.overrideCache, "override-cache", false, "force a fresh fetch and replace the cached response")
	pf.StringVar(&opts.cacheTTL, "cache-ttl", "", "cache TTL in seconds or as a duration such as 30m")
	pf.StringVarP(&opts.output, "output", "o", "", "output format: table, json or slack")
	pf.StringVar(&opts.color, "color", "", "colorize table output: auto, always or never")

	cmd.AddCommand(
		newListCmd(deps),
		newInactiveCmd(deps),
		newScanCmd(deps),
		newCacheCmd(deps),
		newConfigCmd(deps),
		newVersionCmd(ver),
	)

	return cmd
}

const rootCmdExample = `  # List every flag of a project
  ldaudit list --project web

  # Flags untouched for 6 months in production or staging
  ldaudit inactive --project web --months 6 --env production,staging

  # Where does the code still use stale flags?
  ldaudit scan --project web --dir ./src --ext js,ts

  # Post a Slack-ready summary
  ldaudit inactive --project web --output slack

  # Bypass the response cache
  ldaudit inactive --project web --override-cache

  # Initialize configuration
  ldaudit config init`

// newConfigCmd creates the config command group with configuration subcommands.
func newConfigCmd(deps Deps) *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(newConfigInitCmd(deps), newConfigShowCmd(), newConfigValidateCmd())
	return cmd
}
