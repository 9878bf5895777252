package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ldaudit/ldaudit/internal/config"
	"github.com/ldaudit/ldaudit/internal/engine"
)

const redacted = "********"

// newConfigInitCmd creates the config init command.
func newConfigInitCmd(deps Deps) *cobra.Command {
	var (
		force        bool
		projectLocal bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file with default values",
		Long: `Creates a configuration file with default values.

By default the user configuration at $LDAUDIT_HOME/config.yaml (~/.ldaudit)
is written. With --project-local a .ldaudit.yaml overlay is written to the
current directory instead; its sections replace the user configuration's.`,
		Example: `  # Create the user configuration
  ldaudit config init

  # Create a project overlay, overwriting an existing one
  ldaudit config init --project-local --force`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationConfigOptional: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := configInitPath(cmd, deps, projectLocal)
			if err != nil {
				return err
			}
			return initConfigFile(cmd, path, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing configuration file")
	cmd.Flags().BoolVar(&projectLocal, "project-local", false, "write .ldaudit.yaml in the current directory")

	return cmd
}

func configInitPath(cmd *cobra.Command, deps Deps, projectLocal bool) (string, error) {
	if projectLocal {
		return config.ProjectConfigPath(deps.WorkingDir), nil
	}
	if explicit, _ := cmd.Flags().GetString("config"); explicit != "" {
		return explicit, nil
	}
	return config.GetConfigPath()
}

func initConfigFile(cmd *cobra.Command, path string, force bool) error {
	if !force {
		_, err := os.Stat(path)
		if err == nil {
			return errors.New("configuration file already exists, use --force to overwrite")
		}
		if !os.IsNotExist(err) {
			return fmt.Errorf("cannot access config path %s: %w", path, err)
		}
	}

	if err := config.New().Save(path); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	cmd.Printf("Configuration initialized at %s\n", path)
	cmd.Printf("Set %s in your environment or a .env file to authenticate.\n", config.EnvAPIKey)
	return nil
}

// newConfigShowCmd creates the config show command.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Prints the configuration after merging defaults, the user file, the project
overlay, environment variables and command-line flags. The API key is redacted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeConfigShow(cmd, config.GetGlobalConfig())
		},
	}
}

func executeConfigShow(cmd *cobra.Command, cfg *config.Config) error {
	shown := *cfg
	if shown.LaunchDarkly.APIKey != "" {
		shown.LaunchDarkly.APIKey = redacted
	}

	w := cmd.OutOrStdout()
	if cfg.Output.DefaultFormat == formatJSON {
		return writeJSON(w, shown)
	}

	data, err := yaml.Marshal(&shown)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// newConfigValidateCmd creates the config validate command.
func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration",
		Long: `Checks the merged configuration against its rules and reports every problem
found, naming each setting by its YAML path.`,
		Example: `  # Validate the user configuration and project overlay
  ldaudit config validate

  # Validate a specific file
  ldaudit config validate --config ./ci/ldaudit.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeConfigValidate(cmd, config.GetGlobalConfig())
		},
	}
}

func executeConfigValidate(cmd *cobra.Command, cfg *config.Config) error {
	problems := cfg.Problems()
	if len(problems) > 0 {
		cmd.Printf("Configuration has %d %s:\n", len(problems), pluralize(len(problems), "problem", "problems"))
		for _, p := range problems {
			cmd.Printf("  - %s\n", p)
		}
		return fmt.Errorf("%w: %d %s", engine.ErrConfigInvalid, len(problems), pluralize(len(problems), "problem", "problems"))
	}

	cmd.Println("Configuration is valid")
	if cfg.LaunchDarkly.APIKey == "" {
		cmd.Printf("Warning: no API key set (%s)\n", config.EnvAPIKey)
	}
	if cfg.LaunchDarkly.Project == "" {
		cmd.Printf("Warning: no project set (--project, %s or launchdarkly.project)\n", config.EnvProject)
	}
	return nil
}
