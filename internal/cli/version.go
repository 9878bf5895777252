package cli

import (
	"github.com/spf13/cobra"

	"github.com/ldaudit/ldaudit/internal/version"
)

// newVersionCmd creates the version command.
func newVersionCmd(ver string) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationConfigOptional: "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("ldaudit %s (commit %s, built %s)\n", ver, version.GetCommit(), version.GetBuildDate())
		},
	}
}
