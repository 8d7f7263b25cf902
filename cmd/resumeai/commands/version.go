package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/resumeai-go/internal/version"
)

// NewVersionCmd constructs the `resumeai version` subcommand. Values are
// injected at build time via -ldflags and fall back to "dev"/"unknown".
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the resumeai version, git commit, and build date",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "resumeai %s\n", version.String())
		},
	}
}
