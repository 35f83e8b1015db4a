package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rezytijo/mcp-collection/internal/version"
)

// newVersionCmd builds the version subcommand for the named binary.
func newVersionCmd(binary string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print the version, commit hash, and build date.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n", binary, version.Version)
			fmt.Printf("  Commit:     %s\n", version.Commit)
			fmt.Printf("  Build Date: %s\n", version.BuildDate)
		},
	}
}
