package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of scanrun and its bundled scanners",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scanrun version %s\n", version)
			for _, s := range newRegistry(nil).All() {
				fmt.Fprintf(out, "  %-14s %s\n", s.Name(), s.Description())
			}
		},
	}
}
