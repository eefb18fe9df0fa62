package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ChristianLindehammar/http-reply-test-server/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "replyserver version %s\n", version.String())
		},
	}
}
