package probe

import (
	"github.com/spf13/cobra"
)

func newLiveness() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "liveness",
		Short: "Runs liveness probes",
		Long: `This command checks whether the running bridge process answers
on its management endpoint.

Exits with status code 0 if the server is alive.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProbe(cmd, "/health/live")
		},
	}
	cmd.Flags().BoolP(verboseFlag, "v", false, "Show verbose output.")
	return cmd
}
