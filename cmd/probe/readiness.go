package probe

import (
	"github.com/spf13/cobra"
)

func newReadiness() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "readiness",
		Short: "Runs readiness probes",
		Long: `This command checks whether the bridge is ready to accept requests,
including reachability of the configured storage backend.

Exits with status code 0 if all probes succeed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProbe(cmd, "/health/ready")
		},
	}
	cmd.Flags().BoolP(verboseFlag, "v", false, "Show verbose output.")
	return cmd
}
