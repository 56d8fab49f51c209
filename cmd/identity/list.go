package identity

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/SafeMPC/wallet-bridge/internal/api"
	"github.com/SafeMPC/wallet-bridge/internal/util/command"
)

func newList() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Lists the identities in the keychain",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := command.LoadConfig(cmd)
			if err != nil {
				return err
			}

			return command.WithServer(cmd.Context(), cfg, func(ctx context.Context, s *api.Server) error {
				identities, err := s.Keychain.Identities(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), identities)
			})
		},
	}
}
