package identity

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SafeMPC/wallet-bridge/internal/api"
	"github.com/SafeMPC/wallet-bridge/internal/util/command"
)

func newRemove() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <public-key>",
		Short: "Removes an identity and its keys from the keychain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := command.LoadConfig(cmd)
			if err != nil {
				return err
			}

			return command.WithServer(cmd.Context(), cfg, func(ctx context.Context, s *api.Server) error {
				if err := s.Keychain.RemoveIdentity(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed identity %s\n", args[0])
				return nil
			})
		},
	}
}
