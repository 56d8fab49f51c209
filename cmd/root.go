package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/SafeMPC/wallet-bridge/cmd/db"
	"github.com/SafeMPC/wallet-bridge/cmd/identity"
	"github.com/SafeMPC/wallet-bridge/cmd/probe"
	"github.com/SafeMPC/wallet-bridge/internal/util/command"
)

var rootCmd = &cobra.Command{
	Use:   "app",
	Short: "wallet-bridge",
	Long: `wallet-bridge mediates between origins and the holder's keys.

Requests are dispatched per origin, gated by remembered permissions and
the holder's approvals, and signed by the blockchain plugins.`,
	SilenceUsage: true,
}

// Execute 入口，出错时以非零状态退出
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String(command.ConfigFlag, "", "Path to a config file (yaml, json or toml); BRIDGE_* environment variables take precedence")

	rootCmd.AddCommand(
		newServer(),
		probe.New(),
		db.New(),
		identity.New(),
	)
}
