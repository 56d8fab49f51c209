package identity

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/SafeMPC/wallet-bridge/internal/util/command"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("identity",
		newCreate(),
		newList(),
		newRemove(),
	)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
