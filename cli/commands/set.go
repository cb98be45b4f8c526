package commands

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/himakhaitan/memkv/cli/output"
	"github.com/himakhaitan/memkv/client"
	"github.com/himakhaitan/memkv/pkg/config"
	"github.com/spf13/cobra"
)

// NewSetCommand creates a new set command
func NewSetCommand(cfg *config.Config) *cobra.Command {
	var flags uint32

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a key-value pair",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			key := args[0]
			value := args[1]

			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			c, err := client.Dial(ctx, cfg.Addr)
			if err != nil {
				output.Error(fmt.Sprintf("Failed to connect to server at %s\n %v", cfg.Addr, err))
				return
			}
			defer c.Close()

			var raw [4]byte
			binary.BigEndian.PutUint32(raw[:], flags)
			if err := c.Set([]byte(key), raw, []byte(value)); err != nil {
				output.Error(fmt.Sprintf("Server error: %v", err))
				return
			}
			output.Success(fmt.Sprintf("Set %s = %s", key, value))
		},
	}
	cmd.Flags().Uint32Var(&flags, "flags", 0, "opaque 32-bit flags stored with the value")

	return cmd
}
