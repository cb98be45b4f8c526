package commands

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/himakhaitan/memkv/cli/output"
	"github.com/himakhaitan/memkv/client"
	"github.com/himakhaitan/memkv/pkg/config"
	"github.com/spf13/cobra"
)

const requestTimeout = 10 * time.Second

// NewGetCommand creates a new get command
func NewGetCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a value by key",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			key := args[0]

			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			c, err := client.Dial(ctx, cfg.Addr)
			if err != nil {
				output.Error(fmt.Sprintf("Failed to connect to server at %s\n %v", cfg.Addr, err))
				return
			}
			defer c.Close()

			flags, value, err := c.Get([]byte(key))
			if errors.Is(err, client.ErrKeyNotFound) {
				output.Warn(fmt.Sprintf("Key '%s' not found", key))
				return
			}
			if err != nil {
				output.Error(fmt.Sprintf("Server error: %v", err))
				return
			}
			output.Success(fmt.Sprintf("Key: %s", key))
			output.Field("Value", string(value))
			if f := binary.BigEndian.Uint32(flags[:]); f != 0 {
				output.Dim(fmt.Sprintf("Flags: %d", f))
			}
		},
	}
}
