package cli

import (
	"github.com/himakhaitan/memkv/cli/commands"
	"github.com/himakhaitan/memkv/pkg/config"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

// Module provides the *CLI
var Module = fx.Provide(NewCLI)

type CLI struct {
	root *cobra.Command
}

func NewCLI(cfg *config.Config) *CLI {
	cli := &CLI{}

	rootCmd := &cobra.Command{
		Use:   "memkv-cli",
		Short: "A binary-protocol key-value cache CLI",
		Long:  "memkv CLI talks to a memkv cache server over its binary GET/SET protocol",
	}

	// Create command registry and register all commands
	registry := commands.NewCommandRegistry(cfg)
	registry.RegisterCommands(rootCmd)

	cli.root = rootCmd

	return cli
}

func (c *CLI) Run() error {
	return c.root.Execute()
}
