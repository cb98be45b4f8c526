package commands

import (
	"github.com/himakhaitan/memkv/pkg/config"
	"github.com/spf13/cobra"
)

// CommandRegistry holds all available commands
type CommandRegistry struct {
	cfg *config.Config
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry(cfg *config.Config) *CommandRegistry {
	return &CommandRegistry{cfg: cfg}
}

// GetAllCommands returns all available commands
func (r *CommandRegistry) GetAllCommands() []*cobra.Command {
	return []*cobra.Command{
		NewVersionCommand(),
		NewGetCommand(r.cfg),
		NewSetCommand(r.cfg),
		NewStatsCommand(r.cfg),
	}
}

// RegisterCommands adds all commands to the root command
func (r *CommandRegistry) RegisterCommands(rootCmd *cobra.Command) {
	commands := r.GetAllCommands()
	for _, cmd := range commands {
		rootCmd.AddCommand(cmd)
	}
}
