package main

import (
	"fmt"
	"os"

	"github.com/himakhaitan/memkv/cli"
	"github.com/himakhaitan/memkv/pkg/config"
	"go.uber.org/fx"
)

func main() {
	// Create a new CLI instance
	var cliInstance *cli.CLI

	app := fx.New(
		fx.NopLogger, // Disable fx logs
		config.Module(),
		cli.Module,
		fx.Populate(&cliInstance),
	)

	// Initialize the application
	if err := app.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Run the CLI with command line arguments
	if err := cliInstance.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
