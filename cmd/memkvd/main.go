package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/himakhaitan/memkv/pkg/config"
	"github.com/himakhaitan/memkv/pkg/logger"
	"github.com/himakhaitan/memkv/server"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

const startStopTimeout = 15 * time.Second

func main() {
	rootCmd := &cobra.Command{
		Use:   "memkvd [port]",
		Short: "Run the memkv binary-protocol cache server",
		Long: `memkvd serves GET and SET over the memcached binary protocol.

The listen address comes from MEMKV_ADDR (default :11211); a port argument
overrides its port. Set MEMKV_ADMIN_ADDR to expose /health, /v1/stats and /metrics.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []config.Option
			if len(args) == 1 {
				opts = append(opts, config.WithPort(args[0]))
			}
			return run(opts...)
		},
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "memkvd: %v\n", err)
		os.Exit(1)
	}
}

func run(opts ...config.Option) error {
	app := fx.New(
		config.Module(opts...),
		logger.Module("memkvd"),
		server.Module(),
	)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(context.Background(), startStopTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	<-app.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), startStopTimeout)
	defer cancel()
	return app.Stop(stopCtx)
}
