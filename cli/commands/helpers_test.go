package commands

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/himakhaitan/memkv/engine"
	"github.com/himakhaitan/memkv/pkg/config"
	"github.com/himakhaitan/memkv/server"
	"github.com/himakhaitan/memkv/store"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// executeCommand runs the cobra command with given arguments.
func executeCommand(t *testing.T, cmd *cobra.Command, args []string) {
	cmd.SetArgs(args)
	// We only check for cobra errors (arg count), not runtime errors (logged via output.Error)
	err := cmd.Execute()
	assert.NoError(t, err)
}

func captureOutput(f func()) string {
	var buf bytes.Buffer
	stdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	f()

	w.Close()
	os.Stdout = stdout
	buf.ReadFrom(r)
	return buf.String()
}

// startCacheServer runs a real cache listener and returns a config pointing at it
func startCacheServer(t *testing.T) (*config.Config, *engine.DB) {
	t.Helper()
	cfg := &config.Config{Addr: "127.0.0.1:0", ReadBufferSize: 4096, KeepAlive: time.Minute}
	db := engine.NewDB(store.New())
	l := server.NewListener(cfg, db, server.NewMetrics(), zaptest.NewLogger(t))
	require.NoError(t, l.Listen(context.Background()))
	go func() { _ = l.Serve() }()
	t.Cleanup(func() { _ = l.Close() })

	return &config.Config{Addr: l.Addr().String()}, db
}

// unreachableConfig points at a port nothing listens on
func unreachableConfig() *config.Config {
	return &config.Config{Addr: "127.0.0.1:1", AdminAddr: "127.0.0.1:1"}
}
