package server

import (
	"github.com/himakhaitan/memkv/engine"
	"go.uber.org/fx"
)

// Module provides the cache listener and admin server wired with fx
func Module() fx.Option {
	return fx.Options(
		fx.Provide(NewMetrics),
		fx.Provide(NewListener),
		fx.Provide(NewMux),
		fx.Provide(NewAdminServer),
		fx.Invoke(RegisterHooks),
		engine.Module(),
	)
}
