package logger

import (
	"github.com/himakhaitan/memkv/pkg/config"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func Module(service string) fx.Option {
	return fx.Options(
		fx.Provide(
			func(cfg *config.Config) (*zap.Logger, error) {
				return New(service, cfg.LogLevel)
			},
		),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
	)
}
