package config

import "go.uber.org/fx"

// Module provides *Config loaded from the environment with opts applied
func Module(opts ...Option) fx.Option {
	return fx.Provide(func() (*Config, error) {
		return Load(opts...)
	})
}
