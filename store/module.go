package store

import "go.uber.org/fx"

// Module provides the shared *Store
var Module = fx.Provide(New)
