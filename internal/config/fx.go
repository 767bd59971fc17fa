package config

import "go.uber.org/fx"

// Module provides Config from the supplied Overrides.
var Module = fx.Module("config",
	fx.Provide(Load),
)
