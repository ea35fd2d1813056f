package audience

import "go.uber.org/fx"

var Module = fx.Module("audience.module",
	fx.Provide(NewService),
)
