package delivery

import "go.uber.org/fx"

var Module = fx.Module("delivery.module",
	fx.Provide(
		fx.Annotate(NewHTTPVendor, fx.As(new(Vendor))),
		NewConsumer,
	),
)

// Worker subscribes the delivery consumer; only the consumer process
// includes it.
var Worker = fx.Module("delivery.worker",
	fx.Invoke(registerConsumer),
)
