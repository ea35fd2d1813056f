package order

import "go.uber.org/fx"

var Module = fx.Module("order.module",
	fx.Provide(NewRepository, NewProducer, NewConsumer),
)

var Worker = fx.Module("order.worker",
	fx.Invoke(registerConsumer),
)
