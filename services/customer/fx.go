package customer

import "go.uber.org/fx"

var Module = fx.Module("customer.module",
	fx.Provide(NewRepository, NewProducer, NewConsumer),
)

// Worker subscribes the ingestion consumer; only the consumer process
// includes it.
var Worker = fx.Module("customer.worker",
	fx.Invoke(registerConsumer),
)
