package main

import (
	"campaignhub/internal/migrate"
	"campaignhub/pkg/broker"
	"campaignhub/pkg/config"
	"campaignhub/pkg/db"
	"campaignhub/pkg/id"
	"campaignhub/pkg/logger"
	"campaignhub/services/customer"
	"campaignhub/services/delivery"
	"campaignhub/services/order"

	"go.uber.org/fx"
)

// The worker process drains the domain queues: customer and order
// ingestion plus campaign delivery. Every consumer runs behind the
// shared retry policy, so a failed message is either requeued or
// dead-lettered, never lost.
func main() {
	fx.New(
		fx.NopLogger,

		config.Module,
		logger.Module,
		db.Module,
		broker.Module,
		id.Module,
		migrate.Module,

		customer.Module,
		customer.Worker,
		order.Module,
		order.Worker,
		delivery.Module,
		delivery.Worker,

		broker.Server,
	).Run()
}
