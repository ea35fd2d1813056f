package main

import (
	"campaignhub/internal/httpapi"
	"campaignhub/internal/migrate"
	"campaignhub/pkg/broker"
	"campaignhub/pkg/config"
	"campaignhub/pkg/db"
	"campaignhub/pkg/health"
	"campaignhub/pkg/id"
	"campaignhub/pkg/logger"
	"campaignhub/pkg/redis"
	"campaignhub/pkg/server"
	"campaignhub/services/audience"
	"campaignhub/services/campaign"
	"campaignhub/services/customer"
	"campaignhub/services/order"
	"campaignhub/services/vendor"

	"go.uber.org/fx"
)

// The API process owns the synchronous edge: it validates and enqueues
// ingestion requests, creates campaigns, accepts vendor receipts and
// hosts the vendor simulator. Consuming happens in cmd/worker.
func main() {
	fx.New(
		fx.NopLogger,

		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		broker.Module,
		health.Module,
		id.Module,
		migrate.Module,

		customer.Module,
		order.Module,
		audience.Module,
		campaign.Module,
		vendor.Module,

		httpapi.Module,
		server.Module,
	).Run()
}
