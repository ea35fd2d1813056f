package migrate

import (
	"os"

	"campaignhub/services/campaign"
	"campaignhub/services/customer"
	"campaignhub/services/order"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module migrates the schema at startup. Both processes include it, so
// whichever starts first creates the tables.
var Module = fx.Module("migrate", fx.Invoke(run))

func run(db *gorm.DB) {
	err := db.AutoMigrate(
		&customer.Customer{},
		&order.Order{},
		&campaign.Campaign{},
		&campaign.CommunicationLog{},
	)
	if err != nil {
		zap.L().Error("[Migrate] schema migration failed", zap.Error(err))
		os.Exit(1)
	}

	zap.L().Info("[Migrate] schema up to date")
}
