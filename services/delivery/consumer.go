package delivery

import (
	"context"
	"encoding/json"
	"errors"

	"campaignhub/pkg/broker"
	"campaignhub/pkg/config"
	"campaignhub/pkg/errutil"
	"campaignhub/services/campaign"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Consumer drains the delivery queue: it resolves each job's
// communication log and hands the personalized message to the vendor.
type Consumer struct {
	db     *gorm.DB
	vendor Vendor
}

func NewConsumer(db *gorm.DB, vendor Vendor) *Consumer {
	return &Consumer{db: db, vendor: vendor}
}

func (c *Consumer) Handle(ctx context.Context, msg *broker.Message) error {
	var job campaign.DeliveryJob
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		return errutil.ValidationFailed("malformed delivery job", errutil.WithErr(err))
	}
	if job.LogID == "" {
		return errutil.ValidationFailed("delivery job missing logId")
	}

	var log campaign.CommunicationLog
	if err := c.db.WithContext(ctx).Where("log_id = ?", job.LogID).First(&log).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errutil.NotFound("no communication log for delivery job " + job.LogID)
		}
		return err
	}

	if err := c.vendor.Send(ctx, log.LogID, log.Message); err != nil {
		return err
	}

	zap.L().Info("[Delivery] message handed to vendor",
		zap.String("log_id", log.LogID),
		zap.String("campaign_id", log.CampaignID),
	)
	return nil
}

type registerParams struct {
	fx.In

	Broker   broker.Broker
	Consumer *Consumer
	Config   *config.Config
}

func registerConsumer(p registerParams) {
	policy := broker.RetryPolicy{
		Queue:       broker.QueueDelivery,
		MaxAttempts: p.Config.Broker.MaxRetries,
	}
	p.Broker.Subscribe(broker.QueueDelivery, policy.Wrap(p.Broker, p.Consumer.Handle))
}
