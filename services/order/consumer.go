package order

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"campaignhub/pkg/broker"
	"campaignhub/pkg/config"
	"campaignhub/pkg/errutil"
	"campaignhub/services/customer"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Consumer applies validated orders: it verifies the referenced customer
// exists, persists the immutable order and folds the amount into the
// customer aggregate. A missing customer is a permanent failure that
// dead-letters on first delivery.
type Consumer struct {
	orders    Repository
	customers customer.Repository
	node      *snowflake.Node
}

func NewConsumer(orders Repository, customers customer.Repository, node *snowflake.Node) *Consumer {
	return &Consumer{orders: orders, customers: customers, node: node}
}

func (c *Consumer) Handle(ctx context.Context, msg *broker.Message) error {
	var req IngestRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return errutil.ValidationFailed("malformed order payload", errutil.WithErr(err))
	}
	if req.CustomerID == "" || req.Amount <= 0 {
		return errutil.ValidationFailed("order payload missing customerId or positive amount")
	}

	if _, err := c.customers.GetByID(ctx, req.CustomerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errutil.NotFound("customer "+req.CustomerID+" not found", errutil.WithErr(err))
		}
		return err
	}

	record := Order{
		OrderID:    c.node.Generate().String(),
		CustomerID: req.CustomerID,
		Amount:     req.Amount,
		OrderDate:  time.Now().UTC(),
	}
	if err := c.orders.Apply(ctx, &record); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errutil.NotFound("customer " + req.CustomerID + " not found")
		}
		return err
	}

	zap.L().Info("[Order] record applied",
		zap.String("order_id", record.OrderID),
		zap.String("customer_id", record.CustomerID),
		zap.Float64("amount", record.Amount),
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
		Queue:       broker.QueueOrderIngestion,
		MaxAttempts: p.Config.Broker.MaxRetries,
	}
	p.Broker.Subscribe(broker.QueueOrderIngestion, policy.Wrap(p.Broker, p.Consumer.Handle))
}
