package customer

import (
	"context"
	"encoding/json"

	"campaignhub/pkg/broker"
	"campaignhub/pkg/config"
	"campaignhub/pkg/errutil"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Consumer applies validated customer records to the store. The upsert is
// keyed on email, so redelivered messages converge on the same row.
type Consumer struct {
	repo Repository
	node *snowflake.Node
}

func NewConsumer(repo Repository, node *snowflake.Node) *Consumer {
	return &Consumer{repo: repo, node: node}
}

func (c *Consumer) Handle(ctx context.Context, msg *broker.Message) error {
	var req IngestRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return errutil.ValidationFailed("malformed customer payload", errutil.WithErr(err))
	}
	if req.Email == "" {
		return errutil.ValidationFailed("customer payload missing email")
	}

	record := Customer{
		CustomerID: c.node.Generate().String(),
		Name:       req.Name,
		Email:      req.Email,
	}
	if err := c.repo.Upsert(ctx, &record); err != nil {
		return err
	}

	zap.L().Info("[Customer] record applied", zap.String("email", req.Email))
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
		Queue:       broker.QueueCustomerIngestion,
		MaxAttempts: p.Config.Broker.MaxRetries,
	}
	p.Broker.Subscribe(broker.QueueCustomerIngestion, policy.Wrap(p.Broker, p.Consumer.Handle))
}
