package order

import (
	"context"
	"encoding/json"

	"campaignhub/pkg/broker"
	"campaignhub/pkg/errutil"

	"go.uber.org/zap"
)

// IngestRequest is the inbound order ingestion payload.
type IngestRequest struct {
	CustomerID string  `json:"customerId"`
	Amount     float64 `json:"amount"`
}

// Producer validates inbound orders and publishes them to the ingestion
// queue without touching the store.
type Producer struct {
	broker broker.Publisher
}

func NewProducer(b broker.Publisher) *Producer {
	return &Producer{broker: b}
}

func (p *Producer) Enqueue(ctx context.Context, req IngestRequest) error {
	if req.CustomerID == "" {
		return errutil.ValidationFailed("CustomerId and amount are required")
	}
	if req.Amount <= 0 {
		return errutil.ValidationFailed("Amount must be a positive number")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return errutil.Internal("encode order payload", errutil.WithErr(err))
	}

	if err := p.broker.Publish(ctx, broker.QueueOrderIngestion, payload, broker.Headers{}); err != nil {
		return err
	}

	zap.L().Info("[Order] ingestion message published", zap.String("customer_id", req.CustomerID))
	return nil
}
