package customer

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"campaignhub/pkg/broker"
	"campaignhub/pkg/errutil"

	"go.uber.org/zap"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IngestRequest is the inbound customer ingestion payload.
type IngestRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Producer validates inbound customer records and publishes them to the
// ingestion queue. It never touches the store; the consumer applies the
// record asynchronously.
type Producer struct {
	broker broker.Publisher
}

func NewProducer(b broker.Publisher) *Producer {
	return &Producer{broker: b}
}

func (p *Producer) Enqueue(ctx context.Context, req IngestRequest) error {
	if req.Name == "" || req.Email == "" {
		return errutil.ValidationFailed("Name and email are required")
	}
	if !emailPattern.MatchString(req.Email) {
		return errutil.ValidationFailed("Invalid email format")
	}
	if len(strings.TrimSpace(req.Name)) < 2 {
		return errutil.ValidationFailed("Name must be at least 2 characters long")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return errutil.Internal("encode customer payload", errutil.WithErr(err))
	}

	if err := p.broker.Publish(ctx, broker.QueueCustomerIngestion, payload, broker.Headers{}); err != nil {
		return err
	}

	zap.L().Info("[Customer] ingestion message published", zap.String("email", req.Email))
	return nil
}
