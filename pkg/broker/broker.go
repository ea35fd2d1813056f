// Package broker exposes the durable publish/subscribe contract the
// ingestion and delivery pipelines are built on. Messages survive broker
// restarts while unacknowledged; a handler acknowledges a message by
// returning nil after the retry policy has disposed of it (applied,
// republished with an incremented retry count, or dead-lettered).
package broker

import (
	"context"
	"encoding/json"
)

// Domain queues. Each has a paired dead-letter queue that no worker
// consumes; terminally failed messages land there for manual inspection
// and replay.
const (
	QueueCustomerIngestion = "customer_ingestion"
	QueueOrderIngestion    = "order_ingestion"
	QueueDelivery          = "delivery_queue"
)

// DeadLetter returns the dead-letter queue paired with a domain queue.
func DeadLetter(queue string) string {
	return queue + "_dlq"
}

// Queues lists every domain queue.
func Queues() []string {
	return []string{QueueCustomerIngestion, QueueOrderIngestion, QueueDelivery}
}

// Headers carries per-message retry metadata. On a dead-lettered message
// Error and FailedAt describe the terminal failure.
type Headers struct {
	RetryCount int    `json:"retry-count,omitempty"`
	Error      string `json:"error,omitempty"`
	FailedAt   string `json:"failed-at,omitempty"`
}

// Message is a delivered queue message.
type Message struct {
	Queue   string
	Payload []byte
	Headers Headers
}

// Handler processes one message. A nil return acknowledges the message;
// an error makes it eligible for redelivery per broker policy.
type Handler func(ctx context.Context, msg *Message) error

// Publisher publishes a persistent message to a named durable queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, payload []byte, headers Headers) error
}

// Broker is the full publish/consume contract.
type Broker interface {
	Publisher
	Subscribe(queue string, h Handler)
}

// envelope is the wire form of a message: original payload bytes plus
// retry headers.
type envelope struct {
	Payload json.RawMessage `json:"payload"`
	Headers Headers         `json:"headers"`
}
