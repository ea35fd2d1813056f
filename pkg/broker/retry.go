package broker

import (
	"context"
	"time"

	"campaignhub/pkg/errutil"

	"go.uber.org/zap"
)

// RetryPolicy turns a message handler into one that terminally
// acknowledges every message: applied, republished with an incremented
// retry count, or dead-lettered with diagnostic headers. All consumers
// share this one implementation.
type RetryPolicy struct {
	// Queue is the domain queue the wrapped handler consumes.
	Queue string
	// MaxAttempts caps redeliveries of a transient fault before the
	// message is dead-lettered.
	MaxAttempts int
	// IsRetryable overrides the default errutil.Retryable classifier.
	IsRetryable func(error) bool
}

// Wrap applies the policy around h, using pub to republish and
// dead-letter. The returned handler only propagates an error when the
// broker itself refused the republish; the original task is then
// archived by the broker for manual replay.
func (p RetryPolicy) Wrap(pub Publisher, h Handler) Handler {
	classify := p.IsRetryable
	if classify == nil {
		classify = errutil.Retryable
	}

	return func(ctx context.Context, msg *Message) error {
		err := h(ctx, msg)
		if err == nil {
			return nil
		}

		zapLog := zap.L().With(
			zap.String("queue", p.Queue),
			zap.Int("retry_count", msg.Headers.RetryCount),
			zap.Error(err),
		)

		if classify(err) && msg.Headers.RetryCount < p.MaxAttempts {
			zapLog.Warn("[Broker] requeueing message",
				zap.Int("attempt", msg.Headers.RetryCount+1),
				zap.Int("max_attempts", p.MaxAttempts),
			)
			if perr := pub.Publish(ctx, p.Queue, msg.Payload, Headers{
				RetryCount: msg.Headers.RetryCount + 1,
			}); perr != nil {
				return perr
			}
			return nil
		}

		zapLog.Error("[Broker] dead-lettering message")
		if perr := pub.Publish(ctx, DeadLetter(p.Queue), msg.Payload, Headers{
			RetryCount: msg.Headers.RetryCount,
			Error:      err.Error(),
			FailedAt:   time.Now().UTC().Format(time.RFC3339),
		}); perr != nil {
			return perr
		}
		return nil
	}
}
