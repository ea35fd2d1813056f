package broker

import (
	"context"
	"testing"

	"campaignhub/pkg/errutil"

	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_TransientFaultRetriesUpToCap(t *testing.T) {
	mem := NewMemory()
	policy := RetryPolicy{Queue: QueueCustomerIngestion, MaxAttempts: 3}

	attempts := 0
	handler := policy.Wrap(mem, func(ctx context.Context, msg *Message) error {
		attempts++
		return errutil.Unavailable("store unreachable")
	})
	mem.Subscribe(QueueCustomerIngestion, handler)

	require.NoError(t, mem.Publish(context.Background(), QueueCustomerIngestion, []byte(`{"email":"a@b.c"}`), Headers{}))
	require.NoError(t, mem.Drain(context.Background(), QueueCustomerIngestion))

	// First delivery plus three retries.
	require.Equal(t, 4, attempts)

	dead := mem.Messages(DeadLetter(QueueCustomerIngestion))
	require.Len(t, dead, 1)
	require.Equal(t, 3, dead[0].Headers.RetryCount)
	require.Contains(t, dead[0].Headers.Error, "store unreachable")
	require.NotEmpty(t, dead[0].Headers.FailedAt)
	require.JSONEq(t, `{"email":"a@b.c"}`, string(dead[0].Payload))
}

func TestRetryPolicy_PermanentFaultDeadLettersImmediately(t *testing.T) {
	mem := NewMemory()
	policy := RetryPolicy{Queue: QueueOrderIngestion, MaxAttempts: 3}

	attempts := 0
	handler := policy.Wrap(mem, func(ctx context.Context, msg *Message) error {
		attempts++
		return errutil.NotFound("customer not found")
	})
	mem.Subscribe(QueueOrderIngestion, handler)

	require.NoError(t, mem.Publish(context.Background(), QueueOrderIngestion, []byte(`{}`), Headers{}))
	require.NoError(t, mem.Drain(context.Background(), QueueOrderIngestion))

	require.Equal(t, 1, attempts)

	dead := mem.Messages(DeadLetter(QueueOrderIngestion))
	require.Len(t, dead, 1)
	require.Equal(t, 0, dead[0].Headers.RetryCount)
	require.Contains(t, dead[0].Headers.Error, "customer not found")
}

func TestRetryPolicy_SuccessAcksWithoutRepublish(t *testing.T) {
	mem := NewMemory()
	policy := RetryPolicy{Queue: QueueDelivery, MaxAttempts: 3}

	handler := policy.Wrap(mem, func(ctx context.Context, msg *Message) error {
		return nil
	})
	mem.Subscribe(QueueDelivery, handler)

	require.NoError(t, mem.Publish(context.Background(), QueueDelivery, []byte(`{"logId":"1"}`), Headers{}))
	require.NoError(t, mem.Drain(context.Background(), QueueDelivery))

	require.Empty(t, mem.Messages(QueueDelivery))
	require.Empty(t, mem.Messages(DeadLetter(QueueDelivery)))
}

func TestRetryPolicy_CustomClassifier(t *testing.T) {
	mem := NewMemory()
	policy := RetryPolicy{
		Queue:       QueueDelivery,
		MaxAttempts: 3,
		IsRetryable: func(error) bool { return false },
	}

	attempts := 0
	handler := policy.Wrap(mem, func(ctx context.Context, msg *Message) error {
		attempts++
		return errutil.Unavailable("would normally retry")
	})
	mem.Subscribe(QueueDelivery, handler)

	require.NoError(t, mem.Publish(context.Background(), QueueDelivery, []byte(`{}`), Headers{}))
	require.NoError(t, mem.Drain(context.Background(), QueueDelivery))

	require.Equal(t, 1, attempts)
	require.Len(t, mem.Messages(DeadLetter(QueueDelivery)), 1)
}
