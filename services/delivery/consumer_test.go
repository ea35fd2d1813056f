package delivery

import (
	"context"
	"encoding/json"
	"testing"

	"campaignhub/pkg/broker"
	"campaignhub/pkg/errutil"
	"campaignhub/services/campaign"
	"campaignhub/services/testutil"

	"github.com/stretchr/testify/require"
)

type stubVendor struct {
	sent []sendRequest
	err  error
}

func (v *stubVendor) Send(ctx context.Context, logID, message string) error {
	if v.err != nil {
		return v.err
	}
	v.sent = append(v.sent, sendRequest{LogID: logID, Message: message})
	return nil
}

func enqueueJob(t *testing.T, mem *broker.Memory, logID string) {
	t.Helper()
	payload, err := json.Marshal(campaign.DeliveryJob{LogID: logID})
	require.NoError(t, err)
	require.NoError(t, mem.Publish(context.Background(), broker.QueueDelivery, payload, broker.Headers{}))
}

func subscribe(mem *broker.Memory, consumer *Consumer, maxAttempts int) {
	policy := broker.RetryPolicy{Queue: broker.QueueDelivery, MaxAttempts: maxAttempts}
	mem.Subscribe(broker.QueueDelivery, policy.Wrap(mem, consumer.Handle))
}

func TestHandleSendsPersonalizedMessage(t *testing.T) {
	db := testutil.NewTestDB(t, &campaign.CommunicationLog{})
	require.NoError(t, db.Create(&campaign.CommunicationLog{
		LogID:      "l1",
		CampaignID: "c1",
		CustomerID: "u1",
		Message:    "Hi alice, here's 10% off!",
		Status:     campaign.LogStatusPending,
	}).Error)

	vendor := &stubVendor{}
	mem := broker.NewMemory()
	subscribe(mem, NewConsumer(db, vendor), 3)

	enqueueJob(t, mem, "l1")
	require.NoError(t, mem.Drain(context.Background(), broker.QueueDelivery))

	require.Len(t, vendor.sent, 1)
	require.Equal(t, "l1", vendor.sent[0].LogID)
	require.Equal(t, "Hi alice, here's 10% off!", vendor.sent[0].Message)
	require.Empty(t, mem.Messages(broker.DeadLetter(broker.QueueDelivery)))
}

func TestHandleDeadLettersUnknownLogWithoutRetry(t *testing.T) {
	db := testutil.NewTestDB(t, &campaign.CommunicationLog{})
	vendor := &stubVendor{}
	mem := broker.NewMemory()
	subscribe(mem, NewConsumer(db, vendor), 3)

	enqueueJob(t, mem, "ghost")
	require.NoError(t, mem.Drain(context.Background(), broker.QueueDelivery))

	require.Empty(t, vendor.sent)
	dead := mem.Messages(broker.DeadLetter(broker.QueueDelivery))
	require.Len(t, dead, 1)
	require.Zero(t, dead[0].Headers.RetryCount, "a permanent fault must not be retried")
	require.Contains(t, dead[0].Headers.Error, "no communication log")
}

func TestHandleRetriesVendorOutageToCap(t *testing.T) {
	db := testutil.NewTestDB(t, &campaign.CommunicationLog{})
	require.NoError(t, db.Create(&campaign.CommunicationLog{
		LogID:      "l1",
		CampaignID: "c1",
		CustomerID: "u1",
		Message:    "m",
		Status:     campaign.LogStatusPending,
	}).Error)

	vendor := &stubVendor{err: errutil.Unavailable("vendor down")}
	mem := broker.NewMemory()
	subscribe(mem, NewConsumer(db, vendor), 3)

	enqueueJob(t, mem, "l1")
	require.NoError(t, mem.Drain(context.Background(), broker.QueueDelivery))

	dead := mem.Messages(broker.DeadLetter(broker.QueueDelivery))
	require.Len(t, dead, 1)
	require.Equal(t, 3, dead[0].Headers.RetryCount)
	require.NotEmpty(t, dead[0].Headers.FailedAt)
}

func TestHandleDeadLettersMalformedJob(t *testing.T) {
	db := testutil.NewTestDB(t, &campaign.CommunicationLog{})
	vendor := &stubVendor{}
	mem := broker.NewMemory()
	subscribe(mem, NewConsumer(db, vendor), 3)

	require.NoError(t, mem.Publish(context.Background(), broker.QueueDelivery, []byte("{"), broker.Headers{}))
	require.NoError(t, mem.Drain(context.Background(), broker.QueueDelivery))

	require.Empty(t, vendor.sent)
	require.Len(t, mem.Messages(broker.DeadLetter(broker.QueueDelivery)), 1)
}
