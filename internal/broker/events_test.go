package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"checkout-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(t *testing.T, event interface{}) kafka.Message {
	t.Helper()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: value}
}

func TestHandleMessageRoutesReconciliation(t *testing.T) {
	handler := NewEventHandler()

	var got *models.ReconciliationRequiredEvent
	handler.OnReconciliationRequired(func(_ context.Context, event *models.ReconciliationRequiredEvent) error {
		got = event
		return nil
	})
	handler.OnOrderMaterialized(func(context.Context, *models.OrderMaterializedEvent) error {
		t.Fatal("unexpected OrderMaterialized dispatch")
		return nil
	})

	msg := message(t, &models.ReconciliationRequiredEvent{
		BaseEvent:  models.BaseEvent{EventID: "evt-1", EventType: models.EventTypeReconciliationRequired, Timestamp: time.Now()},
		IntentID:   "order_Abc",
		PaymentID:  "pay_Xyz",
		Reason:     "platform_rejected",
		StatusCode: 422,
		Request:    json.RawMessage(`{"order":{"email":"a@b.com"}}`),
	})

	require.NoError(t, handler.HandleMessage(context.Background(), msg))
	require.NotNil(t, got)
	assert.Equal(t, "evt-1", got.EventID)
	assert.Equal(t, "pay_Xyz", got.PaymentID)
	assert.Equal(t, 422, got.StatusCode)
	assert.JSONEq(t, `{"order":{"email":"a@b.com"}}`, string(got.Request))
}

func TestHandleMessageRoutesOrderMaterialized(t *testing.T) {
	handler := NewEventHandler()

	var got *models.OrderMaterializedEvent
	handler.OnOrderMaterialized(func(_ context.Context, event *models.OrderMaterializedEvent) error {
		got = event
		return nil
	})

	msg := message(t, &models.OrderMaterializedEvent{
		BaseEvent:       models.BaseEvent{EventID: "evt-2", EventType: models.EventTypeOrderMaterialized},
		PaymentID:       "pay_Xyz",
		CommerceOrderID: 42,
	})

	require.NoError(t, handler.HandleMessage(context.Background(), msg))
	require.NotNil(t, got)
	assert.Equal(t, int64(42), got.CommerceOrderID)
}

func TestHandleMessageErrors(t *testing.T) {
	handler := NewEventHandler()
	handler.OnReconciliationRequired(func(context.Context, *models.ReconciliationRequiredEvent) error {
		return errors.New("store down")
	})

	err := handler.HandleMessage(context.Background(), kafka.Message{Value: []byte("not json")})
	assert.Error(t, err)

	msg := message(t, &models.BaseEvent{EventID: "evt-3", EventType: models.EventTypeReconciliationRequired})
	assert.EqualError(t, handler.HandleMessage(context.Background(), msg), "store down")

	unknown := message(t, &models.BaseEvent{EventID: "evt-4", EventType: "SOMETHING_ELSE"})
	assert.NoError(t, handler.HandleMessage(context.Background(), unknown))

	// Events without a registered handler are acknowledged.
	assert.NoError(t, NewEventHandler().HandleMessage(context.Background(), msg))
}

func TestPaymentKey(t *testing.T) {
	assert.Equal(t, "payment-pay_Xyz", paymentKey("pay_Xyz"))
}
