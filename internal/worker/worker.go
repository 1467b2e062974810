package worker

import (
	"context"
	"fmt"

	"checkout-service/internal/broker"
	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// ReconciliationStore records paid checkouts that have no commerce order
type ReconciliationStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
	CreateReconciliationRecord(ctx context.Context, rec *models.ReconciliationRecord) error
}

// ReconciliationWorker turns RECONCILIATION_REQUIRED events into durable
// records an operator can work through
type ReconciliationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        ReconciliationStore
	logger       *zap.Logger
}

// NewReconciliationWorker creates a new reconciliation worker
func NewReconciliationWorker(consumer *broker.Consumer, store ReconciliationStore) *ReconciliationWorker {
	w := &ReconciliationWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		store:        store,
		logger:       util.GetLogger(),
	}
	w.eventHandler.OnReconciliationRequired(w.HandleReconciliationRequired)
	return w
}

// Start starts the worker
func (w *ReconciliationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting reconciliation worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ReconciliationWorker) Stop() error {
	w.logger.Info("Stopping reconciliation worker")
	return w.consumer.Close()
}

// HandleReconciliationRequired writes one record per event. Redelivered
// events are skipped.
func (w *ReconciliationWorker) HandleReconciliationRequired(ctx context.Context, event *models.ReconciliationRequiredEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event %s: %w", event.EventID, err)
	}
	if processed {
		w.logger.Debug("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	rec := &models.ReconciliationRecord{
		EventID:    event.EventID,
		IntentID:   event.IntentID,
		PaymentID:  event.PaymentID,
		Reason:     event.Reason,
		StatusCode: event.StatusCode,
		Detail:     event.PlatformBody,
		Request:    event.Request,
	}
	if err := w.store.CreateReconciliationRecord(ctx, rec); err != nil {
		return fmt.Errorf("failed to record reconciliation for payment %s: %w", event.PaymentID, err)
	}

	if err := w.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		return fmt.Errorf("failed to mark event %s processed: %w", event.EventID, err)
	}

	util.ReconciliationRecordsTotal.Inc()
	w.logger.Warn("Reconciliation record created",
		zap.String("intent_id", event.IntentID),
		zap.String("payment_id", event.PaymentID),
		zap.String("reason", event.Reason))
	return nil
}
