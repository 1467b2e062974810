package store

import (
	"context"
	"errors"
	"fmt"

	"checkout-service/internal/models"
)

var (
	// ErrOrderInsertFailed means nothing was persisted
	ErrOrderInsertFailed = errors.New("order insert failed")
	// ErrItemsInsertFailed means the order row exists but its items do not
	ErrItemsInsertFailed = errors.New("order items insert failed after order insert")
)

// SaveOrder inserts the order row and then its items, both keyed by
// order.OrderID. The two failure modes are reported with distinct errors.
func (s *Store) SaveOrder(ctx context.Context, order *models.StoredOrder, items []models.StoredOrderItem) error {
	if err := s.CreateOrder(ctx, order); err != nil {
		return fmt.Errorf("%w: %w", ErrOrderInsertFailed, err)
	}

	for i := range items {
		items[i].OrderID = order.OrderID
		if err := s.CreateOrderItem(ctx, &items[i]); err != nil {
			return fmt.Errorf("%w: order %s: %w", ErrItemsInsertFailed, order.OrderID, err)
		}
	}

	return nil
}

// CreateOrder creates a new order
func (s *Store) CreateOrder(ctx context.Context, order *models.StoredOrder) error {
	query := `
		INSERT INTO orders (order_id, commerce_order_id, order_number, customer_name, email, phone,
			address, city, state, postal_code, country, payment_method, payment_status,
			intent_id, payment_id, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at`

	return s.db.GetContext(ctx, &order.CreatedAt, query,
		order.OrderID, order.CommerceOrderID, order.OrderNumber, order.CustomerName, order.Email, order.Phone,
		order.Address, order.City, order.State, order.PostalCode, order.Country, order.PaymentMethod,
		order.PaymentStatus, order.IntentID, order.PaymentID, order.TotalAmount)
}

// CreateOrderItem creates a new order item
func (s *Store) CreateOrderItem(ctx context.Context, item *models.StoredOrderItem) error {
	query := `
		INSERT INTO order_items (order_id, variant_ref, product_title, quantity, price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	return s.db.GetContext(ctx, &item.ID, query,
		item.OrderID, item.VariantRef, item.Title, item.Quantity, item.Price)
}

// CreateReconciliationRecord stores a paid checkout that has no commerce order.
// A record for the same event id is written at most once.
func (s *Store) CreateReconciliationRecord(ctx context.Context, rec *models.ReconciliationRecord) error {
	var request interface{}
	if len(rec.Request) > 0 {
		request = string(rec.Request)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reconciliation_records (event_id, intent_id, payment_id, reason, status_code, detail, request)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id) DO NOTHING`,
		rec.EventID, rec.IntentID, rec.PaymentID, rec.Reason, rec.StatusCode, rec.Detail, request)
	return err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
