package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"checkout-service/internal/models"
	"checkout-service/internal/store"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// OrderRecorder persists a materialized order and its items
type OrderRecorder interface {
	SaveOrder(ctx context.Context, order *models.StoredOrder, items []models.StoredOrderItem) error
}

// PersistenceStatus is the outcome of storing a created order locally
type PersistenceStatus string

// Persistence outcomes
const (
	PersistenceOK                PersistenceStatus = "ok"
	PersistenceOrderInsertFailed PersistenceStatus = "order_insert_failed"
	PersistenceItemsInsertFailed PersistenceStatus = "items_insert_failed"
	PersistenceSkipped           PersistenceStatus = "skipped"
)

// orderRecord describes where a commerce order came from
type orderRecord struct {
	order         *models.CommerceOrder
	cart          *models.CheckoutCart
	country       string
	paymentMethod string
	paymentStatus string
	intentID      string
	paymentID     string
}

// persistOrder stores the order when a recorder is configured. The commerce
// order already exists, so failures are reported but never returned.
func persistOrder(ctx context.Context, recorder OrderRecorder, rec orderRecord, logger *zap.Logger) PersistenceStatus {
	if recorder == nil {
		return PersistenceSkipped
	}

	stored, items := buildStoredOrder(rec)
	err := recorder.SaveOrder(ctx, stored, items)
	switch {
	case err == nil:
		return PersistenceOK
	case errors.Is(err, store.ErrItemsInsertFailed):
		util.PersistenceFailuresTotal.WithLabelValues(string(PersistenceItemsInsertFailed)).Inc()
		logger.Error("Order saved without its items",
			zap.String("order_id", stored.OrderID),
			zap.Int("items", len(items)),
			zap.Error(err))
		return PersistenceItemsInsertFailed
	default:
		util.PersistenceFailuresTotal.WithLabelValues(string(PersistenceOrderInsertFailed)).Inc()
		logger.Error("Failed to save order",
			zap.String("order_id", stored.OrderID),
			zap.Error(err))
		return PersistenceOrderInsertFailed
	}
}

func buildStoredOrder(rec orderRecord) (*models.StoredOrder, []models.StoredOrderItem) {
	cart := rec.cart
	stored := &models.StoredOrder{
		OrderID:         strconv.FormatInt(rec.order.ID, 10),
		CommerceOrderID: rec.order.ID,
		OrderNumber:     rec.order.OrderNumber,
		CustomerName:    strings.TrimSpace(cart.Customer.Name),
		Email:           strings.TrimSpace(cart.Customer.Email),
		Phone:           strings.TrimSpace(cart.Customer.Phone),
		Address:         strings.TrimSpace(cart.Shipping.Address),
		City:            strings.TrimSpace(cart.Shipping.City),
		State:           strings.TrimSpace(cart.Shipping.State),
		PostalCode:      strings.TrimSpace(cart.Shipping.Zip),
		Country:         rec.country,
		PaymentMethod:   rec.paymentMethod,
		PaymentStatus:   rec.paymentStatus,
		IntentID:        rec.intentID,
		PaymentID:       rec.paymentID,
		TotalAmount:     cart.TotalPrice,
	}

	valid := validItems(cart.Items)
	items := make([]models.StoredOrderItem, 0, len(valid))
	for _, item := range valid {
		items = append(items, models.StoredOrderItem{
			VariantRef: string(item.VariantRef),
			Title:      item.Title,
			Quantity:   item.Quantity,
			Price:      item.PriceMinor,
		})
	}
	return stored, items
}
