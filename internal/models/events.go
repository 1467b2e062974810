package models

import (
	"encoding/json"
	"time"
)

// Event types
const (
	EventTypeOrderMaterialized      = "ORDER_MATERIALIZED"
	EventTypeReconciliationRequired = "RECONCILIATION_REQUIRED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderMaterializedEvent published when a verified payment became a commerce order
type OrderMaterializedEvent struct {
	BaseEvent
	IntentID        string          `json:"intent_id"`
	PaymentID       string          `json:"payment_id"`
	Gateway         string          `json:"gateway"`
	CommerceOrderID int64           `json:"commerce_order_id"`
	OrderNumber     int64           `json:"order_number"`
	FinancialStatus FinancialStatus `json:"financial_status"`
}

// ReconciliationRequiredEvent published when payment succeeded but the
// commerce order could not be created. Request is the mapped order snapshot.
type ReconciliationRequiredEvent struct {
	BaseEvent
	IntentID     string          `json:"intent_id"`
	PaymentID    string          `json:"payment_id"`
	Stage        string          `json:"stage"`
	Reason       string          `json:"reason"`
	StatusCode   int             `json:"status_code,omitempty"`
	PlatformBody string          `json:"platform_body,omitempty"`
	Request      json.RawMessage `json:"request,omitempty"`
}
