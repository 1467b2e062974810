package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// IntentStatus is the gateway-side state of a payment intent
type IntentStatus string

// Payment intent statuses
const (
	IntentStatusCreated    IntentStatus = "created"
	IntentStatusAuthorized IntentStatus = "authorized"
	IntentStatusCaptured   IntentStatus = "captured"
	IntentStatusFailed     IntentStatus = "failed"
)

// PaymentState is what the gateway reports for a payment
type PaymentState struct {
	Status      IntentStatus
	AmountMinor int64
}

// FinancialStatus is the payment state recorded on a commerce order
type FinancialStatus string

// Commerce order financial statuses
const (
	FinancialStatusPending FinancialStatus = "pending"
	FinancialStatusPaid    FinancialStatus = "paid"
)

// VariantRef is an opaque platform variant identifier. Storefront carts send
// it either as a JSON string or a JSON number.
type VariantRef string

// UnmarshalJSON accepts strings, numbers and null
func (v *VariantRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = VariantRef(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("variant reference must be a string or number: %w", err)
	}
	*v = VariantRef(n.String())
	return nil
}

// CartLineItem is one line of the storefront cart
type CartLineItem struct {
	VariantRef VariantRef `json:"variant_id"`
	Quantity   int        `json:"quantity"`
	Title      string     `json:"title,omitempty"`
	PriceMinor int64      `json:"price,omitempty"`
}

// Customer holds the buyer's contact details
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// ShippingAddress is the delivery address entered at checkout
type ShippingAddress struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// CheckoutCart is the canonical checkout payload posted by the storefront
type CheckoutCart struct {
	Items      []CartLineItem  `json:"items"`
	TotalPrice int64           `json:"total_price,omitempty"`
	Customer   Customer        `json:"customer"`
	Shipping   ShippingAddress `json:"shipping"`
}

// PaymentIntent is the gateway record of an amount awaiting payment.
// Amount is always in minor currency units.
type PaymentIntent struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Status   IntentStatus      `json:"status"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// PaymentConfirmation arrives from the client after checkout completes.
// Nothing in it is trusted until the signature is verified.
type PaymentConfirmation struct {
	IntentID  string `json:"intent_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

// NoteAttribute is a name/value pair attached to a commerce order
type NoteAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// OrderLineItem is a platform order line
type OrderLineItem struct {
	VariantID int64 `json:"variant_id"`
	Quantity  int   `json:"quantity"`
}

// OrderCustomer is the customer block of a platform order
type OrderCustomer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// OrderAddress is a platform shipping or billing address
type OrderAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address1"`
	City      string `json:"city"`
	Province  string `json:"province"`
	Country   string `json:"country"`
	Zip       string `json:"zip"`
	Phone     string `json:"phone"`
}

// OrderTransaction records the gateway sale on the platform order.
// AmountMinor is converted to major units only when the request is encoded.
type OrderTransaction struct {
	Kind          string `json:"kind"`
	Status        string `json:"status"`
	AmountMinor   int64  `json:"-"`
	Gateway       string `json:"gateway"`
	Authorization string `json:"authorization"`
}

// CommerceOrderRequest is the canonical order-creation request
type CommerceOrderRequest struct {
	Email           string             `json:"email"`
	LineItems       []OrderLineItem    `json:"line_items"`
	Customer        OrderCustomer      `json:"customer"`
	ShippingAddress OrderAddress       `json:"shipping_address"`
	BillingAddress  OrderAddress       `json:"billing_address"`
	FinancialStatus FinancialStatus    `json:"financial_status"`
	Transactions    []OrderTransaction `json:"transactions,omitempty"`
	NoteAttributes  []NoteAttribute    `json:"note_attributes"`
	Tags            []string           `json:"tags"`
	Note            string             `json:"note,omitempty"`
}

// NoteAttribute returns the value of the named note attribute
func (r *CommerceOrderRequest) NoteAttribute(name string) (string, bool) {
	for _, na := range r.NoteAttributes {
		if na.Name == name {
			return na.Value, true
		}
	}
	return "", false
}

// CommerceOrder is the order as created by the commerce platform
type CommerceOrder struct {
	ID              int64           `json:"id"`
	OrderNumber     int64           `json:"order_number"`
	FinancialStatus FinancialStatus `json:"financial_status"`
	LineItems       []OrderLineItem `json:"line_items"`
	NoteAttributes  []NoteAttribute `json:"note_attributes"`
	Tags            []string        `json:"tags"`
}

// StoredOrder is the persisted copy of a materialized order
type StoredOrder struct {
	OrderID         string    `db:"order_id" json:"order_id"`
	CommerceOrderID int64     `db:"commerce_order_id" json:"commerce_order_id"`
	OrderNumber     int64     `db:"order_number" json:"order_number"`
	CustomerName    string    `db:"customer_name" json:"customer_name"`
	Email           string    `db:"email" json:"email"`
	Phone           string    `db:"phone" json:"phone"`
	Address         string    `db:"address" json:"address"`
	City            string    `db:"city" json:"city"`
	State           string    `db:"state" json:"state"`
	PostalCode      string    `db:"postal_code" json:"postal_code"`
	Country         string    `db:"country" json:"country"`
	PaymentMethod   string    `db:"payment_method" json:"payment_method"`
	PaymentStatus   string    `db:"payment_status" json:"payment_status"`
	IntentID        string    `db:"intent_id" json:"intent_id"`
	PaymentID       string    `db:"payment_id" json:"payment_id"`
	TotalAmount     int64     `db:"total_amount" json:"total_amount"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// StoredOrderItem is a persisted order line keyed by the parent order id
type StoredOrderItem struct {
	ID         int64  `db:"id" json:"id"`
	OrderID    string `db:"order_id" json:"order_id"`
	VariantRef string `db:"variant_ref" json:"variant_ref"`
	Title      string `db:"product_title" json:"product_title"`
	Quantity   int    `db:"quantity" json:"quantity"`
	Price      int64  `db:"price" json:"price"`
}

// ReconciliationRecord is written when a paid checkout failed to become an order
type ReconciliationRecord struct {
	ID         int64     `db:"id" json:"id"`
	EventID    string    `db:"event_id" json:"event_id"`
	IntentID   string    `db:"intent_id" json:"intent_id"`
	PaymentID  string    `db:"payment_id" json:"payment_id"`
	Reason     string    `db:"reason" json:"reason"`
	StatusCode int       `db:"status_code" json:"status_code"`
	Detail     string    `db:"detail" json:"detail"`
	Request    []byte    `db:"request" json:"request"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Payment methods recorded on persisted orders
const (
	PaymentMethodOnline = "Online"
	PaymentMethodCOD    = "COD"
)

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
