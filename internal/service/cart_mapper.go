package service

import (
	"strconv"
	"strings"
	"unicode"

	"checkout-service/internal/models"
)

// Note attribute names forming the payment audit trail on every order
const (
	NotePaymentGateway = "Payment Gateway"
	NoteIntentID       = "Intent ID"
	NotePaymentID      = "Payment ID"
	NotePaymentMethod  = "Payment Method"
)

// PaymentMeta ties a commerce order back to the payment event
type PaymentMeta struct {
	Gateway   string
	IntentID  string
	PaymentID string
	// VerifiedAmount is the amount the gateway reports as paid, in minor
	// units. When set it is recorded on the sale transaction instead of the
	// caller-supplied cart total.
	VerifiedAmount int64
}

// CartMapper turns a checkout cart into a platform order request
type CartMapper struct {
	homeCountry string
	storeTag    string
}

// NewCartMapper creates a mapper. homeCountry fills missing shipping
// countries; storeTag is added to every order's tags.
func NewCartMapper(homeCountry, storeTag string) *CartMapper {
	return &CartMapper{
		homeCountry: strings.TrimSpace(homeCountry),
		storeTag:    strings.TrimSpace(storeTag),
	}
}

// MapToOrderRequest builds the order request. Line items whose variant
// reference is not a positive integer, or whose quantity is below one, are
// dropped; ErrEmptyCart is returned if none remain.
func (m *CartMapper) MapToOrderRequest(cart *models.CheckoutCart, meta PaymentMeta, status models.FinancialStatus) (*models.CommerceOrderRequest, error) {
	if cart == nil {
		return nil, ErrEmptyCart
	}

	lineItems := make([]models.OrderLineItem, 0, len(cart.Items))
	for _, item := range validItems(cart.Items) {
		variantID, _ := parseVariant(item.VariantRef)
		lineItems = append(lineItems, models.OrderLineItem{
			VariantID: variantID,
			Quantity:  item.Quantity,
		})
	}
	if len(lineItems) == 0 {
		return nil, ErrEmptyCart
	}

	country := strings.TrimSpace(cart.Shipping.Country)
	if country == "" {
		country = m.homeCountry
	}
	if country == "" {
		return nil, ErrInvalidAddress
	}

	firstName, lastName := splitName(cart.Customer.Name)
	email := strings.TrimSpace(cart.Customer.Email)

	address := models.OrderAddress{
		FirstName: firstName,
		LastName:  lastName,
		Address1:  strings.TrimSpace(cart.Shipping.Address),
		City:      strings.TrimSpace(cart.Shipping.City),
		Province:  strings.TrimSpace(cart.Shipping.State),
		Country:   country,
		Zip:       strings.TrimSpace(cart.Shipping.Zip),
		Phone:     strings.TrimSpace(cart.Customer.Phone),
	}

	req := &models.CommerceOrderRequest{
		Email:     email,
		LineItems: lineItems,
		Customer: models.OrderCustomer{
			FirstName: firstName,
			LastName:  lastName,
			Email:     email,
		},
		ShippingAddress: address,
		BillingAddress:  address,
		FinancialStatus: status,
		NoteAttributes:  noteAttributes(meta),
		Tags:            m.tags(meta.Gateway),
	}

	amount := cart.TotalPrice
	if meta.VerifiedAmount > 0 {
		amount = meta.VerifiedAmount
	}
	if status == models.FinancialStatusPaid && amount > 0 {
		req.Transactions = []models.OrderTransaction{{
			Kind:          "sale",
			Status:        "success",
			AmountMinor:   amount,
			Gateway:       meta.Gateway,
			Authorization: meta.PaymentID,
		}}
	}

	return req, nil
}

func (m *CartMapper) tags(gateway string) []string {
	var tags []string
	if m.storeTag != "" {
		tags = append(tags, m.storeTag)
	}
	if gateway != "" {
		tags = append(tags, gateway)
	}
	return tags
}

// noteAttributes always records the gateway; ids are recorded when known.
func noteAttributes(meta PaymentMeta) []models.NoteAttribute {
	notes := []models.NoteAttribute{{Name: NotePaymentGateway, Value: meta.Gateway}}
	if meta.IntentID != "" {
		notes = append(notes, models.NoteAttribute{Name: NoteIntentID, Value: meta.IntentID})
	}
	if meta.PaymentID != "" {
		notes = append(notes, models.NoteAttribute{Name: NotePaymentID, Value: meta.PaymentID})
	}
	return notes
}

func validItems(items []models.CartLineItem) []models.CartLineItem {
	valid := make([]models.CartLineItem, 0, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			continue
		}
		if _, ok := parseVariant(item.VariantRef); !ok {
			continue
		}
		valid = append(valid, item)
	}
	return valid
}

func parseVariant(ref models.VariantRef) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(string(ref)), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// splitName splits at the first run of whitespace
func splitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	idx := strings.IndexFunc(name, unicode.IsSpace)
	if idx < 0 {
		return name, ""
	}
	return name[:idx], strings.TrimSpace(name[idx:])
}
