package service

import (
	"encoding/json"
	"testing"

	"checkout-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMeta() PaymentMeta {
	return PaymentMeta{Gateway: "Razorpay", IntentID: "order_Abc", PaymentID: "pay_Xyz"}
}

func TestMapToOrderRequestFiltersInvalidItems(t *testing.T) {
	var cart models.CheckoutCart
	err := json.Unmarshal([]byte(`{
		"items": [
			{"variant_id": 4401, "quantity": 2},
			{"variant_id": "abc", "quantity": 1},
			{"variant_id": "4402", "quantity": 0},
			{"variant_id": "4403"},
			{"variant_id": null, "quantity": 3},
			{"variant_id": "-7", "quantity": 1}
		],
		"customer": {"name": "Jane Doe", "email": "a@b.com"},
		"shipping": {"address": "1 Main", "city": "Pune", "zip": "411001"}
	}`), &cart)
	require.NoError(t, err)

	m := NewCartMapper("India", "SSCheckout")
	req, err := m.MapToOrderRequest(&cart, testMeta(), models.FinancialStatusPaid)
	require.NoError(t, err)

	require.Len(t, req.LineItems, 1)
	assert.Equal(t, models.OrderLineItem{VariantID: 4401, Quantity: 2}, req.LineItems[0])
	assert.Equal(t, "India", req.ShippingAddress.Country)
	assert.Equal(t, "Jane", req.ShippingAddress.FirstName)
	assert.Equal(t, "Doe", req.ShippingAddress.LastName)
	assert.Equal(t, req.ShippingAddress, req.BillingAddress)
	assert.Equal(t, []string{"SSCheckout", "Razorpay"}, req.Tags)

	intentID, ok := req.NoteAttribute(NoteIntentID)
	require.True(t, ok)
	assert.Equal(t, "order_Abc", intentID)
	paymentID, ok := req.NoteAttribute(NotePaymentID)
	require.True(t, ok)
	assert.Equal(t, "pay_Xyz", paymentID)
}

func TestMapToOrderRequestEmptyCart(t *testing.T) {
	m := NewCartMapper("India", "SSCheckout")

	cases := map[string]*models.CheckoutCart{
		"nil cart":      nil,
		"no items":      {},
		"all invalid":   {Items: []models.CartLineItem{{VariantRef: "x", Quantity: 1}, {VariantRef: "5", Quantity: 0}}},
		"zero variant":  {Items: []models.CartLineItem{{VariantRef: "0", Quantity: 1}}},
		"blank variant": {Items: []models.CartLineItem{{VariantRef: "", Quantity: 1}}},
	}

	for name, cart := range cases {
		t.Run(name, func(t *testing.T) {
			req, err := m.MapToOrderRequest(cart, testMeta(), models.FinancialStatusPaid)
			assert.Nil(t, req)
			assert.ErrorIs(t, err, ErrEmptyCart)
			assert.ErrorIs(t, err, ErrMapping)
		})
	}
}

func TestMapToOrderRequestLineCountBounds(t *testing.T) {
	m := NewCartMapper("India", "")
	carts := [][]models.CartLineItem{
		{{VariantRef: "1", Quantity: 1}},
		{{VariantRef: "1", Quantity: 1}, {VariantRef: "2", Quantity: 5}, {VariantRef: "bad", Quantity: 1}},
		{{VariantRef: "9", Quantity: -1}, {VariantRef: "10", Quantity: 2}},
	}

	for _, items := range carts {
		req, err := m.MapToOrderRequest(&models.CheckoutCart{Items: items}, testMeta(), models.FinancialStatusPaid)
		require.NoError(t, err)
		assert.Greater(t, len(req.LineItems), 0)
		assert.LessOrEqual(t, len(req.LineItems), len(items))
		for _, li := range req.LineItems {
			assert.Greater(t, li.VariantID, int64(0))
			assert.GreaterOrEqual(t, li.Quantity, 1)
		}
	}
}

func TestMapToOrderRequestCountryResolution(t *testing.T) {
	cart := &models.CheckoutCart{
		Items:    []models.CartLineItem{{VariantRef: "1", Quantity: 1}},
		Shipping: models.ShippingAddress{Country: "  Nepal "},
	}

	req, err := NewCartMapper("India", "").MapToOrderRequest(cart, testMeta(), models.FinancialStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, "Nepal", req.ShippingAddress.Country)

	cart.Shipping.Country = ""
	req, err = NewCartMapper("", "").MapToOrderRequest(cart, testMeta(), models.FinancialStatusPaid)
	assert.Nil(t, req)
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestMapToOrderRequestTransactions(t *testing.T) {
	m := NewCartMapper("India", "SSCheckout")
	cart := &models.CheckoutCart{
		Items:      []models.CartLineItem{{VariantRef: "1", Quantity: 1}},
		TotalPrice: 49900,
	}

	req, err := m.MapToOrderRequest(cart, testMeta(), models.FinancialStatusPaid)
	require.NoError(t, err)
	require.Len(t, req.Transactions, 1)
	assert.Equal(t, "sale", req.Transactions[0].Kind)
	assert.Equal(t, int64(49900), req.Transactions[0].AmountMinor)
	assert.Equal(t, "pay_Xyz", req.Transactions[0].Authorization)

	req, err = m.MapToOrderRequest(cart, PaymentMeta{Gateway: "COD"}, models.FinancialStatusPending)
	require.NoError(t, err)
	assert.Empty(t, req.Transactions)
	assert.Equal(t, models.FinancialStatusPending, req.FinancialStatus)
	_, ok := req.NoteAttribute(NotePaymentID)
	assert.False(t, ok)

	cart.TotalPrice = 0
	req, err = m.MapToOrderRequest(cart, testMeta(), models.FinancialStatusPaid)
	require.NoError(t, err)
	assert.Empty(t, req.Transactions)
}

func TestMapToOrderRequestPrefersVerifiedAmount(t *testing.T) {
	m := NewCartMapper("India", "SSCheckout")
	cart := &models.CheckoutCart{
		Items:      []models.CartLineItem{{VariantRef: "1", Quantity: 1}},
		TotalPrice: 100,
	}
	meta := testMeta()
	meta.VerifiedAmount = 49900

	req, err := m.MapToOrderRequest(cart, meta, models.FinancialStatusPaid)
	require.NoError(t, err)
	require.Len(t, req.Transactions, 1)
	assert.Equal(t, int64(49900), req.Transactions[0].AmountMinor)

	cart.TotalPrice = 0
	req, err = m.MapToOrderRequest(cart, meta, models.FinancialStatusPaid)
	require.NoError(t, err)
	require.Len(t, req.Transactions, 1)
	assert.Equal(t, int64(49900), req.Transactions[0].AmountMinor)
}

func TestSplitName(t *testing.T) {
	cases := []struct{ in, first, last string }{
		{"Jane Doe", "Jane", "Doe"},
		{"  Jane   van der Berg ", "Jane", "van der Berg"},
		{"Cher", "Cher", ""},
		{"", "", ""},
		{"Jane\tDoe", "Jane", "Doe"},
	}
	for _, c := range cases {
		first, last := splitName(c.in)
		assert.Equal(t, c.first, first, c.in)
		assert.Equal(t, c.last, last, c.in)
	}
}
