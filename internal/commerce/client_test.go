package commerce

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"checkout-service/config"
	"checkout-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string, timeout time.Duration) *Client {
	return NewClient(config.PlatformConfig{
		StoreDomain: url,
		AccessToken: "shpat_test",
		APIVersion:  "2025-01",
	}, "", timeout)
}

func sampleRequest() *models.CommerceOrderRequest {
	return &models.CommerceOrderRequest{
		Email:           "a@b.com",
		LineItems:       []models.OrderLineItem{{VariantID: 4401, Quantity: 2}},
		FinancialStatus: models.FinancialStatusPaid,
		Transactions: []models.OrderTransaction{{
			Kind: "sale", Status: "success", AmountMinor: 49950, Gateway: "Razorpay", Authorization: "pay_1",
		}},
		NoteAttributes: []models.NoteAttribute{{Name: "Payment Gateway", Value: "Razorpay"}},
		Tags:           []string{"SSCheckout", "Razorpay"},
	}
}

func TestEncodeOrderRequest(t *testing.T) {
	payload, err := EncodeOrderRequest(sampleRequest())
	require.NoError(t, err)

	var decoded struct {
		Order map[string]json.RawMessage `json:"order"`
	}
	require.NoError(t, json.Unmarshal(payload, &decoded))

	assert.JSONEq(t, `"SSCheckout, Razorpay"`, string(decoded.Order["tags"]))
	assert.JSONEq(t, `[{"kind":"sale","status":"success","amount":"499.50","gateway":"Razorpay","authorization":"pay_1"}]`,
		string(decoded.Order["transactions"]))
	assert.JSONEq(t, `"paid"`, string(decoded.Order["financial_status"]))
	assert.JSONEq(t, `[{"variant_id":4401,"quantity":2}]`, string(decoded.Order["line_items"]))
}

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/admin/api/2025-01/orders.json", r.URL.Path)
		assert.Equal(t, "shpat_test", r.Header.Get("X-Shopify-Access-Token"))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"order":{"id":820982911946154508,"order_number":1001,"financial_status":"paid",
			"line_items":[{"variant_id":4401,"quantity":2}],
			"note_attributes":[{"name":"Payment Gateway","value":"Razorpay"}],
			"tags":"SSCheckout, Razorpay"}}`))
	}))
	defer srv.Close()

	order, err := newTestClient(srv.URL, time.Second).CreateOrder(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(820982911946154508), order.ID)
	assert.Equal(t, int64(1001), order.OrderNumber)
	assert.Equal(t, models.FinancialStatusPaid, order.FinancialStatus)
	assert.Equal(t, []string{"SSCheckout", "Razorpay"}, order.Tags)
}

func TestCreateOrderRejectedPreservesBody(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":{"line_items":["variant is invalid"]}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, time.Second).CreateOrder(context.Background(), sampleRequest())

	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, http.StatusUnprocessableEntity, rejected.StatusCode)
	assert.Contains(t, rejected.Body, "variant is invalid")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "rejections are never retried")
}

func TestCreateOrderUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url, time.Second).CreateOrder(context.Background(), sampleRequest())

	var unavailable *UnavailableError
	assert.True(t, errors.As(err, &unavailable))
}

func TestCreateOrderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 20*time.Millisecond).CreateOrder(context.Background(), sampleRequest())

	var unavailable *UnavailableError
	assert.True(t, errors.As(err, &unavailable))
}

func TestCreateOrderIgnoresCallerCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		time.Sleep(50 * time.Millisecond)
		_, _ = w.Write([]byte(`{"order":{"id":1,"order_number":1001}}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	order, err := newTestClient(srv.URL, time.Second).CreateOrder(ctx, sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(1), order.ID)
}

func TestCreateOrderWithoutToken(t *testing.T) {
	client := NewClient(config.PlatformConfig{StoreDomain: "demo.myshopify.com"}, "", time.Second)

	_, err := client.CreateOrder(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, ErrMissingAccessToken)

	var unavailable *UnavailableError
	assert.False(t, errors.As(err, &unavailable))
}

type storedTokens map[string]string

func (s storedTokens) SaveAccessToken(_ context.Context, shop, token string) error {
	s[shop] = token
	return nil
}

func (s storedTokens) AccessToken(_ context.Context, shop string) (string, error) {
	return s[shop], nil
}

func TestCreateOrderPicksUpStoredToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "shpat_installed", r.Header.Get("X-Shopify-Access-Token"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"order": {"id": 7, "order_number": 1007, "financial_status": "paid"}}`))
	}))
	defer srv.Close()

	tokens := storedTokens{}
	client := NewClient(config.PlatformConfig{StoreDomain: srv.URL, APIVersion: "2025-01"}, "", time.Second)
	client.UseTokenStore(tokens)

	_, err := client.CreateOrder(context.Background(), sampleRequest())
	require.ErrorIs(t, err, ErrMissingAccessToken)

	require.NoError(t, tokens.SaveAccessToken(context.Background(), srv.URL, "shpat_installed"))

	order, err := client.CreateOrder(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(7), order.ID)
}

func TestCreateOrderUnreadableSuccessIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, time.Second).CreateOrder(context.Background(), sampleRequest())

	var unavailable *UnavailableError
	assert.True(t, errors.As(err, &unavailable))
}

func TestStoreURL(t *testing.T) {
	assert.Equal(t, "https://demo.myshopify.com", StoreURL("demo.myshopify.com"))
	assert.Equal(t, "http://127.0.0.1:8080", StoreURL("http://127.0.0.1:8080/"))
}
