package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"checkout-service/config"
	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

var (
	ErrInvalidAmount  = errors.New("amount must be a positive number of minor units")
	ErrMissingReceipt = errors.New("receipt is required")
	ErrMissingID      = errors.New("payment id is required")
)

// UnavailableError means the gateway could not be reached or did not accept
// the call. Callers may retry at the HTTP boundary with a fresh receipt.
type UnavailableError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *UnavailableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("payment gateway unavailable: %s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("payment gateway unavailable: %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Client talks to the payment gateway REST API. It never retries and never
// deduplicates receipts: receipt uniqueness is the caller's contract.
type Client struct {
	baseURL    string
	keyID      string
	keySecret  string
	currency   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a gateway client whose calls are bounded by timeout
func NewClient(cfg config.GatewayConfig, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		keyID:      cfg.KeyID,
		keySecret:  cfg.KeySecret,
		currency:   cfg.Currency,
		httpClient: &http.Client{Timeout: timeout},
		logger:     util.GetLogger(),
	}
}

// KeyID returns the public key id the storefront needs to open checkout
func (c *Client) KeyID() string {
	return c.keyID
}

type createOrderRequest struct {
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Receipt        string            `json:"receipt"`
	Notes          map[string]string `json:"notes,omitempty"`
	PaymentCapture int               `json:"payment_capture"`
}

type orderResponse struct {
	ID       string          `json:"id"`
	Amount   int64           `json:"amount"`
	Currency string          `json:"currency"`
	Receipt  string          `json:"receipt"`
	Status   string          `json:"status"`
	Notes    json.RawMessage `json:"notes"`
}

type paymentResponse struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Amount  int64  `json:"amount"`
}

// CreateIntent creates a gateway order for amountMinor. Invalid input is
// rejected before any network call.
func (c *Client) CreateIntent(ctx context.Context, amountMinor int64, receipt string, notes map[string]string) (*models.PaymentIntent, error) {
	if amountMinor <= 0 {
		return nil, ErrInvalidAmount
	}
	if strings.TrimSpace(receipt) == "" {
		return nil, ErrMissingReceipt
	}

	ctx, span := util.StartSpan(ctx, "GatewayClient.CreateIntent")
	defer span.End()

	req := createOrderRequest{
		Amount:         amountMinor,
		Currency:       c.currency,
		Receipt:        receipt,
		Notes:          notes,
		PaymentCapture: 1,
	}

	var resp orderResponse
	if err := c.do(ctx, "create_intent", http.MethodPost, "/orders", req, &resp); err != nil {
		return nil, err
	}

	intent := &models.PaymentIntent{
		ID:       resp.ID,
		Amount:   resp.Amount,
		Currency: resp.Currency,
		Receipt:  resp.Receipt,
		Status:   orderStatus(resp.Status),
		Notes:    decodeNotes(resp.Notes),
	}

	c.logger.Info("Payment intent created",
		zap.String("intent_id", intent.ID),
		zap.String("receipt", intent.Receipt),
		zap.Int64("amount", intent.Amount))

	return intent, nil
}

// FetchStatus fetches the gateway status and captured amount of a payment
func (c *Client) FetchStatus(ctx context.Context, paymentID string) (models.PaymentState, error) {
	if strings.TrimSpace(paymentID) == "" {
		return models.PaymentState{}, ErrMissingID
	}

	ctx, span := util.StartSpan(ctx, "GatewayClient.FetchStatus")
	defer span.End()

	var resp paymentResponse
	path := "/payments/" + url.PathEscape(paymentID)
	if err := c.do(ctx, "fetch_status", http.MethodGet, path, nil, &resp); err != nil {
		return models.PaymentState{}, err
	}

	return models.PaymentState{Status: paymentStatus(resp.Status), AmountMinor: resp.Amount}, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	start := time.Now()
	defer func() {
		util.GatewayRequestLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal gateway request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UnavailableError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &UnavailableError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("Gateway call failed",
			zap.String("operation", op),
			zap.Int("status", resp.StatusCode))
		return &UnavailableError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(string(raw))}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &UnavailableError{Op: op, Err: fmt.Errorf("invalid gateway response: %w", err)}
	}
	return nil
}

// orderStatus maps gateway order states. A paid order has captured its payment.
func orderStatus(s string) models.IntentStatus {
	switch strings.ToLower(s) {
	case "paid":
		return models.IntentStatusCaptured
	case "created", "attempted":
		return models.IntentStatusCreated
	default:
		return models.IntentStatusFailed
	}
}

func paymentStatus(s string) models.IntentStatus {
	switch strings.ToLower(s) {
	case "created":
		return models.IntentStatusCreated
	case "authorized":
		return models.IntentStatusAuthorized
	case "captured", "completed":
		return models.IntentStatusCaptured
	default:
		return models.IntentStatusFailed
	}
}

// decodeNotes tolerates the gateway encoding empty notes as [].
func decodeNotes(raw json.RawMessage) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	var notes map[string]string
	if err := json.Unmarshal(raw, &notes); err != nil {
		return nil
	}
	return notes
}
