package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"checkout-service/config"
	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// ErrMissingAccessToken means no token is available yet. Nothing was sent.
var ErrMissingAccessToken = errors.New("commerce platform access token is not configured")

// RejectedError is a non-success answer from the platform. Body is the raw
// response kept for diagnostics.
type RejectedError struct {
	StatusCode int
	Body       string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("commerce platform rejected order: status %d", e.StatusCode)
}

// UnavailableError is a transport failure. Whether an order was created is
// unknown.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("commerce platform unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Client submits orders to the commerce platform Admin API. Submissions are
// at-most-once: nothing is retried.
type Client struct {
	storeURL   string
	shop       string
	apiVersion string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger

	mu          sync.RWMutex
	accessToken string
	tokens      TokenStore
}

// NewClient creates a platform client. accessToken overrides the configured
// token when non-empty.
func NewClient(cfg config.PlatformConfig, accessToken string, timeout time.Duration) *Client {
	if accessToken == "" {
		accessToken = cfg.AccessToken
	}
	return &Client{
		storeURL:    StoreURL(cfg.StoreDomain),
		shop:        cfg.StoreDomain,
		apiVersion:  cfg.APIVersion,
		accessToken: accessToken,
		timeout:     timeout,
		httpClient:  &http.Client{},
		logger:      util.GetLogger(),
	}
}

// UseTokenStore lets the client pick up a token saved after startup by the
// install callback. The first token found is kept.
func (c *Client) UseTokenStore(tokens TokenStore) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = tokens
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.RLock()
	token, tokens := c.accessToken, c.tokens
	c.mu.RUnlock()
	if token != "" {
		return token, nil
	}
	if tokens == nil {
		return "", ErrMissingAccessToken
	}

	stored, err := tokens.AccessToken(ctx, c.shop)
	if err != nil {
		c.logger.Warn("Failed to read stored access token", zap.String("shop", c.shop), zap.Error(err))
		return "", ErrMissingAccessToken
	}
	if stored == "" {
		return "", ErrMissingAccessToken
	}

	c.mu.Lock()
	c.accessToken = stored
	c.mu.Unlock()
	return stored, nil
}

// StoreURL turns a store domain into a base URL. Values that already carry a
// scheme are used as-is.
func StoreURL(domain string) string {
	domain = strings.TrimRight(strings.TrimSpace(domain), "/")
	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return domain
	}
	return "https://" + domain
}

type wireTransaction struct {
	Kind          string `json:"kind"`
	Status        string `json:"status"`
	Amount        string `json:"amount"`
	Gateway       string `json:"gateway"`
	Authorization string `json:"authorization"`
}

type wireOrderRequest struct {
	*models.CommerceOrderRequest
	Tags         string            `json:"tags"`
	Transactions []wireTransaction `json:"transactions,omitempty"`
}

type wireOrder struct {
	ID              int64                  `json:"id"`
	OrderNumber     int64                  `json:"order_number"`
	FinancialStatus models.FinancialStatus `json:"financial_status"`
	LineItems       []models.OrderLineItem `json:"line_items"`
	NoteAttributes  []models.NoteAttribute `json:"note_attributes"`
	Tags            string                 `json:"tags"`
}

// EncodeOrderRequest produces the platform wire payload. This is the only
// place minor-unit amounts become major-unit strings.
func EncodeOrderRequest(req *models.CommerceOrderRequest) ([]byte, error) {
	wire := wireOrderRequest{
		CommerceOrderRequest: req,
		Tags:                 strings.Join(req.Tags, ", "),
	}
	for _, tx := range req.Transactions {
		wire.Transactions = append(wire.Transactions, wireTransaction{
			Kind:          tx.Kind,
			Status:        tx.Status,
			Amount:        util.MinorToMajor(tx.AmountMinor),
			Gateway:       tx.Gateway,
			Authorization: tx.Authorization,
		})
	}
	return json.Marshal(map[string]interface{}{"order": wire})
}

// CreateOrder submits req and waits for the platform's definitive answer.
// Caller cancellation does not abort a submission once started; only the
// configured timeout bounds it.
func (c *Client) CreateOrder(ctx context.Context, req *models.CommerceOrderRequest) (*models.CommerceOrder, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	accessToken, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	ctx, span := util.StartSpan(ctx, "CommerceClient.CreateOrder")
	defer span.End()

	payload, err := EncodeOrderRequest(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode order request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/admin/api/%s/orders.json", c.storeURL, c.apiVersion)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build order request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Shopify-Access-Token", accessToken)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	util.PlatformRequestLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, &UnavailableError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &UnavailableError{Err: fmt.Errorf("failed to read platform response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("Commerce order creation rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw))
		return nil, &RejectedError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var envelope struct {
		Order *wireOrder `json:"order"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Order == nil || envelope.Order.ID == 0 {
		return nil, &UnavailableError{Err: fmt.Errorf("unreadable order response (status %d)", resp.StatusCode)}
	}

	order := &models.CommerceOrder{
		ID:              envelope.Order.ID,
		OrderNumber:     envelope.Order.OrderNumber,
		FinancialStatus: envelope.Order.FinancialStatus,
		LineItems:       envelope.Order.LineItems,
		NoteAttributes:  envelope.Order.NoteAttributes,
		Tags:            splitTags(envelope.Order.Tags),
	}

	c.logger.Info("Commerce order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("order_number", order.OrderNumber))

	return order, nil
}

func splitTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
