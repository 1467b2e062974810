package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"checkout-service/config"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

var (
	ErrInvalidShop     = errors.New("invalid shop domain")
	ErrMissingCode     = errors.New("authorization code is required")
	ErrOAuthNotEnabled = errors.New("oauth client credentials are not configured")
)

var shopDomainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-]*\.myshopify\.com$`)

// ValidShopDomain reports whether shop is a platform-hosted store domain
func ValidShopDomain(shop string) bool {
	return shopDomainPattern.MatchString(shop)
}

// TokenStore keeps the access token obtained by the one-time exchange.
// Implementations must never log the token.
type TokenStore interface {
	SaveAccessToken(ctx context.Context, shop, token string) error
	AccessToken(ctx context.Context, shop string) (string, error)
}

// AccessTokenResponse is the platform's answer to a code exchange
type AccessTokenResponse struct {
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
}

// CallbackPath is where the platform sends the merchant after authorizing
const CallbackPath = "/auth/callback"

// OAuthClient drives the one-time app install: the authorize redirect and
// the authorization-code exchange.
type OAuthClient struct {
	clientID     string
	clientSecret string
	scopes       string
	redirectURI  string
	httpClient   *http.Client
	logger       *zap.Logger
}

// NewOAuthClient creates an exchange client from the app credentials
func NewOAuthClient(cfg config.PlatformConfig, timeout time.Duration) *OAuthClient {
	return &OAuthClient{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		scopes:       cfg.Scopes,
		redirectURI:  strings.TrimRight(cfg.AppURL, "/") + CallbackPath,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       util.GetLogger(),
	}
}

// InstallURL is the platform authorize page the merchant is sent to
func (c *OAuthClient) InstallURL(shop string) (string, error) {
	if c.clientID == "" {
		return "", ErrOAuthNotEnabled
	}
	if !ValidShopDomain(shop) {
		return "", ErrInvalidShop
	}

	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("scope", c.scopes)
	q.Set("redirect_uri", c.redirectURI)
	return fmt.Sprintf("https://%s/admin/oauth/authorize?%s", shop, q.Encode()), nil
}

// ExchangeCode trades an authorization code for an access token.
// Shop domain validation is the caller's job.
func (c *OAuthClient) ExchangeCode(ctx context.Context, shop, code string) (*AccessTokenResponse, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return nil, ErrOAuthNotEnabled
	}
	if code == "" {
		return nil, ErrMissingCode
	}

	payload, err := json.Marshal(map[string]string{
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"code":          code,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, StoreURL(shop)+"/admin/oauth/access_token", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UnavailableError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, &UnavailableError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RejectedError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var token AccessTokenResponse
	if err := json.Unmarshal(raw, &token); err != nil || token.AccessToken == "" {
		return nil, &RejectedError{StatusCode: resp.StatusCode, Body: "response did not contain an access token"}
	}

	c.logger.Info("Access token obtained",
		zap.String("shop", shop),
		zap.String("scope", token.Scope),
		zap.String("token", util.MaskSecret(token.AccessToken)))

	return &token, nil
}
