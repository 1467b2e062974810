package api

import (
	"context"
	"net/http"
	"time"

	"checkout-service/internal/commerce"
	"checkout-service/internal/models"
	"checkout-service/internal/service"
	"checkout-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// IntentCreator creates payment intents
type IntentCreator interface {
	CreatePaymentIntent(ctx context.Context, amountMinor int64, receipt string, notes map[string]string) (*service.IntentResult, error)
}

// CheckoutVerifier runs the verification pipeline
type CheckoutVerifier interface {
	Run(ctx context.Context, conf models.PaymentConfirmation, cart *models.CheckoutCart) (*service.Result, error)
}

// CODCreator creates cash on delivery orders
type CODCreator interface {
	CreateCODOrder(ctx context.Context, cart *models.CheckoutCart, note string) (*service.CODResult, error)
}

// CodeExchanger builds the install redirect and trades the returned
// authorization code for an access token
type CodeExchanger interface {
	InstallURL(shop string) (string, error)
	ExchangeCode(ctx context.Context, shop, code string) (*commerce.AccessTokenResponse, error)
}

// ReadinessCheck is a named dependency check for /ready
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HandlerDeps holds the services behind the HTTP routes. OAuth and Tokens
// may be nil, which disables the auth callback and token storage.
type HandlerDeps struct {
	Intents        IntentCreator
	Verifier       CheckoutVerifier
	COD            CODCreator
	OAuth          CodeExchanger
	Tokens         commerce.TokenStore
	Readiness      []ReadinessCheck
	AllowedOrigins []string
}

// Handler contains HTTP handlers
type Handler struct {
	deps   HandlerDeps
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		deps:   deps,
		logger: util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(h.deps.AllowedOrigins))
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/auth", h.authInstall)
	router.GET(commerce.CallbackPath, h.authCallback)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/payments/intents", h.createPaymentIntent)
		v1.POST("/payments/verify", h.verifyPayment)
		v1.POST("/orders/cod", h.createCODOrder)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports 503 until every configured dependency answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failing := gin.H{}
	for _, rc := range h.deps.Readiness {
		if err := rc.Check(ctx); err != nil {
			failing[rc.Name] = err.Error()
		}
	}

	if len(failing) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not ready",
			"failing": failing,
			"time":    time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}
