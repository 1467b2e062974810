package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"checkout-service/internal/gateway"
	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// IntentResult is a created intent plus what the storefront needs to open
// the gateway checkout
type IntentResult struct {
	Intent *models.PaymentIntent
	KeyID  string
}

// IntentService creates payment intents
type IntentService struct {
	gateway IntentGateway
	keyID   string
	logger  *zap.Logger
}

// NewIntentService creates an intent service. keyID is the public gateway key
// returned with every intent.
func NewIntentService(gateway IntentGateway, keyID string) *IntentService {
	return &IntentService{
		gateway: gateway,
		keyID:   keyID,
		logger:  util.GetLogger(),
	}
}

// CreatePaymentIntent creates an intent for amountMinor. A fresh receipt is
// generated when none is given, so every attempt carries a unique one.
func (s *IntentService) CreatePaymentIntent(ctx context.Context, amountMinor int64, receipt string, notes map[string]string) (*IntentResult, error) {
	ctx, span := util.StartSpan(ctx, "IntentService.CreatePaymentIntent",
		attribute.Int64("amount", amountMinor))
	defer span.End()

	if receipt == "" {
		receipt = NewReceipt()
	}

	intent, err := s.gateway.CreateIntent(ctx, amountMinor, receipt, notes)
	if err != nil {
		util.IntentsFailedTotal.WithLabelValues(intentFailureReason(err)).Inc()
		span.RecordError(err)
		s.logger.Error("Failed to create payment intent",
			zap.Int64("amount", amountMinor),
			zap.String("receipt", receipt),
			zap.Error(err))
		return nil, err
	}

	util.IntentsCreatedTotal.Inc()
	s.logger.Info("Payment intent created",
		zap.String("intent_id", intent.ID),
		zap.Int64("amount", intent.Amount),
		zap.String("receipt", intent.Receipt))

	return &IntentResult{Intent: intent, KeyID: s.keyID}, nil
}

// NewReceipt returns a receipt unique to one intent creation attempt
func NewReceipt() string {
	return fmt.Sprintf("rcpt_%d_%s", time.Now().Unix(), uuid.New().String()[:8])
}

func intentFailureReason(err error) string {
	var unavailable *gateway.UnavailableError
	switch {
	case errors.Is(err, gateway.ErrInvalidAmount):
		return "invalid_amount"
	case errors.As(err, &unavailable):
		return "gateway_unavailable"
	default:
		return "error"
	}
}
