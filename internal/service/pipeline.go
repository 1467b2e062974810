package service

import (
	"context"
	"errors"
	"time"

	"checkout-service/internal/commerce"
	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const guardTimeout = 2 * time.Second

// IntentGateway is the payment gateway as seen by the services
type IntentGateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, receipt string, notes map[string]string) (*models.PaymentIntent, error)
	FetchStatus(ctx context.Context, paymentID string) (models.PaymentState, error)
}

// OrderPlatform creates orders on the commerce platform
type OrderPlatform interface {
	CreateOrder(ctx context.Context, req *models.CommerceOrderRequest) (*models.CommerceOrder, error)
}

// EventPublisher announces checkout outcomes
type EventPublisher interface {
	PublishOrderMaterialized(ctx context.Context, event *models.OrderMaterializedEvent) error
	PublishReconciliationRequired(ctx context.Context, event *models.ReconciliationRequiredEvent) error
}

// PipelineDeps holds the collaborators of a VerificationPipeline.
// Guard, Recorder and Events are optional and may be left nil.
type PipelineDeps struct {
	Gateway  IntentGateway
	Platform OrderPlatform
	Mapper   *CartMapper
	Guard    SubmissionGuard
	Recorder OrderRecorder
	Events   EventPublisher
}

// Result is the Completed state of a pipeline run
type Result struct {
	State       Stage
	IntentID    string
	PaymentID   string
	Order       *models.CommerceOrder
	Degraded    bool
	Replayed    bool
	Persistence PersistenceStatus
}

// VerificationPipeline turns a confirmed payment into a commerce order.
// Each Run is single-shot and holds no state between invocations.
type VerificationPipeline struct {
	secret      string
	gatewayName string
	deps        PipelineDeps
	logger      *zap.Logger
}

// NewVerificationPipeline creates a pipeline verifying signatures with secret
func NewVerificationPipeline(secret, gatewayName string, deps PipelineDeps) *VerificationPipeline {
	return &VerificationPipeline{
		secret:      secret,
		gatewayName: gatewayName,
		deps:        deps,
		logger:      util.GetLogger(),
	}
}

// Run drives one confirmation through the pipeline. On failure the returned
// error is a *FailedError naming the stage that failed.
func (p *VerificationPipeline) Run(ctx context.Context, conf models.PaymentConfirmation, cart *models.CheckoutCart) (*Result, error) {
	ctx, span := util.StartSpan(ctx, "VerificationPipeline.Run",
		attribute.String("intent_id", conf.IntentID),
		attribute.String("payment_id", conf.PaymentID))
	defer span.End()

	res := &Result{State: StageCreated, IntentID: conf.IntentID, PaymentID: conf.PaymentID}

	if conf.IntentID == "" || conf.PaymentID == "" || conf.Signature == "" || cart == nil {
		return nil, p.fail(span, &FailedError{Stage: StageCreated, Reason: ReasonMissingFields, Err: ErrMissingFields})
	}

	if !VerifySignature(conf.IntentID, conf.PaymentID, conf.Signature, p.secret) {
		p.logger.Warn("Payment signature mismatch",
			zap.String("intent_id", conf.IntentID),
			zap.String("payment_id", conf.PaymentID))
		return nil, p.fail(span, &FailedError{Stage: StageSignatureChecked, Reason: ReasonSignatureMismatch, Err: ErrSignatureMismatch})
	}

	payment, err := p.deps.Gateway.FetchStatus(ctx, conf.PaymentID)
	switch {
	case err != nil:
		res.Degraded = true
		util.VerificationsDegradedTotal.Inc()
		p.logger.Warn("Could not confirm payment status, continuing on signature alone",
			zap.String("payment_id", conf.PaymentID),
			zap.Error(err))
	case payment.Status != models.IntentStatusAuthorized && payment.Status != models.IntentStatusCaptured:
		p.logger.Warn("Payment not successful",
			zap.String("payment_id", conf.PaymentID),
			zap.String("status", string(payment.Status)))
		return nil, p.fail(span, &FailedError{Stage: StageSignatureChecked, Reason: ReasonPaymentNotSuccessful, Err: ErrPaymentNotSuccessful})
	}
	res.State = StageSignatureChecked

	if payment.AmountMinor > 0 && payment.AmountMinor != cart.TotalPrice {
		p.logger.Warn("Cart total differs from captured amount, recording captured amount",
			zap.String("payment_id", conf.PaymentID),
			zap.Int64("cart_total", cart.TotalPrice),
			zap.Int64("captured", payment.AmountMinor))
	}

	meta := PaymentMeta{
		Gateway:        p.gatewayName,
		IntentID:       conf.IntentID,
		PaymentID:      conf.PaymentID,
		VerifiedAmount: payment.AmountMinor,
	}
	req, err := p.deps.Mapper.MapToOrderRequest(cart, meta, models.FinancialStatusPaid)
	if err != nil {
		reason := ReasonEmptyCart
		if errors.Is(err, ErrInvalidAddress) {
			reason = ReasonInvalidAddress
		}
		return nil, p.fail(span, &FailedError{Stage: StageMapped, Reason: reason, Err: err})
	}
	res.State = StageMapped

	// A caller that went away must not make the guard look unreachable and
	// let a replay through to the platform.
	guardCtx, cancelGuard := context.WithTimeout(context.WithoutCancel(ctx), guardTimeout)
	defer cancelGuard()

	if order := p.lookupReplay(guardCtx, conf.PaymentID); order != nil {
		util.ReplayedSubmissionsTotal.Inc()
		p.logger.Info("Answering replayed verification with existing order",
			zap.String("payment_id", conf.PaymentID),
			zap.Int64("order_id", order.ID))
		res.State = StageCompleted
		res.Order = order
		res.Replayed = true
		res.Persistence = PersistenceSkipped
		return res, nil
	}

	claimed, err := p.claim(guardCtx, conf.PaymentID)
	if err != nil {
		return nil, p.fail(span, &FailedError{Stage: StageOrderSubmitted, Reason: ReasonDuplicateSubmission, Err: err})
	}

	res.State = StageOrderSubmitted
	order, err := p.deps.Platform.CreateOrder(ctx, req)

	// The caller may have gone away while the platform answered; nothing
	// after submission may be cut short by that.
	bg := context.WithoutCancel(ctx)

	if err != nil {
		return nil, p.fail(span, p.submissionFailure(bg, conf, req, claimed, err))
	}

	if claimed {
		if err := p.deps.Guard.Record(bg, conf.PaymentID, order); err != nil {
			p.logger.Warn("Failed to record submitted order", zap.String("payment_id", conf.PaymentID), zap.Error(err))
		}
	}

	res.State = StageCompleted
	res.Order = order
	res.Persistence = persistOrder(bg, p.deps.Recorder, orderRecord{
		order:         order,
		cart:          cart,
		country:       req.ShippingAddress.Country,
		paymentMethod: models.PaymentMethodOnline,
		paymentStatus: "Paid",
		intentID:      conf.IntentID,
		paymentID:     conf.PaymentID,
	}, p.logger)

	p.publishMaterialized(bg, conf, order)

	util.VerificationsCompletedTotal.Inc()
	span.SetAttributes(attribute.Int64("order_id", order.ID))
	p.logger.Info("Checkout verified and order created",
		zap.String("intent_id", conf.IntentID),
		zap.String("payment_id", conf.PaymentID),
		zap.Int64("order_id", order.ID),
		zap.Int64("order_number", order.OrderNumber),
		zap.Bool("degraded", res.Degraded),
		zap.String("persistence", string(res.Persistence)))

	return res, nil
}

func (p *VerificationPipeline) lookupReplay(ctx context.Context, paymentID string) *models.CommerceOrder {
	if p.deps.Guard == nil {
		return nil
	}
	order, err := p.deps.Guard.Lookup(ctx, paymentID)
	if err != nil {
		p.logger.Warn("Submission guard lookup failed", zap.String("payment_id", paymentID), zap.Error(err))
		return nil
	}
	return order
}

// claim returns ErrDuplicateSubmission when another submission holds the
// claim. A guard that cannot be reached does not block the submission.
func (p *VerificationPipeline) claim(ctx context.Context, paymentID string) (bool, error) {
	if p.deps.Guard == nil {
		return false, nil
	}
	ok, err := p.deps.Guard.Claim(ctx, paymentID)
	if err != nil {
		p.logger.Warn("Submission guard claim failed", zap.String("payment_id", paymentID), zap.Error(err))
		return false, nil
	}
	if !ok {
		return false, ErrDuplicateSubmission
	}
	return true, nil
}

// submissionFailure builds the Failed{order_submitted} outcome. The payment
// has gone through, so the result carries everything needed to reconcile.
func (p *VerificationPipeline) submissionFailure(ctx context.Context, conf models.PaymentConfirmation, req *models.CommerceOrderRequest,
	claimed bool, err error) *FailedError {
	payload, encErr := commerce.EncodeOrderRequest(req)
	if encErr != nil {
		p.logger.Error("Failed to encode reconciliation snapshot", zap.Error(encErr))
	}

	recon := &Reconciliation{
		IntentID:  conf.IntentID,
		PaymentID: conf.PaymentID,
		Detail:    err.Error(),
		Request:   payload,
	}
	failed := &FailedError{Stage: StageOrderSubmitted, Reason: ReasonPlatformUnavailable, Err: err, Reconciliation: recon}

	// Rejected and not-configured submissions leave no order behind, so the
	// payment may be submitted again.
	noOrder := false
	var rejected *commerce.RejectedError
	switch {
	case errors.As(err, &rejected):
		failed.Reason = ReasonPlatformRejected
		recon.StatusCode = rejected.StatusCode
		recon.Detail = rejected.Body
		noOrder = true
	case errors.Is(err, commerce.ErrMissingAccessToken):
		failed.Reason = ReasonPlatformNotConfigured
		noOrder = true
	}
	if noOrder && claimed {
		if relErr := p.deps.Guard.Release(ctx, conf.PaymentID); relErr != nil {
			p.logger.Warn("Failed to release submission claim", zap.String("payment_id", conf.PaymentID), zap.Error(relErr))
		}
	}

	p.logger.Error("Payment succeeded but order creation failed, reconciliation required",
		zap.String("intent_id", conf.IntentID),
		zap.String("payment_id", conf.PaymentID),
		zap.String("reason", string(failed.Reason)),
		zap.Int("status_code", recon.StatusCode),
		zap.String("detail", recon.Detail),
		zap.ByteString("request", payload))

	if p.deps.Events != nil {
		event := &models.ReconciliationRequiredEvent{
			BaseEvent:    newBaseEvent(models.EventTypeReconciliationRequired),
			IntentID:     conf.IntentID,
			PaymentID:    conf.PaymentID,
			Stage:        string(failed.Stage),
			Reason:       string(failed.Reason),
			StatusCode:   recon.StatusCode,
			PlatformBody: recon.Detail,
			Request:      payload,
		}
		if err := p.deps.Events.PublishReconciliationRequired(ctx, event); err != nil {
			p.logger.Error("Failed to publish reconciliation event", zap.String("payment_id", conf.PaymentID), zap.Error(err))
		}
	}

	return failed
}

func (p *VerificationPipeline) publishMaterialized(ctx context.Context, conf models.PaymentConfirmation, order *models.CommerceOrder) {
	if p.deps.Events == nil {
		return
	}
	event := &models.OrderMaterializedEvent{
		BaseEvent:       newBaseEvent(models.EventTypeOrderMaterialized),
		IntentID:        conf.IntentID,
		PaymentID:       conf.PaymentID,
		Gateway:         p.gatewayName,
		CommerceOrderID: order.ID,
		OrderNumber:     order.OrderNumber,
		FinancialStatus: order.FinancialStatus,
	}
	if err := p.deps.Events.PublishOrderMaterialized(ctx, event); err != nil {
		p.logger.Warn("Failed to publish order materialized event", zap.Int64("order_id", order.ID), zap.Error(err))
	}
}

func (p *VerificationPipeline) fail(span trace.Span, failed *FailedError) error {
	util.VerificationsFailedTotal.WithLabelValues(string(failed.Stage), string(failed.Reason)).Inc()
	span.RecordError(failed)
	span.SetStatus(codes.Error, string(failed.Reason))
	if failed.ClientError() {
		p.logger.Info("Verification rejected",
			zap.String("stage", string(failed.Stage)),
			zap.String("reason", string(failed.Reason)))
	}
	return failed
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}
