package service

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Stage is a verification pipeline state
type Stage string

// Pipeline stages, in order
const (
	StageCreated          Stage = "created"
	StageSignatureChecked Stage = "signature_checked"
	StageMapped           Stage = "mapped"
	StageOrderSubmitted   Stage = "order_submitted"
	StageCompleted        Stage = "completed"
)

// Reason explains why a pipeline failed
type Reason string

// Failure reasons
const (
	ReasonMissingFields         Reason = "missing_fields"
	ReasonSignatureMismatch     Reason = "signature_mismatch"
	ReasonPaymentNotSuccessful  Reason = "payment_not_successful"
	ReasonEmptyCart             Reason = "empty_cart"
	ReasonInvalidAddress        Reason = "invalid_address"
	ReasonDuplicateSubmission   Reason = "duplicate_submission"
	ReasonPlatformRejected      Reason = "platform_rejected"
	ReasonPlatformUnavailable   Reason = "platform_unavailable"
	ReasonPlatformNotConfigured Reason = "platform_not_configured"
)

var (
	// ErrValidation is the class of bad or missing caller input
	ErrValidation = errors.New("validation failed")
	// ErrMapping is the class of cart shape problems
	ErrMapping = errors.New("cart mapping failed")

	ErrMissingFields        = fmt.Errorf("%w: intent_id, payment_id, signature and checkout are required", ErrValidation)
	ErrSignatureMismatch    = errors.New("payment verification failed")
	ErrPaymentNotSuccessful = errors.New("payment is not authorized or captured")
	ErrEmptyCart            = fmt.Errorf("%w: cart has no valid line items", ErrMapping)
	ErrInvalidAddress       = fmt.Errorf("%w: shipping country could not be resolved", ErrMapping)
	ErrDuplicateSubmission  = errors.New("an order for this payment is already being created")
)

// Reconciliation is what an operator needs to create an order by hand after
// payment succeeded but order creation did not. Request is the exact payload
// that was sent to the platform.
type Reconciliation struct {
	IntentID   string          `json:"intent_id"`
	PaymentID  string          `json:"payment_id"`
	StatusCode int             `json:"status_code,omitempty"`
	Detail     string          `json:"detail,omitempty"`
	Request    json.RawMessage `json:"request"`
}

// FailedError is the terminal Failed{stage, reason} state of a pipeline run
type FailedError struct {
	Stage          Stage
	Reason         Reason
	Err            error
	Reconciliation *Reconciliation
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("verification failed at %s (%s): %v", e.Stage, e.Reason, e.Err)
}

func (e *FailedError) Unwrap() error {
	return e.Err
}

// ClientError reports whether the failure was caused by the caller's input
func (e *FailedError) ClientError() bool {
	switch e.Reason {
	case ReasonMissingFields, ReasonSignatureMismatch, ReasonPaymentNotSuccessful,
		ReasonEmptyCart, ReasonInvalidAddress:
		return true
	}
	return false
}

// NeedsReconciliation is true when the payment went through but no order exists
func (e *FailedError) NeedsReconciliation() bool {
	return e.Reconciliation != nil
}
