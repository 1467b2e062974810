package service

import (
	"context"
	"testing"

	"checkout-service/internal/commerce"
	"checkout-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCODOrder(t *testing.T) {
	platform := &fakePlatform{}
	recorder := &fakeRecorder{}
	svc := NewCODService(platform, NewCartMapper("India", "SSCheckout"), recorder)

	res, err := svc.CreateCODOrder(context.Background(), sampleCart(), "  leave at door ")
	require.NoError(t, err)
	assert.Equal(t, PersistenceOK, res.Persistence)
	require.Equal(t, 1, platform.calls)

	req := platform.requests[0]
	assert.Equal(t, models.FinancialStatusPending, req.FinancialStatus)
	assert.Empty(t, req.Transactions)
	assert.Equal(t, []string{"SSCheckout", "COD"}, req.Tags)
	assert.Equal(t, "leave at door", req.Note)

	method, ok := req.NoteAttribute(NotePaymentMethod)
	require.True(t, ok)
	assert.Equal(t, CODPaymentMethod, method)
	gw, ok := req.NoteAttribute(NotePaymentGateway)
	require.True(t, ok)
	assert.Equal(t, CODGateway, gw)

	assert.Equal(t, models.PaymentMethodCOD, recorder.order.PaymentMethod)
	assert.Empty(t, recorder.order.PaymentID)
}

func TestCreateCODOrderErrors(t *testing.T) {
	platform := &fakePlatform{}
	svc := NewCODService(platform, NewCartMapper("India", ""), nil)

	_, err := svc.CreateCODOrder(context.Background(), nil, "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateCODOrder(context.Background(), &models.CheckoutCart{}, "")
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, platform.calls)

	platform.err = &commerce.RejectedError{StatusCode: 422, Body: "bad"}
	_, err = svc.CreateCODOrder(context.Background(), sampleCart(), "")
	var rejected *commerce.RejectedError
	assert.ErrorAs(t, err, &rejected)
	assert.Equal(t, 1, platform.calls)
}
