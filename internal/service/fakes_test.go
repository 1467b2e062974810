package service

import (
	"context"
	"errors"
	"sync"

	"checkout-service/internal/models"
)

type fakeGateway struct {
	status      models.IntentStatus
	amount      int64
	statusErr   error
	intent      *models.PaymentIntent
	createErr   error
	createCalls int
	lastReceipt string
}

func (f *fakeGateway) CreateIntent(_ context.Context, amountMinor int64, receipt string, _ map[string]string) (*models.PaymentIntent, error) {
	f.createCalls++
	f.lastReceipt = receipt
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.intent != nil {
		return f.intent, nil
	}
	return &models.PaymentIntent{ID: "order_Abc", Amount: amountMinor, Currency: "INR", Receipt: receipt, Status: models.IntentStatusCreated}, nil
}

func (f *fakeGateway) FetchStatus(context.Context, string) (models.PaymentState, error) {
	if f.statusErr != nil {
		return models.PaymentState{}, f.statusErr
	}
	state := models.PaymentState{Status: f.status, AmountMinor: f.amount}
	if state.Status == "" {
		state.Status = models.IntentStatusCaptured
	}
	return state, nil
}

type fakePlatform struct {
	mu       sync.Mutex
	order    *models.CommerceOrder
	err      error
	calls    int
	requests []*models.CommerceOrderRequest
	ctxErr   error
}

func (f *fakePlatform) CreateOrder(ctx context.Context, req *models.CommerceOrderRequest) (*models.CommerceOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.requests = append(f.requests, req)
	f.ctxErr = ctx.Err()
	if f.err != nil {
		return nil, f.err
	}
	if f.order != nil {
		return f.order, nil
	}
	return &models.CommerceOrder{ID: 820982911946154508, OrderNumber: 1001, FinancialStatus: req.FinancialStatus, LineItems: req.LineItems}, nil
}

type fakeGuard struct {
	orders   map[string]*models.CommerceOrder
	claims   map[string]bool
	released []string
	err      error
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{orders: map[string]*models.CommerceOrder{}, claims: map[string]bool{}}
}

func (f *fakeGuard) Lookup(_ context.Context, paymentID string) (*models.CommerceOrder, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.orders[paymentID], nil
}

func (f *fakeGuard) Claim(_ context.Context, paymentID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.claims[paymentID] {
		return false, nil
	}
	f.claims[paymentID] = true
	return true, nil
}

func (f *fakeGuard) Release(_ context.Context, paymentID string) error {
	delete(f.claims, paymentID)
	f.released = append(f.released, paymentID)
	return nil
}

func (f *fakeGuard) Record(_ context.Context, paymentID string, order *models.CommerceOrder) error {
	f.orders[paymentID] = order
	return nil
}

type fakeRecorder struct {
	err   error
	order *models.StoredOrder
	items []models.StoredOrderItem
}

func (f *fakeRecorder) SaveOrder(_ context.Context, order *models.StoredOrder, items []models.StoredOrderItem) error {
	f.order = order
	f.items = items
	return f.err
}

type fakeEvents struct {
	materialized    []*models.OrderMaterializedEvent
	reconciliations []*models.ReconciliationRequiredEvent
}

func (f *fakeEvents) PublishOrderMaterialized(_ context.Context, event *models.OrderMaterializedEvent) error {
	f.materialized = append(f.materialized, event)
	return nil
}

func (f *fakeEvents) PublishReconciliationRequired(_ context.Context, event *models.ReconciliationRequiredEvent) error {
	f.reconciliations = append(f.reconciliations, event)
	return errors.New("broker down")
}
