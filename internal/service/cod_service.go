package service

import (
	"context"
	"strings"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Cash on delivery order markers
const (
	CODGateway       = "COD"
	CODPaymentMethod = "Cash on Delivery"
)

// CODResult is a created cash on delivery order
type CODResult struct {
	Order       *models.CommerceOrder
	Persistence PersistenceStatus
}

// CODService creates unpaid orders settled on delivery
type CODService struct {
	platform OrderPlatform
	mapper   *CartMapper
	recorder OrderRecorder
	logger   *zap.Logger
}

// NewCODService creates a COD service. recorder may be nil.
func NewCODService(platform OrderPlatform, mapper *CartMapper, recorder OrderRecorder) *CODService {
	return &CODService{
		platform: platform,
		mapper:   mapper,
		recorder: recorder,
		logger:   util.GetLogger(),
	}
}

// CreateCODOrder maps cart as a pending order and submits it once. Mapping
// errors and platform errors are returned unchanged.
func (s *CODService) CreateCODOrder(ctx context.Context, cart *models.CheckoutCart, note string) (*CODResult, error) {
	ctx, span := util.StartSpan(ctx, "CODService.CreateCODOrder")
	defer span.End()

	if cart == nil {
		return nil, ErrMissingFields
	}

	req, err := s.mapper.MapToOrderRequest(cart, PaymentMeta{Gateway: CODGateway}, models.FinancialStatusPending)
	if err != nil {
		return nil, err
	}
	req.NoteAttributes = append(req.NoteAttributes, models.NoteAttribute{Name: NotePaymentMethod, Value: CODPaymentMethod})
	req.Note = strings.TrimSpace(note)

	order, err := s.platform.CreateOrder(ctx, req)
	if err != nil {
		span.RecordError(err)
		s.logger.Error("Failed to create COD order",
			zap.String("email", req.Email),
			zap.Error(err))
		return nil, err
	}

	persistence := persistOrder(context.WithoutCancel(ctx), s.recorder, orderRecord{
		order:         order,
		cart:          cart,
		country:       req.ShippingAddress.Country,
		paymentMethod: models.PaymentMethodCOD,
		paymentStatus: "Pending",
	}, s.logger)

	util.CODOrdersCreatedTotal.Inc()
	span.SetAttributes(attribute.Int64("order_id", order.ID))
	s.logger.Info("COD order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("order_number", order.OrderNumber),
		zap.String("persistence", string(persistence)))

	return &CODResult{Order: order, Persistence: persistence}, nil
}
