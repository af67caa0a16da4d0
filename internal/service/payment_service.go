package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/broker"
	"storefront-service/internal/gateway"
	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// paymentStore is the slice of the store the payment service needs; narrowed
// so tests can substitute a double.
type paymentStore interface {
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderByPreferenceID(ctx context.Context, preferenceID string) (*models.Order, error)
	GetOrderByPaymentExternalID(ctx context.Context, externalID string) (*models.Order, error)
	GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error)
	UpdateOrderPayment(ctx context.Context, orderID string, from, to models.PaymentStatus, externalID, method string) (bool, error)
}

// PaymentGateway is the slice of the gateway client the payment service needs
type PaymentGateway interface {
	CreatePayment(ctx context.Context, req *gateway.CreatePaymentRequest) (*gateway.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*gateway.Payment, error)
}

type statusPublisher interface {
	PublishPaymentStatusChanged(ctx context.Context, event *models.PaymentStatusChangedEvent) error
}

// PaymentService handles payment submissions and gateway status reconciliation
type PaymentService struct {
	store     paymentStore
	gateway   PaymentGateway
	publisher statusPublisher
	guard     *submitGuard
	logger    *zap.Logger
}

// NewPaymentService creates a new payment service. The cooldown bounds the
// duplicate-submission suppression window after each gateway call completes.
func NewPaymentService(
	st *store.Store,
	gw *gateway.Client,
	publisher *broker.EventPublisher,
	cooldown time.Duration,
) *PaymentService {
	if cooldown <= 0 {
		cooldown = 2 * time.Second
	}
	return &PaymentService{
		store:     st,
		gateway:   gw,
		publisher: publisher,
		guard:     newSubmitGuard(cooldown),
		logger:    util.GetLogger(),
	}
}

// PaymentPayer carries the payer fields from the payment form
type PaymentPayer struct {
	Email          string `json:"email,omitempty"`
	Identification struct {
		Type   string `json:"type,omitempty"`
		Number string `json:"number,omitempty"`
	} `json:"identification,omitempty"`
}

// PaymentFormData is the method-specific form payload from the payment widget
type PaymentFormData struct {
	PaymentMethodID string       `json:"payment_method_id"`
	Token           string       `json:"token,omitempty"`
	Installments    int          `json:"installments,omitempty"`
	Payer           PaymentPayer `json:"payer,omitempty"`
}

// ProcessPaymentRequest is a payment-form submission. PreferenceID is the
// order correlation token; it may be the gateway-assigned preference id or the
// order's own primary identifier depending on call site.
type ProcessPaymentRequest struct {
	FormData       *PaymentFormData       `json:"formData" binding:"required"`
	AdditionalData map[string]interface{} `json:"additionalData,omitempty"`
	PreferenceID   string                 `json:"preferenceId"`
	Amount         int64                  `json:"amount"`
}

// PaymentResult is the normalized gateway outcome returned to the caller
type PaymentResult struct {
	ID                 string                      `json:"id"`
	Status             models.PaymentStatus        `json:"status"`
	StatusDetail       string                      `json:"status_detail,omitempty"`
	PaymentMethodID    string                      `json:"payment_method_id,omitempty"`
	ExternalReference  string                      `json:"external_reference,omitempty"`
	TransactionAmount  float64                     `json:"transaction_amount,omitempty"`
	PointOfInteraction *gateway.PointOfInteraction `json:"point_of_interaction,omitempty"`
}

// ProcessPaymentResponse is returned for every accepted submission. Duplicate
// submissions resolve with Duplicate=true and no gateway call.
type ProcessPaymentResponse struct {
	Success     bool           `json:"success"`
	Duplicate   bool           `json:"duplicate,omitempty"`
	RedirectURL string         `json:"redirect_url,omitempty"`
	Payment     *PaymentResult `json:"payment,omitempty"`
}

// ProcessPayment forwards a payment-form submission to the gateway and
// persists the normalized outcome onto the order.
func (ps *PaymentService) ProcessPayment(ctx context.Context, req *ProcessPaymentRequest) (*ProcessPaymentResponse, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.ProcessPayment")
	defer span.End()

	if req.PreferenceID == "" {
		return nil, fmt.Errorf("%w: missing preference id", ErrValidation)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: missing amount", ErrValidation)
	}
	if req.FormData == nil || req.FormData.PaymentMethodID == "" {
		return nil, fmt.Errorf("%w: missing payment form data", ErrValidation)
	}

	if !ps.guard.begin(req.PreferenceID) {
		return ps.duplicateResponse(ctx, req.PreferenceID), nil
	}
	defer ps.guard.finish(req.PreferenceID)

	order, err := ps.lookupOrder(ctx, req.PreferenceID)
	if err != nil {
		return nil, err
	}

	gwReq, err := ps.buildGatewayRequest(ctx, order, req)
	if err != nil {
		return nil, err
	}

	payment, err := ps.gateway.CreatePayment(ctx, gwReq)
	if err != nil {
		ps.logger.Error("Gateway payment creation failed",
			zap.String("order_id", order.ID),
			zap.Error(err))
		return nil, fmt.Errorf("payment creation failed: %w", err)
	}

	mapped := models.MapGatewayStatus(payment.Status)
	if err := ps.persistStatus(ctx, order, mapped, payment.ID, payment.PaymentMethodID); err != nil {
		return nil, err
	}

	util.PaymentsProcessedTotal.WithLabelValues(string(mapped)).Inc()
	ps.logger.Info("Payment processed",
		zap.String("order_id", order.ID),
		zap.String("payment_external_id", payment.ID),
		zap.String("payment_status", string(mapped)))

	resp := &ProcessPaymentResponse{
		Success: true,
		Payment: &PaymentResult{
			ID:                 payment.ID,
			Status:             mapped,
			StatusDetail:       payment.StatusDetail,
			PaymentMethodID:    payment.PaymentMethodID,
			ExternalReference:  payment.ExternalReference,
			TransactionAmount:  payment.TransactionAmount,
			PointOfInteraction: payment.PointOfInteraction,
		},
	}
	if mapped == models.PaymentStatusApproved {
		resp.RedirectURL = successPath(order.ID)
	}
	return resp, nil
}

// duplicateResponse resolves a suppressed duplicate submission as a no-op,
// reporting the currently persisted status so the UI shows no spurious error.
func (ps *PaymentService) duplicateResponse(ctx context.Context, token string) *ProcessPaymentResponse {
	util.PaymentDuplicatesSuppressedTotal.Inc()
	ps.logger.Info("Duplicate payment submission suppressed", zap.String("token", token))

	status := models.PaymentStatusPending
	if order, err := ps.lookupOrder(ctx, token); err == nil {
		status = order.PaymentStatus
	}
	return &ProcessPaymentResponse{
		Success:   true,
		Duplicate: true,
		Payment:   &PaymentResult{Status: status},
	}
}

// lookupOrder tries the gateway-assigned preference id first and falls back
// to the order's own primary identifier; the correlation token may be either
// depending on call site.
func (ps *PaymentService) lookupOrder(ctx context.Context, token string) (*models.Order, error) {
	order, err := ps.store.GetOrderByPreferenceID(ctx, token)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return ps.store.GetOrderByID(ctx, token)
}

// buildGatewayRequest fills payer identification from the stored customer
// record when the form omitted it, and drops placeholder values outright.
func (ps *PaymentService) buildGatewayRequest(ctx context.Context, order *models.Order, req *ProcessPaymentRequest) (*gateway.CreatePaymentRequest, error) {
	customer, err := ps.store.GetCustomerByID(ctx, order.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}

	email := req.FormData.Payer.Email
	if email == "" {
		email = customer.Email
	}

	taxID := req.FormData.Payer.Identification.Number
	if isPlaceholderTaxID(taxID) {
		taxID = customer.TaxID
	}

	payer := &gateway.Payer{Email: email}
	if !isPlaceholderTaxID(taxID) {
		idType := req.FormData.Payer.Identification.Type
		if idType == "" {
			idType = "CPF"
		}
		payer.Identification = &gateway.Identification{Type: idType, Number: taxID}
	}

	return &gateway.CreatePaymentRequest{
		TransactionAmount: float64(req.Amount) / 100,
		PaymentMethodID:   req.FormData.PaymentMethodID,
		Token:             req.FormData.Token,
		Installments:      req.FormData.Installments,
		ExternalReference: order.ID,
		Payer:             payer,
	}, nil
}

// ApplyGatewayPayment maps a gateway payment onto the correlated order,
// guarded so a stale response cannot move a terminal status backward. Shared
// by the webhook receiver and the fallback reconciler.
func (ps *PaymentService) ApplyGatewayPayment(ctx context.Context, payment *gateway.Payment) error {
	ctx, span := util.StartSpan(ctx, "PaymentService.ApplyGatewayPayment")
	defer span.End()

	order, err := ps.store.GetOrderByID(ctx, payment.ExternalReference)
	if errors.Is(err, store.ErrNotFound) {
		order, err = ps.store.GetOrderByPaymentExternalID(ctx, payment.ID)
	}
	if err != nil {
		return err
	}

	mapped := models.MapGatewayStatus(payment.Status)
	if mapped == order.PaymentStatus && order.PaymentExternalID == payment.ID {
		return nil
	}

	method := payment.PaymentMethodID
	if method == "" {
		method = order.PaymentMethod
	}
	return ps.persistStatus(ctx, order, mapped, payment.ID, method)
}

// ReconcilePayment fetches a payment from the gateway and applies its status
func (ps *PaymentService) ReconcilePayment(ctx context.Context, gatewayPaymentID string) error {
	payment, err := ps.gateway.GetPayment(ctx, gatewayPaymentID)
	if err != nil {
		return fmt.Errorf("failed to fetch payment %s: %w", gatewayPaymentID, err)
	}
	return ps.ApplyGatewayPayment(ctx, payment)
}

// persistStatus writes the mapped status through the transition guard and
// publishes the change. The conditional update means a concurrent writer
// surfaces as a stale-transition conflict instead of a silent overwrite.
func (ps *PaymentService) persistStatus(ctx context.Context, order *models.Order, mapped models.PaymentStatus, externalID, method string) error {
	if !order.PaymentStatus.CanTransitionTo(mapped) {
		util.PaymentStaleUpdatesTotal.Inc()
		ps.logger.Warn("Rejected backward payment status transition",
			zap.String("order_id", order.ID),
			zap.String("from", string(order.PaymentStatus)),
			zap.String("to", string(mapped)))
		return fmt.Errorf("%w: %s -> %s", ErrStaleTransition, order.PaymentStatus, mapped)
	}

	updated, err := ps.store.UpdateOrderPayment(ctx, order.ID, order.PaymentStatus, mapped, externalID, method)
	if err != nil {
		return fmt.Errorf("failed to persist payment status: %w", err)
	}
	if !updated {
		util.PaymentStaleUpdatesTotal.Inc()
		return fmt.Errorf("%w: concurrent update on order %s", ErrStaleTransition, order.ID)
	}

	if order.PaymentStatus == mapped {
		return nil
	}

	event := &models.PaymentStatusChangedEvent{
		BaseEvent:         models.NewBaseEvent(models.EventTypePaymentStatusChanged),
		OrderID:           order.ID,
		PreviousStatus:    order.PaymentStatus,
		Status:            mapped,
		PaymentExternalID: externalID,
		PaymentMethod:     method,
	}
	if err := ps.publisher.PublishPaymentStatusChanged(ctx, event); err != nil {
		ps.logger.Error("Failed to publish PaymentStatusChanged event",
			zap.String("order_id", order.ID),
			zap.Error(err))
	}
	return nil
}

// isPlaceholderTaxID reports whether an identification number is absent or a
// widget placeholder (all identical digits); such values are omitted rather
// than sent to the gateway as real data.
func isPlaceholderTaxID(taxID string) bool {
	if taxID == "" {
		return true
	}
	first := taxID[0]
	for i := 1; i < len(taxID); i++ {
		if taxID[i] != first {
			return false
		}
	}
	return true
}

// successPath is where the storefront navigates after an approved payment
func successPath(orderID string) string {
	return "/checkout/sucesso/" + orderID
}
