package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/broker"
	"storefront-service/internal/gateway"
	"storefront-service/internal/models"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/shipping"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService handles cart, checkout and order lifecycle
type OrderService struct {
	store     *store.Store
	redis     *redisclient.Client
	shipping  *shipping.Client
	gateway   *gateway.Client
	publisher *broker.EventPublisher
	cartTTL   time.Duration
	logger    *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	st *store.Store,
	redis *redisclient.Client,
	shippingClient *shipping.Client,
	gw *gateway.Client,
	publisher *broker.EventPublisher,
	cartTTL time.Duration,
) *OrderService {
	if cartTTL <= 0 {
		cartTTL = 72 * time.Hour
	}
	return &OrderService{
		store:     st,
		redis:     redis,
		shipping:  shippingClient,
		gateway:   gw,
		publisher: publisher,
		cartTTL:   cartTTL,
		logger:    util.GetLogger(),
	}
}

// CartItemRequest is a cart line sent by the storefront
type CartItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// SaveCart validates the items against the catalog and stores the cart with
// price snapshots.
func (s *OrderService) SaveCart(ctx context.Context, customerID int64, items []CartItemRequest) ([]models.CartItem, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty cart", ErrValidation)
	}

	products, err := s.loadProducts(ctx, items)
	if err != nil {
		return nil, err
	}

	cart := make([]models.CartItem, 0, len(items))
	for _, item := range items {
		product := products[item.ProductID]
		cart = append(cart, models.CartItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
			Name:      product.Name,
		})
	}

	if err := s.redis.SaveCart(ctx, customerID, cart, s.cartTTL); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

// GetCart returns the customer's current cart
func (s *OrderService) GetCart(ctx context.Context, customerID int64) ([]models.CartItem, error) {
	return s.redis.GetCart(ctx, customerID)
}

// CheckoutRequest creates an order from the customer's cart
type CheckoutRequest struct {
	CustomerID     int64  `json:"customer_id" binding:"required"`
	AddressID      int64  `json:"address_id" binding:"required"`
	CouponCode     string `json:"coupon_code,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// CheckoutResponse summarizes the created order
type CheckoutResponse struct {
	OrderID        string               `json:"order_id"`
	Status         models.OrderStatus   `json:"status"`
	PaymentStatus  models.PaymentStatus `json:"payment_status"`
	TotalAmount    int64                `json:"total_amount"`
	DiscountAmount int64                `json:"discount_amount"`
	ShippingAmount int64                `json:"shipping_amount"`
	PreferenceID   string               `json:"preference_id"`
	InitPoint      string               `json:"init_point,omitempty"`
}

// Checkout turns the customer's cart into a pending order with a gateway
// checkout preference attached.
func (s *OrderService) Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Checkout")
	defer span.End()

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}

	existing, err := s.store.GetOrderByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if existing != nil {
		s.logger.Info("Duplicate checkout request detected",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.String("order_id", existing.ID))
		return &CheckoutResponse{
			OrderID:        existing.ID,
			Status:         existing.Status,
			PaymentStatus:  existing.PaymentStatus,
			TotalAmount:    existing.TotalAmount,
			DiscountAmount: existing.DiscountAmount,
			ShippingAmount: existing.ShippingAmount,
			PreferenceID:   existing.PreferenceID,
		}, nil
	}

	cart, err := s.redis.GetCart(ctx, req.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(cart) == 0 {
		util.CheckoutFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, fmt.Errorf("%w: empty cart", ErrValidation)
	}

	address, err := s.store.GetAddressByID(ctx, req.AddressID)
	if err != nil {
		return nil, err
	}
	if address.CustomerID != req.CustomerID {
		util.CheckoutFailedTotal.WithLabelValues("address_mismatch").Inc()
		return nil, fmt.Errorf("%w: address does not belong to customer", ErrValidation)
	}

	products, err := s.validateCart(ctx, cart)
	if err != nil {
		util.CheckoutFailedTotal.WithLabelValues("invalid_items").Inc()
		return nil, err
	}

	subtotal := cartSubtotal(cart)

	var discount int64
	if req.CouponCode != "" {
		coupon, err := s.store.GetActiveCouponByCode(ctx, req.CouponCode)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				util.CheckoutFailedTotal.WithLabelValues("invalid_coupon").Inc()
				return nil, fmt.Errorf("%w: invalid coupon %s", ErrValidation, req.CouponCode)
			}
			return nil, err
		}
		discount, err = applyCoupon(coupon, subtotal)
		if err != nil {
			util.CheckoutFailedTotal.WithLabelValues("invalid_coupon").Inc()
			return nil, err
		}
	}

	quote, err := s.shipping.GetQuote(ctx, address.Zip, cartWeight(cart, products))
	if err != nil {
		util.CheckoutFailedTotal.WithLabelValues("shipping_quote").Inc()
		return nil, fmt.Errorf("failed to quote shipping: %w", err)
	}

	orderID := uuid.New().String()

	pref, err := s.createPreference(ctx, orderID, cart)
	if err != nil {
		util.CheckoutFailedTotal.WithLabelValues("gateway_preference").Inc()
		return nil, err
	}

	order := &models.Order{
		ID:             orderID,
		CustomerID:     req.CustomerID,
		AddressID:      req.AddressID,
		TotalAmount:    subtotal - discount + quote.Price,
		DiscountAmount: discount,
		ShippingAmount: quote.Price,
		CouponCode:     req.CouponCode,
		Status:         models.OrderStatusPending,
		PaymentStatus:  models.PaymentStatusPending,
		PreferenceID:   pref.ID,
		IdempotencyKey: req.IdempotencyKey,
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		util.CheckoutFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	eventItems := make([]models.OrderItemData, 0, len(cart))
	for _, item := range cart {
		orderItem := &models.OrderItem{
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
		if err := s.store.CreateOrderItem(ctx, orderItem); err != nil {
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
		eventItems = append(eventItems, models.OrderItemData{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.Int64("total_amount", order.TotalAmount))

	event := &models.OrderCreatedEvent{
		BaseEvent:   models.NewBaseEvent(models.EventTypeOrderCreated),
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		TotalAmount: order.TotalAmount,
		Items:       eventItems,
	}
	if err := s.publisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}

	return &CheckoutResponse{
		OrderID:        order.ID,
		Status:         order.Status,
		PaymentStatus:  order.PaymentStatus,
		TotalAmount:    order.TotalAmount,
		DiscountAmount: order.DiscountAmount,
		ShippingAmount: order.ShippingAmount,
		PreferenceID:   pref.ID,
		InitPoint:      pref.InitPoint,
	}, nil
}

func (s *OrderService) createPreference(ctx context.Context, orderID string, cart []models.CartItem) (*gateway.Preference, error) {
	items := make([]gateway.PreferenceItem, 0, len(cart))
	for _, item := range cart {
		items = append(items, gateway.PreferenceItem{
			Title:     item.Name,
			Quantity:  item.Quantity,
			UnitPrice: float64(item.UnitPrice) / 100,
		})
	}

	pref, err := s.gateway.CreatePreference(ctx, &gateway.CreatePreferenceRequest{
		ExternalReference: orderID,
		Items:             items,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open checkout preference: %w", err)
	}
	return pref, nil
}

// GetOrder retrieves an order with its items
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, []models.OrderItem, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.store.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}

// GetOrderStatus returns the normalized status projection for an order
func (s *OrderService) GetOrderStatus(ctx context.Context, orderID string) (*models.StatusProjection, error) {
	return s.store.StatusProjection(ctx, orderID)
}

// ListCustomerOrders returns a customer's orders, newest first
func (s *OrderService) ListCustomerOrders(ctx context.Context, customerID int64) ([]models.Order, error) {
	return s.store.ListOrdersByCustomer(ctx, customerID)
}

// ConfirmPaidOrder moves an order to confirmed after payment approval,
// deducts stock and clears the customer's cart.
func (s *OrderService) ConfirmPaidOrder(ctx context.Context, orderID string) error {
	ctx, span := util.StartSpan(ctx, "OrderService.ConfirmPaidOrder")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status == models.OrderStatusConfirmed {
		return nil
	}
	if !order.Status.CanTransitionTo(models.OrderStatusConfirmed) {
		return fmt.Errorf("order %s cannot be confirmed from status %s", orderID, order.Status)
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, models.OrderStatusConfirmed); err != nil {
		return fmt.Errorf("failed to confirm order: %w", err)
	}
	util.OrdersConfirmedTotal.Inc()

	items, err := s.store.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to get order items: %w", err)
	}
	for _, item := range items {
		if err := s.store.DecrementStockTx(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.Error("Failed to decrement stock",
				zap.String("order_id", orderID),
				zap.Int64("product_id", item.ProductID),
				zap.Error(err))
		}
	}

	if err := s.redis.ClearCart(ctx, order.CustomerID); err != nil {
		s.logger.Warn("Failed to clear cart after confirmation",
			zap.Int64("customer_id", order.CustomerID),
			zap.Error(err))
	}

	event := &models.OrderConfirmedEvent{
		BaseEvent:  models.NewBaseEvent(models.EventTypeOrderConfirmed),
		OrderID:    orderID,
		CustomerID: order.CustomerID,
	}
	if err := s.publisher.PublishOrderConfirmed(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderConfirmed event", zap.Error(err))
	}

	s.logger.Info("Order confirmed", zap.String("order_id", orderID))
	return nil
}

// CancelOrder cancels an order if its lifecycle still allows it
func (s *OrderService) CancelOrder(ctx context.Context, orderID, reason string) error {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status == models.OrderStatusCancelled {
		return nil
	}
	if !order.Status.CanTransitionTo(models.OrderStatusCancelled) {
		return fmt.Errorf("order %s cannot be cancelled from status %s", orderID, order.Status)
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, models.OrderStatusCancelled); err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	util.OrdersCancelledTotal.Inc()

	event := &models.OrderCancelledEvent{
		BaseEvent: models.NewBaseEvent(models.EventTypeOrderCancelled),
		OrderID:   orderID,
		Reason:    reason,
	}
	if err := s.publisher.PublishOrderCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
	}

	s.logger.Info("Order cancelled",
		zap.String("order_id", orderID),
		zap.String("reason", reason))
	return nil
}

// UpdateOrderStatus applies an admin lifecycle transition
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID string, target models.OrderStatus) error {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if !order.Status.CanTransitionTo(target) {
		return fmt.Errorf("%w: order status %s -> %s", ErrStaleTransition, order.Status, target)
	}
	return s.store.UpdateOrderStatus(ctx, orderID, target)
}

// validateCart checks every cart line against the catalog
func (s *OrderService) validateCart(ctx context.Context, cart []models.CartItem) (map[int64]*models.Product, error) {
	items := make([]CartItemRequest, 0, len(cart))
	for _, item := range cart {
		items = append(items, CartItemRequest{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return s.loadProducts(ctx, items)
}

func (s *OrderService) loadProducts(ctx context.Context, items []CartItemRequest) (map[int64]*models.Product, error) {
	productIDs := make([]int64, len(items))
	for i, item := range items {
		productIDs[i] = item.ProductID
	}

	products, err := s.store.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	productMap := make(map[int64]*models.Product)
	for i := range products {
		productMap[products[i].ID] = &products[i]
	}

	for _, item := range items {
		product, ok := productMap[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %d not found", ErrValidation, item.ProductID)
		}
		if !product.Active {
			return nil, fmt.Errorf("%w: product %d is unavailable", ErrValidation, item.ProductID)
		}
		if product.Stock < item.Quantity {
			return nil, fmt.Errorf("%w: insufficient stock for product %d", ErrValidation, item.ProductID)
		}
	}

	return productMap, nil
}

// cartSubtotal sums the cart line totals
func cartSubtotal(cart []models.CartItem) int64 {
	var subtotal int64
	for _, item := range cart {
		subtotal += item.UnitPrice * int64(item.Quantity)
	}
	return subtotal
}

// cartWeight sums the package weight in grams
func cartWeight(cart []models.CartItem, products map[int64]*models.Product) int {
	var weight int
	for _, item := range cart {
		if product, ok := products[item.ProductID]; ok {
			weight += product.WeightGrams * item.Quantity
		}
	}
	return weight
}

// applyCoupon computes the discount for a subtotal, enforcing the coupon's
// minimum order. The discount never exceeds the subtotal.
func applyCoupon(coupon *models.Coupon, subtotal int64) (int64, error) {
	if subtotal < coupon.MinOrder {
		return 0, fmt.Errorf("%w: order below coupon minimum", ErrValidation)
	}

	var discount int64
	if coupon.PercentOff > 0 {
		discount = subtotal * int64(coupon.PercentOff) / 100
	} else {
		discount = coupon.AmountOff
	}
	if discount > subtotal {
		discount = subtotal
	}
	return discount, nil
}
