package models

import (
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventTypeOrderCreated         = "ORDER_CREATED"
	EventTypeOrderConfirmed       = "ORDER_CONFIRMED"
	EventTypeOrderCancelled       = "ORDER_CANCELLED"
	EventTypePaymentStatusChanged = "PAYMENT_STATUS_CHANGED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBaseEvent builds the common envelope with a fresh event id
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

// OrderCreatedEvent published when checkout creates an order
type OrderCreatedEvent struct {
	BaseEvent
	OrderID     string          `json:"order_id"`
	CustomerID  int64           `json:"customer_id"`
	TotalAmount int64           `json:"total_amount"`
	Items       []OrderItemData `json:"items"`
}

// OrderConfirmedEvent published once an approved payment confirms the order
type OrderConfirmedEvent struct {
	BaseEvent
	OrderID    string `json:"order_id"`
	CustomerID int64  `json:"customer_id"`
}

// OrderCancelledEvent published when an order is cancelled
type OrderCancelledEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

// PaymentStatusChangedEvent published whenever a gateway response or webhook
// moves an order's payment status
type PaymentStatusChangedEvent struct {
	BaseEvent
	OrderID           string        `json:"order_id"`
	PreviousStatus    PaymentStatus `json:"previous_status"`
	Status            PaymentStatus `json:"status"`
	PaymentExternalID string        `json:"payment_external_id"`
	PaymentMethod     string        `json:"payment_method,omitempty"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
}
