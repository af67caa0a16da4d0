package models

// OrderStatus represents the order lifecycle stage
type OrderStatus string

// Order statuses
const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// orderTransitions defines the valid order lifecycle transitions.
// Cancellation is allowed until the order ships.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// CanTransitionTo reports whether an order may move to the target status.
// A self-transition is treated as an idempotent no-op and allowed.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if s == target {
		return true
	}
	for _, next := range orderTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// PaymentStatus represents the payment lifecycle stage
type PaymentStatus string

// Payment statuses
const (
	PaymentStatusPending     PaymentStatus = "pending"
	PaymentStatusProcessing  PaymentStatus = "processing"
	PaymentStatusAuthorized  PaymentStatus = "authorized"
	PaymentStatusInMediation PaymentStatus = "in_mediation"
	PaymentStatusApproved    PaymentStatus = "approved"
	PaymentStatusRejected    PaymentStatus = "rejected"
	PaymentStatusCancelled   PaymentStatus = "cancelled"
	PaymentStatusRefunded    PaymentStatus = "refunded"
	PaymentStatusChargedBack PaymentStatus = "charged_back"
)

// gatewayStatusMap maps the gateway status vocabulary onto ours.
// Anything unmapped falls back to pending.
var gatewayStatusMap = map[string]PaymentStatus{
	"approved":     PaymentStatusApproved,
	"pending":      PaymentStatusPending,
	"authorized":   PaymentStatusAuthorized,
	"in_process":   PaymentStatusProcessing,
	"in_mediation": PaymentStatusInMediation,
	"rejected":     PaymentStatusRejected,
	"cancelled":    PaymentStatusCancelled,
	"refunded":     PaymentStatusRefunded,
	"charged_back": PaymentStatusChargedBack,
}

// MapGatewayStatus translates a raw gateway status string into a PaymentStatus.
// Unknown or empty values map to pending.
func MapGatewayStatus(raw string) PaymentStatus {
	if mapped, ok := gatewayStatusMap[raw]; ok {
		return mapped
	}
	return PaymentStatusPending
}

// IsTerminal reports whether no further transition is expected from this
// status. Approved is terminal for the checkout flow even though refunds and
// chargebacks can still follow out-of-band.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusApproved, PaymentStatusRejected, PaymentStatusCancelled,
		PaymentStatusRefunded, PaymentStatusChargedBack:
		return true
	}
	return false
}

// paymentTransitions defines forward progression only. A stale gateway
// response must never move a payment backward from a terminal state.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {
		PaymentStatusProcessing, PaymentStatusAuthorized, PaymentStatusInMediation,
		PaymentStatusApproved, PaymentStatusRejected, PaymentStatusCancelled,
	},
	PaymentStatusProcessing: {
		PaymentStatusAuthorized, PaymentStatusInMediation,
		PaymentStatusApproved, PaymentStatusRejected, PaymentStatusCancelled,
	},
	PaymentStatusAuthorized: {
		PaymentStatusApproved, PaymentStatusRejected, PaymentStatusCancelled,
	},
	PaymentStatusInMediation: {
		PaymentStatusApproved, PaymentStatusRejected,
		PaymentStatusRefunded, PaymentStatusChargedBack,
	},
	PaymentStatusApproved: {
		PaymentStatusRefunded, PaymentStatusChargedBack,
	},
	PaymentStatusRejected:    {},
	PaymentStatusCancelled:   {},
	PaymentStatusRefunded:    {},
	PaymentStatusChargedBack: {},
}

// CanTransitionTo reports whether a payment may move to the target status.
// A self-transition is treated as an idempotent no-op and allowed.
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	if s == target {
		return true
	}
	for _, next := range paymentTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}
