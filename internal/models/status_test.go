package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapGatewayStatus(t *testing.T) {
	cases := map[string]PaymentStatus{
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
	for raw, expected := range cases {
		assert.Equal(t, expected, MapGatewayStatus(raw), "gateway status %q", raw)
	}

	assert.Equal(t, PaymentStatusPending, MapGatewayStatus(""))
	assert.Equal(t, PaymentStatusPending, MapGatewayStatus("something_new"))
}

func TestPaymentStatusIsTerminal(t *testing.T) {
	assert.True(t, PaymentStatusApproved.IsTerminal())
	assert.True(t, PaymentStatusRejected.IsTerminal())
	assert.True(t, PaymentStatusCancelled.IsTerminal())
	assert.True(t, PaymentStatusRefunded.IsTerminal())
	assert.True(t, PaymentStatusChargedBack.IsTerminal())

	assert.False(t, PaymentStatusPending.IsTerminal())
	assert.False(t, PaymentStatusProcessing.IsTerminal())
	assert.False(t, PaymentStatusAuthorized.IsTerminal())
	assert.False(t, PaymentStatusInMediation.IsTerminal())
}

func TestPaymentStatusTransitions(t *testing.T) {
	assert.True(t, PaymentStatusPending.CanTransitionTo(PaymentStatusApproved))
	assert.True(t, PaymentStatusPending.CanTransitionTo(PaymentStatusProcessing))
	assert.True(t, PaymentStatusProcessing.CanTransitionTo(PaymentStatusRejected))
	assert.True(t, PaymentStatusApproved.CanTransitionTo(PaymentStatusRefunded))
	assert.True(t, PaymentStatusApproved.CanTransitionTo(PaymentStatusChargedBack))

	// Idempotent redelivery of the same status is allowed.
	assert.True(t, PaymentStatusApproved.CanTransitionTo(PaymentStatusApproved))
	assert.True(t, PaymentStatusRejected.CanTransitionTo(PaymentStatusRejected))

	// A stale update must never move a payment backward.
	assert.False(t, PaymentStatusApproved.CanTransitionTo(PaymentStatusPending))
	assert.False(t, PaymentStatusApproved.CanTransitionTo(PaymentStatusProcessing))
	assert.False(t, PaymentStatusRejected.CanTransitionTo(PaymentStatusApproved))
	assert.False(t, PaymentStatusRefunded.CanTransitionTo(PaymentStatusApproved))
}

func TestOrderStatusTransitions(t *testing.T) {
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusConfirmed))
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusCancelled))
	assert.True(t, OrderStatusConfirmed.CanTransitionTo(OrderStatusProcessing))
	assert.True(t, OrderStatusProcessing.CanTransitionTo(OrderStatusShipped))
	assert.True(t, OrderStatusShipped.CanTransitionTo(OrderStatusDelivered))

	assert.False(t, OrderStatusShipped.CanTransitionTo(OrderStatusCancelled))
	assert.False(t, OrderStatusDelivered.CanTransitionTo(OrderStatusPending))
	assert.False(t, OrderStatusCancelled.CanTransitionTo(OrderStatusConfirmed))
}
