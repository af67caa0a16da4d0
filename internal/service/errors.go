package service

import "errors"

// ErrValidation marks requests rejected before any external call is made.
// Handlers map it to a 400.
var ErrValidation = errors.New("validation failed")

// ErrStaleTransition marks a payment update that would move the order's
// payment status backward, typically a stale gateway response processed out
// of order. Handlers map it to a 409.
var ErrStaleTransition = errors.New("stale payment status transition")
