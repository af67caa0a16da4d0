package poller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func waitClosed(t *testing.T, ch <-chan struct{}, timeout time.Duration) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for poller to finish")
	}
}

func TestPollerApprovedAtMountSkipsPolling(t *testing.T) {
	var fetches, successes int32

	p := New(Config{
		OrderID:      "ord-1",
		Interval:     5 * time.Millisecond,
		SuccessDelay: 10 * time.Millisecond,
		Fetch: func(context.Context, string) (*models.StatusProjection, error) {
			atomic.AddInt32(&fetches, 1)
			return nil, nil
		},
		OnChange: func(models.PaymentStatus) {
			t.Error("OnChange must not fire when no transition was observed")
		},
		OnSuccess: func(orderID string) {
			atomic.AddInt32(&successes, 1)
			assert.Equal(t, "ord-1", orderID)
		},
		Logger: zap.NewNop(),
	})

	p.Start(models.PaymentStatusApproved)
	waitClosed(t, p.Done(), time.Second)

	assert.Equal(t, int32(0), atomic.LoadInt32(&fetches), "an already approved payment needs no fetch")
	assert.Equal(t, int32(1), atomic.LoadInt32(&successes))
}

func TestPollerNonPendingDoesNothing(t *testing.T) {
	p := New(Config{
		OrderID: "ord-1",
		Fetch: func(context.Context, string) (*models.StatusProjection, error) {
			t.Error("no fetch expected")
			return nil, nil
		},
		OnSuccess: func(string) {
			t.Error("no success callback expected")
		},
		Logger: zap.NewNop(),
	})

	p.Start(models.PaymentStatusRejected)
	waitClosed(t, p.Done(), time.Second)
}

func TestPollerPendingPollsUntilPaid(t *testing.T) {
	var fetches int32
	var changed atomic.Value
	successCh := make(chan string, 1)

	p := New(Config{
		OrderID:      "ord-1",
		Interval:     5 * time.Millisecond,
		SuccessDelay: 5 * time.Millisecond,
		Fetch: func(_ context.Context, orderID string) (*models.StatusProjection, error) {
			n := atomic.AddInt32(&fetches, 1)
			proj := &models.StatusProjection{OrderID: orderID, PaymentStatus: models.PaymentStatusPending}
			if n >= 3 {
				proj.PaymentStatus = models.PaymentStatusApproved
				proj.IsPaid = true
			}
			return proj, nil
		},
		OnChange: func(status models.PaymentStatus) {
			changed.Store(status)
		},
		OnSuccess: func(orderID string) {
			successCh <- orderID
		},
		Logger: zap.NewNop(),
	})

	p.Start(models.PaymentStatusPending)

	select {
	case orderID := <-successCh:
		assert.Equal(t, "ord-1", orderID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for success callback")
	}
	waitClosed(t, p.Done(), time.Second)

	assert.GreaterOrEqual(t, atomic.LoadInt32(&fetches), int32(3))
	assert.Equal(t, models.PaymentStatusApproved, changed.Load())
}

func TestPollerRetriesAfterFetchError(t *testing.T) {
	var fetches int32
	successCh := make(chan struct{}, 1)

	p := New(Config{
		OrderID:      "ord-1",
		Interval:     5 * time.Millisecond,
		SuccessDelay: time.Millisecond,
		Fetch: func(context.Context, string) (*models.StatusProjection, error) {
			n := atomic.AddInt32(&fetches, 1)
			if n == 1 {
				return nil, assert.AnError
			}
			return &models.StatusProjection{
				PaymentStatus: models.PaymentStatusApproved,
				IsPaid:        true,
			}, nil
		},
		OnSuccess: func(string) {
			successCh <- struct{}{}
		},
		Logger: zap.NewNop(),
	})

	p.Start(models.PaymentStatusPending)

	select {
	case <-successCh:
	case <-time.After(time.Second):
		t.Fatal("poller did not recover from fetch error")
	}
	waitClosed(t, p.Done(), time.Second)

	require.GreaterOrEqual(t, atomic.LoadInt32(&fetches), int32(2))
}

func TestPollerStopPreventsFurtherFetches(t *testing.T) {
	var fetches int32

	p := New(Config{
		OrderID:  "ord-1",
		Interval: 5 * time.Millisecond,
		Fetch: func(context.Context, string) (*models.StatusProjection, error) {
			atomic.AddInt32(&fetches, 1)
			return &models.StatusProjection{PaymentStatus: models.PaymentStatusPending}, nil
		},
		OnSuccess: func(string) {
			t.Error("no success callback expected after stop")
		},
		Logger: zap.NewNop(),
	})

	p.Start(models.PaymentStatusPending)
	time.Sleep(20 * time.Millisecond)
	p.Stop()
	waitClosed(t, p.Done(), time.Second)

	observed := atomic.LoadInt32(&fetches)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, observed, atomic.LoadInt32(&fetches), "no fetch may happen after Stop")

	// Stop is idempotent.
	p.Stop()
}

func TestPollerStopCancelsSuccessDelay(t *testing.T) {
	p := New(Config{
		OrderID:      "ord-1",
		SuccessDelay: 200 * time.Millisecond,
		Fetch: func(context.Context, string) (*models.StatusProjection, error) {
			return nil, nil
		},
		OnSuccess: func(string) {
			t.Error("success callback must not fire after stop")
		},
		Logger: zap.NewNop(),
	})

	p.Start(models.PaymentStatusApproved)
	p.Stop()
	waitClosed(t, p.Done(), time.Second)
}
