package worker

import (
	"context"
	"sync"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/poller"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/service"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const reconcileLockKey = "payment-reconcile-sweep"

// ReconcileWorker is the fallback safety net behind the webhook receiver.
// A cron sweep enrolls orders whose payment has been pending too long into
// status pollers that re-check the gateway on a long interval, so an
// out-of-band update never goes undetected even if the webhook was lost.
type ReconcileWorker struct {
	store    *store.Store
	redis    *redisclient.Client
	payments *service.PaymentService

	cronSpec     string
	pollInterval time.Duration
	staleAfter   time.Duration

	cron    *cron.Cron
	mu      sync.Mutex
	pollers map[string]*poller.StatusPoller
	logger  *zap.Logger
}

// NewReconcileWorker creates a new reconcile worker
func NewReconcileWorker(
	st *store.Store,
	redis *redisclient.Client,
	payments *service.PaymentService,
	cronSpec string,
	pollInterval, staleAfter time.Duration,
) *ReconcileWorker {
	if cronSpec == "" {
		cronSpec = "@every 2m"
	}
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &ReconcileWorker{
		store:        st,
		redis:        redis,
		payments:     payments,
		cronSpec:     cronSpec,
		pollInterval: pollInterval,
		staleAfter:   staleAfter,
		cron:         cron.New(),
		pollers:      make(map[string]*poller.StatusPoller),
		logger:       util.GetLogger(),
	}
}

// Start schedules the sweep
func (w *ReconcileWorker) Start() error {
	if _, err := w.cron.AddFunc(w.cronSpec, w.sweep); err != nil {
		return err
	}
	w.cron.Start()
	w.logger.Info("Reconcile worker started", zap.String("schedule", w.cronSpec))
	return nil
}

// Stop cancels the schedule and winds down every active poller
func (w *ReconcileWorker) Stop() {
	ctx := w.cron.Stop()
	<-ctx.Done()

	w.mu.Lock()
	defer w.mu.Unlock()
	for orderID, p := range w.pollers {
		p.Stop()
		delete(w.pollers, orderID)
	}
	w.logger.Info("Reconcile worker stopped")
}

// sweep enrolls stale pending orders into pollers and prunes resolved ones.
// The Redis lock keeps concurrent instances from sweeping at the same time.
func (w *ReconcileWorker) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	locked, err := w.redis.AcquireLock(ctx, reconcileLockKey, time.Minute)
	if err != nil {
		w.logger.Warn("Failed to acquire reconcile lock", zap.Error(err))
		return
	}
	if !locked {
		return
	}
	defer func() {
		if err := w.redis.ReleaseLock(ctx, reconcileLockKey); err != nil {
			w.logger.Warn("Failed to release reconcile lock", zap.Error(err))
		}
	}()

	orders, err := w.store.ListStalePendingOrders(ctx, w.staleAfter, 100)
	if err != nil {
		w.logger.Error("Failed to list stale pending orders", zap.Error(err))
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(ctx)

	for _, order := range orders {
		if _, enrolled := w.pollers[order.ID]; enrolled {
			continue
		}
		w.enrollLocked(order.ID)
	}
}

// enrollLocked starts a fallback poller for one order; callers hold the lock.
func (w *ReconcileWorker) enrollLocked(orderID string) {
	p := poller.New(poller.Config{
		OrderID:  orderID,
		Interval: w.pollInterval,
		Fetch:    w.fetchStatus,
		OnSuccess: func(orderID string) {
			util.ReconcileResolvedTotal.Inc()
			w.logger.Info("Pending payment resolved by fallback poller",
				zap.String("order_id", orderID))
			w.remove(orderID)
		},
		Logger: w.logger,
	})
	w.pollers[orderID] = p
	p.Start(models.PaymentStatusPending)

	w.logger.Info("Enrolled stale pending order for reconciliation",
		zap.String("order_id", orderID))
}

// fetchStatus re-checks the gateway when the order has a payment attempt,
// then reads back the projection the poller decides on.
func (w *ReconcileWorker) fetchStatus(ctx context.Context, orderID string) (*models.StatusProjection, error) {
	util.ReconcilePollsTotal.Inc()

	order, err := w.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.PaymentExternalID != "" {
		if err := w.payments.ReconcilePayment(ctx, order.PaymentExternalID); err != nil {
			return nil, err
		}
	}

	return w.store.StatusProjection(ctx, orderID)
}

// pruneLocked stops pollers for orders that left pending by some other path
// (webhook, resubmission) and drops finished ones; callers hold the lock.
func (w *ReconcileWorker) pruneLocked(ctx context.Context) {
	for orderID, p := range w.pollers {
		select {
		case <-p.Done():
			delete(w.pollers, orderID)
			continue
		default:
		}

		proj, err := w.store.StatusProjection(ctx, orderID)
		if err != nil {
			continue
		}
		if proj.PaymentStatus != models.PaymentStatusPending {
			p.Stop()
			delete(w.pollers, orderID)
		}
	}
}

func (w *ReconcileWorker) remove(orderID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.pollers, orderID)
}
