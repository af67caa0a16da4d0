package worker

import (
	"context"
	"log"

	"storefront-service/internal/broker"
	"storefront-service/internal/models"
	"storefront-service/internal/service"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// OrderWorker advances the order lifecycle from payment status events:
// an approved payment confirms the order, a terminal failure cancels it.
type OrderWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
	orders       *service.OrderService
	logger       *zap.Logger
}

// NewOrderWorker creates a new order worker
func NewOrderWorker(consumer *broker.Consumer, st *store.Store, orders *service.OrderService) *OrderWorker {
	w := &OrderWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		store:        st,
		orders:       orders,
		logger:       util.GetLogger(),
	}
	w.eventHandler.OnPaymentStatusChanged(w.handlePaymentStatusChanged)
	return w
}

// Start starts the worker
func (w *OrderWorker) Start(ctx context.Context) error {
	log.Println("Starting order worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *OrderWorker) Stop() error {
	log.Println("Stopping order worker...")
	return w.consumer.Close()
}

func (w *OrderWorker) handlePaymentStatusChanged(ctx context.Context, event *models.PaymentStatusChangedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		w.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	w.logger.Info("Handling payment status change",
		zap.String("order_id", event.OrderID),
		zap.String("status", string(event.Status)))

	switch event.Status {
	case models.PaymentStatusApproved:
		if err := w.orders.ConfirmPaidOrder(ctx, event.OrderID); err != nil {
			return err
		}
	case models.PaymentStatusRejected:
		if err := w.orders.CancelOrder(ctx, event.OrderID, "payment rejected"); err != nil {
			return err
		}
	case models.PaymentStatusCancelled:
		if err := w.orders.CancelOrder(ctx, event.OrderID, "payment cancelled"); err != nil {
			return err
		}
	}

	if err := w.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		w.logger.Error("Failed to mark event processed", zap.Error(err))
	}
	return nil
}
