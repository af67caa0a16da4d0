package service

import (
	"context"
	"testing"
	"time"

	"storefront-service/internal/gateway"
	"storefront-service/internal/models"
	"storefront-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePaymentStore struct {
	orders    map[string]*models.Order
	byPref    map[string]*models.Order
	byExtID   map[string]*models.Order
	customers map[int64]*models.Customer

	updates []paymentUpdate
}

type paymentUpdate struct {
	orderID    string
	from, to   models.PaymentStatus
	externalID string
	method     string
}

func (f *fakePaymentStore) GetOrderByID(_ context.Context, id string) (*models.Order, error) {
	if order, ok := f.orders[id]; ok {
		return order, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakePaymentStore) GetOrderByPreferenceID(_ context.Context, preferenceID string) (*models.Order, error) {
	if order, ok := f.byPref[preferenceID]; ok {
		return order, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakePaymentStore) GetOrderByPaymentExternalID(_ context.Context, externalID string) (*models.Order, error) {
	if order, ok := f.byExtID[externalID]; ok {
		return order, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakePaymentStore) GetCustomerByID(_ context.Context, id int64) (*models.Customer, error) {
	if customer, ok := f.customers[id]; ok {
		return customer, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakePaymentStore) UpdateOrderPayment(_ context.Context, orderID string, from, to models.PaymentStatus, externalID, method string) (bool, error) {
	f.updates = append(f.updates, paymentUpdate{orderID, from, to, externalID, method})
	return true, nil
}

type fakeGateway struct {
	createCalls int
	lastCreate  *gateway.CreatePaymentRequest
	payment     *gateway.Payment
	payments    map[string]*gateway.Payment
}

func (f *fakeGateway) CreatePayment(_ context.Context, req *gateway.CreatePaymentRequest) (*gateway.Payment, error) {
	f.createCalls++
	f.lastCreate = req
	return f.payment, nil
}

func (f *fakeGateway) GetPayment(_ context.Context, paymentID string) (*gateway.Payment, error) {
	if payment, ok := f.payments[paymentID]; ok {
		return payment, nil
	}
	return nil, &gateway.Error{StatusCode: 404, Message: "payment not found"}
}

type fakePublisher struct {
	events []*models.PaymentStatusChangedEvent
}

func (f *fakePublisher) PublishPaymentStatusChanged(_ context.Context, event *models.PaymentStatusChangedEvent) error {
	f.events = append(f.events, event)
	return nil
}

func newTestPaymentService(st *fakePaymentStore, gw *fakeGateway, pub *fakePublisher, cooldown time.Duration) *PaymentService {
	return &PaymentService{
		store:     st,
		gateway:   gw,
		publisher: pub,
		guard:     newSubmitGuard(cooldown),
		logger:    zap.NewNop(),
	}
}

func testOrder(id, prefID string) *models.Order {
	return &models.Order{
		ID:            id,
		CustomerID:    7,
		PreferenceID:  prefID,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		TotalAmount:   25900,
	}
}

func testRequest(prefID string) *ProcessPaymentRequest {
	return &ProcessPaymentRequest{
		FormData: &PaymentFormData{
			PaymentMethodID: "pix",
		},
		PreferenceID: prefID,
		Amount:       25900,
	}
}

func TestProcessPaymentPersistsMappedStatus(t *testing.T) {
	order := testOrder("ord-1", "pref-1")
	st := &fakePaymentStore{
		orders:    map[string]*models.Order{"ord-1": order},
		byPref:    map[string]*models.Order{"pref-1": order},
		customers: map[int64]*models.Customer{7: {ID: 7, Email: "ana@example.com", TaxID: "12345678901"}},
	}
	gw := &fakeGateway{payment: &gateway.Payment{
		ID:                "mp-123",
		Status:            "in_process",
		PaymentMethodID:   "pix",
		ExternalReference: "ord-1",
	}}
	pub := &fakePublisher{}
	ps := newTestPaymentService(st, gw, pub, time.Millisecond)

	resp, err := ps.ProcessPayment(context.Background(), testRequest("pref-1"))
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.False(t, resp.Duplicate)
	assert.Empty(t, resp.RedirectURL)
	assert.Equal(t, models.PaymentStatusProcessing, resp.Payment.Status)

	require.Len(t, st.updates, 1)
	assert.Equal(t, paymentUpdate{
		orderID:    "ord-1",
		from:       models.PaymentStatusPending,
		to:         models.PaymentStatusProcessing,
		externalID: "mp-123",
		method:     "pix",
	}, st.updates[0])

	require.Len(t, pub.events, 1)
	assert.Equal(t, models.PaymentStatusPending, pub.events[0].PreviousStatus)
	assert.Equal(t, models.PaymentStatusProcessing, pub.events[0].Status)
}

func TestProcessPaymentApprovedRedirects(t *testing.T) {
	order := testOrder("ord-1", "pref-1")
	st := &fakePaymentStore{
		orders:    map[string]*models.Order{"ord-1": order},
		byPref:    map[string]*models.Order{"pref-1": order},
		customers: map[int64]*models.Customer{7: {ID: 7, Email: "ana@example.com"}},
	}
	gw := &fakeGateway{payment: &gateway.Payment{
		ID:     "mp-200",
		Status: "approved",
	}}
	ps := newTestPaymentService(st, gw, &fakePublisher{}, time.Millisecond)

	resp, err := ps.ProcessPayment(context.Background(), testRequest("pref-1"))
	require.NoError(t, err)

	assert.Equal(t, "/checkout/sucesso/ord-1", resp.RedirectURL)
	assert.Equal(t, models.PaymentStatusApproved, resp.Payment.Status)
}

func TestProcessPaymentFallsBackToOrderID(t *testing.T) {
	// The correlation token is the order's own identifier, not a gateway
	// preference id.
	order := testOrder("ord-9", "")
	st := &fakePaymentStore{
		orders:    map[string]*models.Order{"ord-9": order},
		byPref:    map[string]*models.Order{},
		customers: map[int64]*models.Customer{7: {ID: 7, Email: "ana@example.com"}},
	}
	gw := &fakeGateway{payment: &gateway.Payment{ID: "mp-1", Status: "pending"}}
	ps := newTestPaymentService(st, gw, &fakePublisher{}, time.Millisecond)

	resp, err := ps.ProcessPayment(context.Background(), testRequest("ord-9"))
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, gw.createCalls)
}

func TestProcessPaymentValidation(t *testing.T) {
	ps := newTestPaymentService(&fakePaymentStore{}, &fakeGateway{}, &fakePublisher{}, time.Millisecond)
	ctx := context.Background()

	_, err := ps.ProcessPayment(ctx, &ProcessPaymentRequest{
		FormData: &PaymentFormData{PaymentMethodID: "pix"},
		Amount:   100,
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ps.ProcessPayment(ctx, &ProcessPaymentRequest{
		FormData:     &PaymentFormData{PaymentMethodID: "pix"},
		PreferenceID: "pref-1",
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ps.ProcessPayment(ctx, &ProcessPaymentRequest{
		PreferenceID: "pref-1",
		Amount:       100,
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestProcessPaymentDuplicateSuppressed(t *testing.T) {
	order := testOrder("ord-1", "pref-1")
	st := &fakePaymentStore{
		orders:    map[string]*models.Order{"ord-1": order},
		byPref:    map[string]*models.Order{"pref-1": order},
		customers: map[int64]*models.Customer{7: {ID: 7, Email: "ana@example.com"}},
	}
	gw := &fakeGateway{payment: &gateway.Payment{ID: "mp-1", Status: "approved"}}
	ps := newTestPaymentService(st, gw, &fakePublisher{}, time.Second)

	first, err := ps.ProcessPayment(context.Background(), testRequest("pref-1"))
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	// The widget fires its callback again within the cooldown window.
	second, err := ps.ProcessPayment(context.Background(), testRequest("pref-1"))
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.True(t, second.Duplicate)

	assert.Equal(t, 1, gw.createCalls, "duplicate must not reach the gateway")
}

func TestProcessPaymentFillsPayerFromCustomer(t *testing.T) {
	order := testOrder("ord-1", "pref-1")
	st := &fakePaymentStore{
		orders:    map[string]*models.Order{"ord-1": order},
		byPref:    map[string]*models.Order{"pref-1": order},
		customers: map[int64]*models.Customer{7: {ID: 7, Email: "ana@example.com", TaxID: "12345678901"}},
	}
	gw := &fakeGateway{payment: &gateway.Payment{ID: "mp-1", Status: "pending"}}
	ps := newTestPaymentService(st, gw, &fakePublisher{}, time.Millisecond)

	req := testRequest("pref-1")
	// Widget placeholder identification must not be forwarded.
	req.FormData.Payer.Identification.Number = "00000000000"

	_, err := ps.ProcessPayment(context.Background(), req)
	require.NoError(t, err)

	require.NotNil(t, gw.lastCreate)
	assert.Equal(t, "ana@example.com", gw.lastCreate.Payer.Email)
	require.NotNil(t, gw.lastCreate.Payer.Identification)
	assert.Equal(t, "CPF", gw.lastCreate.Payer.Identification.Type)
	assert.Equal(t, "12345678901", gw.lastCreate.Payer.Identification.Number)
	assert.Equal(t, 259.00, gw.lastCreate.TransactionAmount)
}

func TestApplyGatewayPaymentRejectsBackwardTransition(t *testing.T) {
	order := testOrder("ord-1", "pref-1")
	order.PaymentStatus = models.PaymentStatusApproved
	order.PaymentExternalID = "mp-1"
	st := &fakePaymentStore{orders: map[string]*models.Order{"ord-1": order}}
	ps := newTestPaymentService(st, &fakeGateway{}, &fakePublisher{}, time.Millisecond)

	err := ps.ApplyGatewayPayment(context.Background(), &gateway.Payment{
		ID:                "mp-1",
		Status:            "pending",
		ExternalReference: "ord-1",
	})
	assert.ErrorIs(t, err, ErrStaleTransition)
	assert.Empty(t, st.updates)
}

func TestApplyGatewayPaymentIdempotent(t *testing.T) {
	order := testOrder("ord-1", "pref-1")
	order.PaymentStatus = models.PaymentStatusApproved
	order.PaymentExternalID = "mp-1"
	st := &fakePaymentStore{orders: map[string]*models.Order{"ord-1": order}}
	ps := newTestPaymentService(st, &fakeGateway{}, &fakePublisher{}, time.Millisecond)

	err := ps.ApplyGatewayPayment(context.Background(), &gateway.Payment{
		ID:                "mp-1",
		Status:            "approved",
		ExternalReference: "ord-1",
	})
	require.NoError(t, err)
	assert.Empty(t, st.updates, "redelivered status must be a no-op")
}

func TestApplyGatewayPaymentBackfillsExternalID(t *testing.T) {
	// Same status but the payment attempt was never recorded on the order,
	// e.g. the webhook arrived before the form submission response persisted.
	order := testOrder("ord-1", "pref-1")
	st := &fakePaymentStore{orders: map[string]*models.Order{"ord-1": order}}
	pub := &fakePublisher{}
	ps := newTestPaymentService(st, &fakeGateway{}, pub, time.Millisecond)

	err := ps.ApplyGatewayPayment(context.Background(), &gateway.Payment{
		ID:                "mp-7",
		Status:            "pending",
		ExternalReference: "ord-1",
	})
	require.NoError(t, err)

	require.Len(t, st.updates, 1)
	assert.Equal(t, "mp-7", st.updates[0].externalID)
	assert.Empty(t, pub.events, "no status change, no event")
}

func TestReconcilePaymentAppliesFetchedStatus(t *testing.T) {
	order := testOrder("ord-1", "pref-1")
	order.PaymentExternalID = "mp-5"
	st := &fakePaymentStore{
		orders:  map[string]*models.Order{"ord-1": order},
		byExtID: map[string]*models.Order{"mp-5": order},
	}
	gw := &fakeGateway{payments: map[string]*gateway.Payment{
		"mp-5": {ID: "mp-5", Status: "approved", ExternalReference: "ord-1", PaymentMethodID: "pix"},
	}}
	pub := &fakePublisher{}
	ps := newTestPaymentService(st, gw, pub, time.Millisecond)

	err := ps.ReconcilePayment(context.Background(), "mp-5")
	require.NoError(t, err)

	require.Len(t, st.updates, 1)
	assert.Equal(t, models.PaymentStatusApproved, st.updates[0].to)
	require.Len(t, pub.events, 1)
	assert.Equal(t, models.PaymentStatusApproved, pub.events[0].Status)
}
