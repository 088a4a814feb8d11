package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"teraboxbot/internal/models"
	"teraboxbot/internal/razorpay"
)

var errStoreDown = errors.New("store unavailable")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeEntitlementStore mirrors the repository semantics in memory.
type fakeEntitlementStore struct {
	mu    sync.Mutex
	users map[int64]*models.Entitlement

	failGet        bool
	failEnsure     bool
	failIncrement  bool
	failSetPremium bool
	setPremiumHits int
}

func newFakeEntitlementStore() *fakeEntitlementStore {
	return &fakeEntitlementStore{users: make(map[int64]*models.Entitlement)}
}

func (f *fakeEntitlementStore) Get(_ context.Context, userID int64) (*models.Entitlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet {
		return nil, errStoreDown
	}
	ent, ok := f.users[userID]
	if !ok {
		return nil, nil
	}
	copied := *ent
	return &copied, nil
}

func (f *fakeEntitlementStore) Ensure(_ context.Context, userID int64, username string) (*models.Entitlement, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEnsure {
		return nil, false, errStoreDown
	}
	if ent, ok := f.users[userID]; ok {
		copied := *ent
		return &copied, false, nil
	}
	ent := &models.Entitlement{UserID: userID, Username: username, Plan: models.PlanFree}
	f.users[userID] = ent
	copied := *ent
	return &copied, true, nil
}

func (f *fakeEntitlementStore) IncrementFreeUses(_ context.Context, userID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIncrement {
		return 0, errStoreDown
	}
	ent, ok := f.users[userID]
	if !ok {
		return 0, errors.New("entitlement not found")
	}
	ent.FreeUses++
	return ent.FreeUses, nil
}

func (f *fakeEntitlementStore) SetPremium(_ context.Context, userID int64, plan string, expiry time.Time, paymentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setPremiumHits++
	if f.failSetPremium {
		return errStoreDown
	}
	ent, ok := f.users[userID]
	if !ok {
		return errors.New("entitlement not found")
	}
	ent.Plan = plan
	ent.Expiry = expiry.UTC().Format(time.RFC3339)
	ent.LastPaymentID = paymentID
	return nil
}

func (f *fakeEntitlementStore) ResetFreeUses(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var reset int64
	for _, ent := range f.users {
		if ent.Plan == models.PlanFree && ent.FreeUses > 0 {
			ent.FreeUses = 0
			reset++
		}
	}
	return reset, nil
}

// seed installs a user directly, bypassing Ensure.
func (f *fakeEntitlementStore) seed(ent *models.Entitlement) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *ent
	f.users[ent.UserID] = &copied
}

func (f *fakeEntitlementStore) get(userID int64) models.Entitlement {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.users[userID]
}

type fakeLedger struct {
	mu       sync.Mutex
	applied  map[string]bool
	payments []*models.Payment
	statuses map[string]string

	failMark  bool
	failClear bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{applied: make(map[string]bool), statuses: make(map[string]string)}
}

func (f *fakeLedger) MarkApplied(_ context.Context, orderID string, _ int64, _, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMark {
		return false, errStoreDown
	}
	if f.applied[orderID] {
		return false, nil
	}
	f.applied[orderID] = true
	return true, nil
}

func (f *fakeLedger) ClearApplied(_ context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failClear {
		return errStoreDown
	}
	delete(f.applied, orderID)
	return nil
}

func (f *fakeLedger) RecordPayment(_ context.Context, payment *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	payment.ID = int64(len(f.payments) + 1)
	f.payments = append(f.payments, payment)
	return nil
}

func (f *fakeLedger) UpdatePaymentStatus(_ context.Context, orderID, status, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[orderID] = status
	return nil
}

type fakeAudit struct {
	mu   sync.Mutex
	runs []int64
}

func (f *fakeAudit) LogDailyReset(_ context.Context, usersReset int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, usersReset)
	return nil
}

type fakeGateway struct {
	mu       sync.Mutex
	requests []razorpay.OrderRequest
	orders   map[string]*razorpay.Order
	payments map[string]*razorpay.Payment
	failNext bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		orders:   make(map[string]*razorpay.Order),
		payments: make(map[string]*razorpay.Payment),
	}
}

func (f *fakeGateway) CreateOrder(_ context.Context, req razorpay.OrderRequest) (*razorpay.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		return nil, errors.New("gateway unavailable")
	}
	f.requests = append(f.requests, req)
	order := &razorpay.Order{
		ID:       "order_" + req.Receipt,
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   razorpay.OrderStatusCreated,
		Notes:    req.Notes,
	}
	f.orders[order.ID] = order
	return order, nil
}

func (f *fakeGateway) FetchOrder(_ context.Context, orderID string) (*razorpay.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return nil, errors.New("order not found")
	}
	return order, nil
}

func (f *fakeGateway) FetchPayment(_ context.Context, paymentID string) (*razorpay.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if payment, ok := f.payments[paymentID]; ok {
		return payment, nil
	}
	return &razorpay.Payment{ID: paymentID, Status: "captured"}, nil
}

func (f *fakeGateway) seedPayment(payment *razorpay.Payment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments[payment.ID] = payment
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) Notify(_ context.Context, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
}
