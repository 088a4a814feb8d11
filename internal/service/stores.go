package service

import (
	"context"
	"time"

	"teraboxbot/internal/models"
	"teraboxbot/internal/razorpay"
)

// EntitlementStore is what the quota and premium services need from the
// database layer. *repository.EntitlementRepository satisfies it.
type EntitlementStore interface {
	Get(ctx context.Context, userID int64) (*models.Entitlement, error)
	Ensure(ctx context.Context, userID int64, username string) (*models.Entitlement, bool, error)
	IncrementFreeUses(ctx context.Context, userID int64) (int, error)
	SetPremium(ctx context.Context, userID int64, plan string, expiry time.Time, paymentID string) error
	ResetFreeUses(ctx context.Context) (int64, error)
}

// OrderLedger is the payment audit trail plus the applied-orders ledger.
// *repository.OrderRepository satisfies it.
type OrderLedger interface {
	MarkApplied(ctx context.Context, orderID string, userID int64, planID, paymentID string) (bool, error)
	ClearApplied(ctx context.Context, orderID string) error
	RecordPayment(ctx context.Context, payment *models.Payment) error
	UpdatePaymentStatus(ctx context.Context, orderID, status, payload string) error
}

type AuditStore interface {
	LogDailyReset(ctx context.Context, usersReset int64) error
}

// Gateway abstracts the payment gateway client for tests.
type Gateway interface {
	CreateOrder(ctx context.Context, req razorpay.OrderRequest) (*razorpay.Order, error)
	FetchOrder(ctx context.Context, orderID string) (*razorpay.Order, error)
	FetchPayment(ctx context.Context, paymentID string) (*razorpay.Payment, error)
}

// Notifier delivers out-of-band alerts to the operator chat.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// premiumExpiry parses the stored expiry. A user who never paid has an empty
// expiry; a malformed one is treated the same so a bad write can never grant
// access.
func premiumExpiry(ent *models.Entitlement) (time.Time, bool) {
	if ent == nil || ent.Plan == models.PlanFree || ent.Expiry == "" {
		return time.Time{}, false
	}
	expiry, err := time.Parse(time.RFC3339, ent.Expiry)
	if err != nil {
		return time.Time{}, false
	}
	return expiry, true
}

// premiumActive reports whether the entitlement grants premium right now.
func premiumActive(ent *models.Entitlement, now time.Time) bool {
	expiry, ok := premiumExpiry(ent)
	return ok && expiry.After(now)
}
