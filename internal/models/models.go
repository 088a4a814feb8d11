package models

import "time"

// PlanFree is the default tier for every new entitlement.
const PlanFree = "free"

// Entitlement is the per-user quota and plan record, keyed by Telegram user id.
// Expiry is stored as an RFC3339 string; an empty value means the user has
// never held a premium plan.
type Entitlement struct {
	UserID          int64
	Username        string
	FreeUses        int
	Plan            string
	Expiry          string
	LastPaymentID   string
	LastPaymentDate time.Time
	CreatedAt       time.Time
	LastActive      time.Time
}

// Payment is an audit record of a gateway order, from creation to settlement.
type Payment struct {
	ID         int64
	UserID     int64
	PlanID     string
	OrderID    string
	PaymentID  string
	Currency   string
	Amount     int
	Status     string
	RawPayload string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AppliedOrder marks a gateway order whose payment has already been turned
// into an entitlement change. One row per order id, ever.
type AppliedOrder struct {
	OrderID   string
	UserID    int64
	PlanID    string
	PaymentID string
	AppliedAt time.Time
}
