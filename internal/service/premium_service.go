package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"teraboxbot/internal/plans"
)

// PremiumService owns the free/active/expired entitlement state.
type PremiumService struct {
	store   EntitlementStore
	catalog *plans.Catalog
	log     *slog.Logger
	now     func() time.Time
}

func NewPremiumService(store EntitlementStore, catalog *plans.Catalog, log *slog.Logger) *PremiumService {
	return &PremiumService{
		store:   store,
		catalog: catalog,
		log:     log,
		now:     time.Now,
	}
}

// Check reports whether the user has active premium and, if the user ever
// held a plan, when it expires or expired. A user the store has never seen,
// a store failure, and a record with an unparseable expiry all read as free.
func (s *PremiumService) Check(ctx context.Context, userID int64) (bool, *time.Time) {
	ent, err := s.store.Get(ctx, userID)
	if err != nil {
		s.log.Error("premium check failed", "user_id", userID, "err", err)
		return false, nil
	}
	expiry, ok := premiumExpiry(ent)
	if !ok {
		return false, nil
	}
	return expiry.After(s.now()), &expiry
}

// Activate grants planID to the user. An active subscription is extended from
// its current expiry, so stacked purchases accumulate; otherwise the clock
// starts now. Returns the new expiry.
func (s *PremiumService) Activate(ctx context.Context, userID int64, planID, paymentRef string) (time.Time, error) {
	plan, ok := s.catalog.Get(planID)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s", plans.ErrInvalidPlan, planID)
	}

	ent, _, err := s.store.Ensure(ctx, userID, "")
	if err != nil {
		return time.Time{}, fmt.Errorf("load entitlement: %w", err)
	}

	now := s.now()
	base := now
	if premiumActive(ent, now) {
		base, _ = premiumExpiry(ent)
	}
	expiry := base.Add(time.Duration(plan.DurationDays) * 24 * time.Hour)

	if err := s.store.SetPremium(ctx, userID, plan.ID, expiry, paymentRef); err != nil {
		return time.Time{}, fmt.Errorf("persist activation: %w", err)
	}

	s.log.Info("premium activated",
		"user_id", userID,
		"plan", plan.ID,
		"expiry", expiry.UTC().Format(time.RFC3339),
		"payment_ref", paymentRef)
	return expiry, nil
}
