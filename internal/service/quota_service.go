package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// QuotaService enforces the daily free-download allowance.
type QuotaService struct {
	store EntitlementStore
	audit AuditStore
	limit int
	log   *slog.Logger
	now   func() time.Time
}

func NewQuotaService(store EntitlementStore, audit AuditStore, limit int, log *slog.Logger) *QuotaService {
	if limit <= 0 {
		limit = 3
	}
	return &QuotaService{
		store: store,
		audit: audit,
		limit: limit,
		log:   log,
		now:   time.Now,
	}
}

func (s *QuotaService) Limit() int {
	return s.limit
}

// Remaining reports how many free downloads the user has left and whether the
// user is unlimited (active premium). A store failure counts as zero left:
// when the quota cannot be read, service is denied rather than given away.
func (s *QuotaService) Remaining(ctx context.Context, userID int64, username string) (int, bool) {
	ent, created, err := s.store.Ensure(ctx, userID, username)
	if err != nil {
		s.log.Error("quota read failed", "user_id", userID, "err", err)
		return 0, false
	}
	if created {
		return s.limit, false
	}
	if premiumActive(ent, s.now()) {
		return 0, true
	}
	left := s.limit - ent.FreeUses
	if left < 0 {
		left = 0
	}
	return left, false
}

// Consume burns one free use and returns the new count. The increment happens
// server-side, so concurrent calls each get a distinct count. An error means
// the use was not recorded and the download must be refused.
func (s *QuotaService) Consume(ctx context.Context, userID int64, username string) (int, error) {
	if _, _, err := s.store.Ensure(ctx, userID, username); err != nil {
		return 0, fmt.Errorf("ensure entitlement: %w", err)
	}
	count, err := s.store.IncrementFreeUses(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("consume free use: %w", err)
	}
	return count, nil
}

// ResetAllFree zeroes the counters of every free-plan user and writes one
// audit record for the run. Safe to invoke repeatedly.
func (s *QuotaService) ResetAllFree(ctx context.Context) (int64, error) {
	reset, err := s.store.ResetFreeUses(ctx)
	if err != nil {
		return 0, fmt.Errorf("reset free uses: %w", err)
	}
	if err := s.audit.LogDailyReset(ctx, reset); err != nil {
		s.log.Error("daily reset audit write failed", "users_reset", reset, "err", err)
	}
	s.log.Info("daily quota reset", "users_reset", reset)
	return reset, nil
}
