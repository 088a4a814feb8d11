package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teraboxbot/internal/models"
)

func TestRemainingFreshUserGetsFullLimit(t *testing.T) {
	store := newFakeEntitlementStore()
	svc := NewQuotaService(store, &fakeAudit{}, 3, testLogger())

	left, unlimited := svc.Remaining(context.Background(), 1, "alice")
	assert.Equal(t, 3, left)
	assert.False(t, unlimited)
}

func TestRemainingDecreasesWithConsumption(t *testing.T) {
	store := newFakeEntitlementStore()
	svc := NewQuotaService(store, &fakeAudit{}, 3, testLogger())
	ctx := context.Background()

	for k := 1; k <= 3; k++ {
		count, err := svc.Consume(ctx, 1, "alice")
		require.NoError(t, err)
		assert.Equal(t, k, count)

		left, _ := svc.Remaining(ctx, 1, "alice")
		assert.Equal(t, 3-k, left)
	}

	// Over-consumption clamps at zero, never negative.
	_, err := svc.Consume(ctx, 1, "alice")
	require.NoError(t, err)
	left, _ := svc.Remaining(ctx, 1, "alice")
	assert.Equal(t, 0, left)
}

func TestRemainingUnlimitedForActivePremium(t *testing.T) {
	store := newFakeEntitlementStore()
	store.seed(&models.Entitlement{
		UserID:   1,
		Plan:     "monthly_premium",
		Expiry:   time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
		FreeUses: 99,
	})
	svc := NewQuotaService(store, &fakeAudit{}, 3, testLogger())

	_, unlimited := svc.Remaining(context.Background(), 1, "")
	assert.True(t, unlimited)
}

func TestRemainingExpiredPremiumFallsBackToQuota(t *testing.T) {
	store := newFakeEntitlementStore()
	store.seed(&models.Entitlement{
		UserID:   1,
		Plan:     "monthly_premium",
		Expiry:   time.Now().Add(-24 * time.Hour).UTC().Format(time.RFC3339),
		FreeUses: 1,
	})
	svc := NewQuotaService(store, &fakeAudit{}, 3, testLogger())

	left, unlimited := svc.Remaining(context.Background(), 1, "")
	assert.False(t, unlimited)
	assert.Equal(t, 2, left)
}

func TestRemainingFailsClosedOnStoreError(t *testing.T) {
	store := newFakeEntitlementStore()
	store.failEnsure = true
	svc := NewQuotaService(store, &fakeAudit{}, 3, testLogger())

	left, unlimited := svc.Remaining(context.Background(), 1, "")
	assert.Equal(t, 0, left)
	assert.False(t, unlimited)
}

func TestConsumeConcurrentCallsEachCount(t *testing.T) {
	store := newFakeEntitlementStore()
	svc := NewQuotaService(store, &fakeAudit{}, 3, testLogger())
	ctx := context.Background()

	_, _, err := store.Ensure(ctx, 1, "alice")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Consume(ctx, 1, "alice")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, store.get(1).FreeUses)
}

func TestConsumeErrorDeniesService(t *testing.T) {
	store := newFakeEntitlementStore()
	store.seed(&models.Entitlement{UserID: 1, Plan: models.PlanFree})
	store.failIncrement = true
	svc := NewQuotaService(store, &fakeAudit{}, 3, testLogger())

	_, err := svc.Consume(context.Background(), 1, "")
	require.Error(t, err)
	assert.Equal(t, 0, store.get(1).FreeUses)
}

func TestResetAllFree(t *testing.T) {
	store := newFakeEntitlementStore()
	store.seed(&models.Entitlement{UserID: 1, Plan: models.PlanFree, FreeUses: 3})
	store.seed(&models.Entitlement{UserID: 2, Plan: models.PlanFree, FreeUses: 1})
	store.seed(&models.Entitlement{UserID: 3, Plan: "monthly_premium", FreeUses: 2,
		Expiry: time.Now().Add(time.Hour).UTC().Format(time.RFC3339)})
	audit := &fakeAudit{}
	svc := NewQuotaService(store, audit, 3, testLogger())
	ctx := context.Background()

	reset, err := svc.ResetAllFree(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), reset)
	assert.Equal(t, 0, store.get(1).FreeUses)
	assert.Equal(t, 0, store.get(2).FreeUses)
	assert.Equal(t, 2, store.get(3).FreeUses)
	require.Len(t, audit.runs, 1)
	assert.Equal(t, int64(2), audit.runs[0])

	// Second run has nothing to do but still audits.
	reset, err = svc.ResetAllFree(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), reset)
	assert.Len(t, audit.runs, 2)
}
