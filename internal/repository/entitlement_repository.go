package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"teraboxbot/internal/models"
)

type EntitlementRepository struct {
	db *sql.DB
}

func NewEntitlementRepository(db *sql.DB) *EntitlementRepository {
	return &EntitlementRepository{db: db}
}

func (r *EntitlementRepository) DB() *sql.DB {
	return r.db
}

func (r *EntitlementRepository) Get(ctx context.Context, userID int64) (*models.Entitlement, error) {
	const query = `
SELECT user_id, COALESCE(username, ''), free_uses, plan, COALESCE(expiry, ''), COALESCE(last_payment_id, ''), last_payment_date, created_at, last_active
FROM users WHERE user_id = ?`
	row := r.db.QueryRowContext(ctx, query, userID)
	var e models.Entitlement
	var lastPayment sql.NullTime
	if err := row.Scan(&e.UserID, &e.Username, &e.FreeUses, &e.Plan, &e.Expiry, &e.LastPaymentID, &lastPayment, &e.CreatedAt, &e.LastActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan entitlement: %w", err)
	}
	if lastPayment.Valid {
		e.LastPaymentDate = lastPayment.Time
	}
	return &e, nil
}

func (r *EntitlementRepository) Create(ctx context.Context, userID int64, username string) (*models.Entitlement, error) {
	const query = `
INSERT INTO users (user_id, username, free_uses, plan)
VALUES (?, NULLIF(?, ''), 0, ?)`
	if _, err := r.db.ExecContext(ctx, query, userID, username, models.PlanFree); err != nil {
		return nil, fmt.Errorf("insert entitlement: %w", err)
	}
	return &models.Entitlement{
		UserID:   userID,
		Username: username,
		Plan:     models.PlanFree,
	}, nil
}

// Ensure loads the entitlement, creating a default free-tier record when the
// user has never been seen. The bool reports whether a record was created.
func (r *EntitlementRepository) Ensure(ctx context.Context, userID int64, username string) (*models.Entitlement, bool, error) {
	existing, err := r.Get(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	created, err := r.Create(ctx, userID, username)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// IncrementFreeUses bumps the counter as a single server-side increment and
// returns the resulting count. The row stays locked between the update and
// the read, so two concurrent calls can never observe the same value.
func (r *EntitlementRepository) IncrementFreeUses(ctx context.Context, userID int64) (int, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE users SET free_uses = free_uses + 1, last_active = NOW() WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("increment free uses: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("increment rows affected: %w", err)
	}
	if affected == 0 {
		return 0, fmt.Errorf("entitlement not found for user %d", userID)
	}

	var count int
	row := tx.QueryRowContext(ctx, `SELECT free_uses FROM users WHERE user_id = ?`, userID)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("read free uses: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit free uses: %w", err)
	}
	return count, nil
}

// SetPremium applies a plan activation as a partial update; counters and
// lifecycle fields outside the premium block are untouched.
func (r *EntitlementRepository) SetPremium(ctx context.Context, userID int64, plan string, expiry time.Time, paymentID string) error {
	const query = `
UPDATE users
SET plan = ?, expiry = ?, last_payment_id = NULLIF(?, ''), last_payment_date = NOW(), last_active = NOW()
WHERE user_id = ?`
	res, err := r.db.ExecContext(ctx, query, plan, expiry.UTC().Format(time.RFC3339), paymentID, userID)
	if err != nil {
		return fmt.Errorf("set premium: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set premium rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("entitlement not found for user %d", userID)
	}
	return nil
}

// ResetFreeUses zeroes the counter for every free-plan user and reports how
// many rows actually changed. Running it twice in a row resets nothing the
// second time.
func (r *EntitlementRepository) ResetFreeUses(ctx context.Context) (int64, error) {
	const query = `UPDATE users SET free_uses = 0 WHERE plan = ? AND free_uses > 0`
	res, err := r.db.ExecContext(ctx, query, models.PlanFree)
	if err != nil {
		return 0, fmt.Errorf("reset free uses: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset rows affected: %w", err)
	}
	return affected, nil
}

func (r *EntitlementRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	const query = `SELECT user_id FROM users`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
