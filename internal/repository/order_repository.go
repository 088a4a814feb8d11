package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"teraboxbot/internal/models"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// MarkApplied inserts into the applied-orders ledger if and only if the order
// id has never been applied. Returns false when the order was already there,
// which is the duplicate-reconciliation signal.
func (r *OrderRepository) MarkApplied(ctx context.Context, orderID string, userID int64, planID, paymentID string) (bool, error) {
	const query = `
INSERT IGNORE INTO applied_orders (order_id, user_id, plan_id, payment_id)
VALUES (?, ?, ?, NULLIF(?, ''))`
	res, err := r.db.ExecContext(ctx, query, orderID, userID, planID, paymentID)
	if err != nil {
		return false, fmt.Errorf("mark order applied: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("applied rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearApplied removes a ledger entry so a reconciliation whose entitlement
// update failed can be retried.
func (r *OrderRepository) ClearApplied(ctx context.Context, orderID string) error {
	const query = `DELETE FROM applied_orders WHERE order_id = ?`
	if _, err := r.db.ExecContext(ctx, query, orderID); err != nil {
		return fmt.Errorf("clear applied order: %w", err)
	}
	return nil
}

func (r *OrderRepository) RecordPayment(ctx context.Context, payment *models.Payment) error {
	const query = `
INSERT INTO payments (user_id, plan_id, order_id, payment_id, currency, amount, status, raw_payload)
VALUES (?, NULLIF(?, ''), ?, NULLIF(?, ''), ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, payment.UserID, payment.PlanID, payment.OrderID, payment.PaymentID, payment.Currency, payment.Amount, payment.Status, payment.RawPayload)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("payment last insert id: %w", err)
	}
	payment.ID = id
	return nil
}

func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, orderID, status, payload string) error {
	const query = `UPDATE payments SET status = ?, raw_payload = ?, updated_at = NOW() WHERE order_id = ?`
	if _, err := r.db.ExecContext(ctx, query, status, payload, orderID); err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	return nil
}

func (r *OrderRepository) FindPaymentByOrder(ctx context.Context, orderID string) (*models.Payment, error) {
	const query = `
SELECT id, user_id, COALESCE(plan_id, ''), order_id, COALESCE(payment_id, ''), currency, amount, status, COALESCE(raw_payload, ''), created_at, COALESCE(updated_at, created_at)
FROM payments WHERE order_id = ? LIMIT 1`
	row := r.db.QueryRowContext(ctx, query, orderID)
	var p models.Payment
	if err := row.Scan(&p.ID, &p.UserID, &p.PlanID, &p.OrderID, &p.PaymentID, &p.Currency, &p.Amount, &p.Status, &p.RawPayload, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return &p, nil
}
