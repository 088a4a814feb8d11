package repository

import (
	"context"
	"database/sql"
	"fmt"
)

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// LogDailyReset records one audit row per reset run.
func (r *AuditRepository) LogDailyReset(ctx context.Context, usersReset int64) error {
	const query = `INSERT INTO audit_logs (type, users_reset) VALUES ('daily_reset', ?)`
	if _, err := r.db.ExecContext(ctx, query, usersReset); err != nil {
		return fmt.Errorf("insert daily reset audit: %w", err)
	}
	return nil
}
