package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mas-api/internal/models"
)

// ActivityLogRepository is the append-only MAS ledger store.
type ActivityLogRepository struct {
	db *sqlx.DB
}

// NewActivityLogRepository constructs the repository.
func NewActivityLogRepository(db *sqlx.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

// Append inserts one entry on exec (the caller's transaction).
func (r *ActivityLogRepository) Append(ctx context.Context, exec sqlx.ExtContext, entry *models.ActivityLog) error {
	if exec == nil {
		exec = r.db
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	const query = `INSERT INTO mas_activity_logs
	(id, mas_row_id, action, user_id, username, timestamp, details, project_name, building_name, service_name, item_name, make, status)
	VALUES (:id, :mas_row_id, :action, :user_id, :username, :timestamp, :details, :project_name, :building_name, :service_name, :item_name, :make, :status)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, entry); err != nil {
		return fmt.Errorf("append activity log: %w", err)
	}
	return nil
}

// ListByChain returns every entry of a mas_id chain in timestamp order.
func (r *ActivityLogRepository) ListByChain(ctx context.Context, masID string) ([]models.ActivityLog, error) {
	const query = `SELECT l.id, l.seq, l.mas_row_id, l.action, l.user_id, l.username, l.timestamp, l.details,
	l.project_name, l.building_name, l.service_name, l.item_name, l.make, l.status, m.revision
FROM mas_activity_logs l
JOIN mas m ON m.id = l.mas_row_id
WHERE m.mas_id = $1
ORDER BY l.timestamp ASC, l.seq ASC`
	var entries []models.ActivityLog
	if err := sqlx.SelectContext(ctx, r.db, &entries, query, masID); err != nil {
		return nil, fmt.Errorf("list activity logs: %w", err)
	}
	return entries, nil
}
