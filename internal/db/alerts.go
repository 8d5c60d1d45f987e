package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/IndrawanLalu/gardu-alerting-service/internal/models"
)

const alertColumns = `id, alert_type, entity_id, entity_name, message, severity, value, is_read, occurred_on, created_at`

// AppendAlert promotes a candidate to a persisted alert. The unique index on
// (entity_id, alert_type, occurred_on) turns a same-day duplicate into a
// no-op; the returned bool reports whether a row was actually inserted.
func (d *DB) AppendAlert(ctx context.Context, c models.CandidateAlert) (models.Alert, bool, error) {
	alert := models.Alert{
		ID:         uuid.New().String(),
		Type:       c.Type,
		EntityID:   c.EntityID,
		EntityName: c.EntityName,
		Message:    c.Message,
		Severity:   c.Severity,
		Value:      c.Value,
		OccurredOn: c.OccurredOn,
		CreatedAt:  time.Now(),
	}

	query := `
    INSERT INTO alerts (` + alertColumns + `)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    ON CONFLICT (entity_id, alert_type, occurred_on) DO NOTHING`

	tag, err := d.Pool.Exec(ctx, query,
		alert.ID,
		alert.Type,
		alert.EntityID,
		alert.EntityName,
		alert.Message,
		alert.Severity,
		alert.Value,
		alert.IsRead,
		alert.OccurredOn,
		alert.CreatedAt,
	)
	if err != nil {
		return models.Alert{}, false, fmt.Errorf("failed to insert alert: %w", err)
	}
	return alert, tag.RowsAffected() > 0, nil
}

// QueryAlerts fetches alerts for an entity and type created at or after since.
func (d *DB) QueryAlerts(ctx context.Context, entityID string, alertType models.AlertType, since time.Time) ([]models.Alert, error) {
	query := `
    SELECT ` + alertColumns + `
    FROM alerts
    WHERE entity_id = $1 AND alert_type = $2 AND created_at >= $3
    ORDER BY created_at DESC`

	rows, err := d.Pool.Query(ctx, query, entityID, alertType, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// ListRecent returns the newest alerts, optionally only unread ones.
func (d *DB) ListRecent(ctx context.Context, limit int, unreadOnly bool) ([]models.Alert, error) {
	query := `
    SELECT ` + alertColumns + `
    FROM alerts`
	if unreadOnly {
		query += ` WHERE is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $1`

	rows, err := d.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// SetRead flips a single alert's read flag.
func (d *DB) SetRead(ctx context.Context, alertID string, isRead bool) error {
	tag, err := d.Pool.Exec(ctx, `UPDATE alerts SET is_read = $1 WHERE id = $2`, isRead, alertID)
	if err != nil {
		return fmt.Errorf("failed to update alert %s: %w", alertID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no alert found with id %s", alertID)
	}
	return nil
}

// SetReadBatch marks the given alerts read in one statement.
func (d *DB) SetReadBatch(ctx context.Context, alertIDs []string) error {
	if len(alertIDs) == 0 {
		return nil
	}
	_, err := d.Pool.Exec(ctx, `UPDATE alerts SET is_read = TRUE WHERE id = ANY($1)`, alertIDs)
	if err != nil {
		return fmt.Errorf("failed to batch-update alerts: %w", err)
	}
	return nil
}

// MarkAllRead flips every unread alert and returns how many changed.
func (d *DB) MarkAllRead(ctx context.Context) (int64, error) {
	tag, err := d.Pool.Exec(ctx, `UPDATE alerts SET is_read = TRUE WHERE is_read = FALSE`)
	if err != nil {
		return 0, fmt.Errorf("failed to mark alerts read: %w", err)
	}
	return tag.RowsAffected(), nil
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanAlerts(rows pgxRows) ([]models.Alert, error) {
	var list []models.Alert
	for rows.Next() {
		var a models.Alert
		var id pgtype.UUID
		err := rows.Scan(
			&id,
			&a.Type,
			&a.EntityID,
			&a.EntityName,
			&a.Message,
			&a.Severity,
			&a.Value,
			&a.IsRead,
			&a.OccurredOn,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.ID = uuid.UUID(id.Bytes).String()
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading alert rows: %w", err)
	}
	return list, nil
}
