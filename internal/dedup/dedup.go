// Package dedup enforces the at-most-one-alert-per-day rule: a hazard for a
// given entity and alert type is reported once per calendar day, no matter how
// many evaluation cycles observe it.
package dedup

import (
	"context"
	"time"

	"github.com/IndrawanLalu/gardu-alerting-service/internal/logging"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/models"
)

// AlertQuerier is the read capability the filter needs from the alert store.
type AlertQuerier interface {
	QueryAlerts(ctx context.Context, entityID string, alertType models.AlertType, since time.Time) ([]models.Alert, error)
}

// Deduplicator filters candidate alerts down to those not yet recorded today.
// It holds no state beyond the store it queries.
type Deduplicator struct {
	store  AlertQuerier
	logger *logging.Logger
}

func New(store AlertQuerier, logger *logging.Logger) *Deduplicator {
	return &Deduplicator{store: store, logger: logger}
}

// Filter returns the candidates with no existing alert for the same entity and
// type since the start of the candidate's day. A candidate whose existence
// check fails is dropped with a logged error; the rest of the batch proceeds.
//
// Two overlapping cycles can both pass this check for the same candidate; the
// store's unique index on (entity, type, day) absorbs that race by turning the
// second append into a no-op.
func (d *Deduplicator) Filter(ctx context.Context, candidates []models.CandidateAlert) []models.CandidateAlert {
	survivors := make([]models.CandidateAlert, 0, len(candidates))
	for _, c := range candidates {
		existing, err := d.store.QueryAlerts(ctx, c.EntityID, c.Type, startOfDay(c.OccurredOn))
		if err != nil {
			d.logger.Errorf("dedup check failed for %s/%s, dropping candidate: %v", c.EntityID, c.Type, err)
			continue
		}
		if len(existing) > 0 {
			d.logger.Debugf("duplicate suppressed for %s/%s on %s", c.EntityID, c.Type, c.OccurredOn.Format("2006-01-02"))
			continue
		}
		survivors = append(survivors, c)
	}
	return survivors
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
