package threshold

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/IndrawanLalu/gardu-alerting-service/internal/models"
)

// Evaluate compares a batch of measurements against the given thresholds and
// returns the candidate alerts. A record may yield zero, one, or two
// candidates: load exceedance (high severity) and phase unbalance (medium
// severity) are tested independently. Absent or unparseable values arrive as
// zero and never trigger.
func Evaluate(measurements []models.MeasurementRecord, cfg models.ThresholdConfig) []models.CandidateAlert {
	today := startOfDay(clock.Now())

	var candidates []models.CandidateAlert
	for _, m := range measurements {
		load := float64(m.LoadPercentKVA)
		if !math.IsNaN(load) && load > cfg.LoadPercentage {
			candidates = append(candidates, models.CandidateAlert{
				Type:       models.AlertTypeLoad,
				EntityID:   m.EntityID,
				EntityName: m.EntityName,
				Message: fmt.Sprintf("%s exceeds %s%% kapasitas (%.2f%%)",
					m.EntityName, formatThreshold(cfg.LoadPercentage), load),
				Severity:   models.SeverityHigh,
				Value:      load,
				OccurredOn: today,
			})
		}

		unbalance := float64(m.UnbalancePercent)
		if !math.IsNaN(unbalance) && unbalance > cfg.UnbalancePercentage {
			candidates = append(candidates, models.CandidateAlert{
				Type:       models.AlertTypeUnbalance,
				EntityID:   m.EntityID,
				EntityName: m.EntityName,
				Message: fmt.Sprintf("%s has unbalance %.2f%% (> %s%%)",
					m.EntityName, unbalance, formatThreshold(cfg.UnbalancePercentage)),
				Severity:   models.SeverityMedium,
				Value:      unbalance,
				OccurredOn: today,
			})
		}
	}
	return candidates
}

// formatThreshold renders a threshold without trailing zeros, so "80" not "80.00".
func formatThreshold(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
