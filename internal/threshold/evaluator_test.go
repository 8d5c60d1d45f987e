package threshold_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IndrawanLalu/gardu-alerting-service/internal/models"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/threshold"
)

var testConfig = models.ThresholdConfig{
	LoadPercentage:      80,
	UnbalancePercentage: 20,
}

func TestEvaluate_LoadExceedance(t *testing.T) {
	records := []models.MeasurementRecord{
		{EntityID: "gd-001", EntityName: "GarduA", LoadPercentKVA: 85.5, UnbalancePercent: 10},
	}

	candidates := threshold.Evaluate(records, testConfig)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, models.AlertTypeLoad, c.Type)
	assert.Equal(t, models.SeverityHigh, c.Severity)
	assert.Equal(t, "gd-001", c.EntityID)
	assert.Equal(t, 85.5, c.Value)
	assert.Equal(t, "GarduA exceeds 80% kapasitas (85.50%)", c.Message)
}

func TestEvaluate_UnbalanceExceedance(t *testing.T) {
	records := []models.MeasurementRecord{
		{EntityID: "gd-002", EntityName: "GarduB", LoadPercentKVA: 50, UnbalancePercent: 25.333},
	}

	candidates := threshold.Evaluate(records, testConfig)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, models.AlertTypeUnbalance, c.Type)
	assert.Equal(t, models.SeverityMedium, c.Severity)
	assert.Equal(t, "GarduB has unbalance 25.33% (> 20%)", c.Message)
}

func TestEvaluate_BothConditionsOneRecord(t *testing.T) {
	records := []models.MeasurementRecord{
		{EntityID: "gd-003", EntityName: "GarduC", LoadPercentKVA: 95, UnbalancePercent: 30},
	}

	candidates := threshold.Evaluate(records, testConfig)
	require.Len(t, candidates, 2)
	assert.Equal(t, models.AlertTypeLoad, candidates[0].Type)
	assert.Equal(t, models.AlertTypeUnbalance, candidates[1].Type)
}

func TestEvaluate_BelowThresholdIsQuiet(t *testing.T) {
	records := []models.MeasurementRecord{
		{EntityID: "gd-004", EntityName: "GarduD", LoadPercentKVA: 80, UnbalancePercent: 20}, // at, not above
		{EntityID: "gd-005", EntityName: "GarduE", LoadPercentKVA: 12.5, UnbalancePercent: 3},
	}

	assert.Empty(t, threshold.Evaluate(records, testConfig))
}

func TestEvaluate_RaisedThresholdSilencesReading(t *testing.T) {
	records := []models.MeasurementRecord{
		{EntityID: "gd-001", EntityName: "GarduA", LoadPercentKVA: 85.5},
	}

	raised := models.ThresholdConfig{LoadPercentage: 90, UnbalancePercentage: 20}
	assert.Empty(t, threshold.Evaluate(records, raised))
}

func TestEvaluate_MissingDataIsInert(t *testing.T) {
	// The feed delivers loose JSON; absent and garbage values must decode to
	// zero and never alert.
	payload := `[
		{"entity_id":"gd-010","entity_name":"GarduX"},
		{"entity_id":"gd-011","entity_name":"GarduY","load_percent_kva":"","unbalance_percent":null},
		{"entity_id":"gd-012","entity_name":"GarduZ","load_percent_kva":"not-a-number","unbalance_percent":"n/a"}
	]`

	var records []models.MeasurementRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &records))
	require.Len(t, records, 3)

	assert.Empty(t, threshold.Evaluate(records, testConfig))
}

func TestEvaluate_NumericStringsStillTrigger(t *testing.T) {
	payload := `[{"entity_id":"gd-020","entity_name":"GarduN","load_percent_kva":"91.2"}]`

	var records []models.MeasurementRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &records))

	candidates := threshold.Evaluate(records, testConfig)
	require.Len(t, candidates, 1)
	assert.Equal(t, 91.2, candidates[0].Value)
}

func TestEvaluate_OccurredOnIsEvaluationDay(t *testing.T) {
	now := time.Date(2026, 3, 10, 16, 45, 12, 0, time.UTC)
	threshold.SetClock(clockwork.NewFakeClockAt(now))
	defer threshold.SetClock(nil)

	records := []models.MeasurementRecord{
		{EntityID: "gd-001", EntityName: "GarduA", LoadPercentKVA: 99},
	}

	candidates := threshold.Evaluate(records, testConfig)
	require.Len(t, candidates, 1)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), candidates[0].OccurredOn)
}
