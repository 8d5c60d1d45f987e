package models

import (
	"bytes"
	"strconv"
	"time"
)

// AlertType identifies which threshold condition produced an alert.
type AlertType string

const (
	AlertTypeLoad      AlertType = "load"
	AlertTypeUnbalance AlertType = "unbalance"
)

// Severity is the fixed severity attached to a threshold condition.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// MetricValue is a float64 that tolerates the measurement feed's loose typing:
// JSON numbers, numeric strings, empty strings and null all decode without error.
// Anything unparseable decodes to 0 so that absent data never raises an alert.
type MetricValue float64

func (v *MetricValue) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || string(data) == "null" {
		*v = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		*v = 0
		return nil
	}
	*v = MetricValue(f)
	return nil
}

// MeasurementRecord is one reading for a monitored substation, supplied per
// evaluation call. The engine never stores these.
type MeasurementRecord struct {
	EntityID         string      `json:"entity_id"`
	EntityName       string      `json:"entity_name"`
	LoadPercentKVA   MetricValue `json:"load_percent_kva"`
	UnbalancePercent MetricValue `json:"unbalance_percent"`
}

// CandidateAlert is a threshold crossing that has not been deduplicated yet.
// It is either discarded as a duplicate or promoted to a persisted Alert.
type CandidateAlert struct {
	Type       AlertType `json:"type"`
	EntityID   string    `json:"entity_id"`
	EntityName string    `json:"entity_name"`
	Message    string    `json:"message"`
	Severity   Severity  `json:"severity"`
	Value      float64   `json:"value"`
	OccurredOn time.Time `json:"occurred_on"` // day granularity, dedup key
}

// Alert is a persisted alert record. After creation only IsRead is ever mutated.
type Alert struct {
	ID         string    `json:"id"`
	Type       AlertType `json:"type"`
	EntityID   string    `json:"entity_id"`
	EntityName string    `json:"entity_name"`
	Message    string    `json:"message"`
	Severity   Severity  `json:"severity"`
	Value      float64   `json:"value"`
	IsRead     bool      `json:"is_read"`
	OccurredOn time.Time `json:"occurred_on"`
	CreatedAt  time.Time `json:"created_at"`
}
