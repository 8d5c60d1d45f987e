package models

import "time"

// SeverityTier is the discrete urgency bucket derived from days remaining.
// Higher values are more severe; fewer days remaining never lowers the tier.
type SeverityTier int

const (
	TierSafe SeverityTier = iota
	TierMonitoring
	TierAttention
	TierUrgent
	TierCritical
)

var tierNames = map[SeverityTier]string{
	TierSafe:       "safe",
	TierMonitoring: "monitoring",
	TierAttention:  "attention",
	TierUrgent:     "urgent",
	TierCritical:   "critical",
}

func (t SeverityTier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON renders the tier as its name rather than the ordinal.
func (t SeverityTier) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// HazardEntity is a field-reported threat (typically vegetation encroaching a
// line) carrying the surveyor's categorical clearing-time estimate.
type HazardEntity struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Location   string    `json:"location,omitempty"`
	Estimate   string    `json:"estimate" binding:"required"`
	ReportedAt time.Time `json:"reported_at"`
}

// RiskAssessment is the Classifier's normalized view of a hazard. Derived on
// demand, never persisted.
type RiskAssessment struct {
	DaysRemaining    float64      `json:"days_remaining"`
	Tier             SeverityTier `json:"severity_tier"`
	NeedsAction      bool         `json:"needs_action"`
	IsUrgent         bool         `json:"is_urgent"`
	IsCritical       bool         `json:"is_critical"`
	ShouldTriggerBot bool         `json:"should_trigger_bot"`
	DisplayText      string       `json:"display_text"`
	FullDisplayText  string       `json:"full_display_text"`
}

// EntityAssessment pairs a hazard with its current assessment, for the
// needing-action listing exposed to the portal.
type EntityAssessment struct {
	Entity     HazardEntity   `json:"entity"`
	Assessment RiskAssessment `json:"assessment"`
}
