package models

// ThresholdConfig holds the danger thresholds measurements are evaluated
// against. Persisted externally, read at the start of every evaluation cycle.
type ThresholdConfig struct {
	LoadPercentage      float64 `json:"load_percentage"`
	UnbalancePercentage float64 `json:"unbalance_percentage"`
}

// ThresholdUpdate is a partial update; nil fields keep the previous value.
// Both resulting fields are published atomically.
type ThresholdUpdate struct {
	LoadPercentage      *float64 `json:"load_percentage,omitempty"`
	UnbalancePercentage *float64 `json:"unbalance_percentage,omitempty"`
}

// Apply merges the update onto cfg and returns the result.
func (u ThresholdUpdate) Apply(cfg ThresholdConfig) ThresholdConfig {
	if u.LoadPercentage != nil {
		cfg.LoadPercentage = *u.LoadPercentage
	}
	if u.UnbalancePercentage != nil {
		cfg.UnbalancePercentage = *u.UnbalancePercentage
	}
	return cfg
}
