package classify

import (
	"fmt"
	"strings"

	"github.com/IndrawanLalu/gardu-alerting-service/internal/logging"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/models"
)

// Bucket maps one estimate label to its numeric days-remaining value.
type Bucket struct {
	Label string
	Days  float64
}

// DefaultBuckets is the standard estimate vocabulary. See the package doc for
// how the values were chosen.
var DefaultBuckets = []Bucket{
	{Label: "<1 day", Days: 0.5},
	{Label: "1-5 days", Days: 3},
	{Label: "5-7 days", Days: 6},
	{Label: "7-30 days", Days: 18},
	{Label: ">30 days", Days: 45},
}

// Boundaries holds the tier cutoffs in days. Values on a boundary resolve to
// the more severe tier.
type Boundaries struct {
	CriticalBelow float64 // tier critical when days < this
	UrgentBelow   float64 // tier urgent when days < this
	AttentionMax  float64 // tier attention when days <= this
	MonitoringMax float64 // tier monitoring when days <= this; above is safe
}

// DefaultBoundaries matches the bucket vocabulary above.
var DefaultBoundaries = Boundaries{
	CriticalBelow: 1,
	UrgentBelow:   5,
	AttentionMax:  7,
	MonitoringMax: 30,
}

// Classifier maps categorical hazard estimates to risk assessments. It does
// no I/O; the logger is only used for data-quality warnings on unknown labels.
type Classifier struct {
	buckets    map[string]float64
	boundaries Boundaries
	logger     *logging.Logger
}

// New constructs a Classifier. Nil buckets or zero boundaries fall back to the
// defaults.
func New(buckets []Bucket, boundaries Boundaries, logger *logging.Logger) *Classifier {
	if len(buckets) == 0 {
		buckets = DefaultBuckets
	}
	if boundaries == (Boundaries{}) {
		boundaries = DefaultBoundaries
	}
	m := make(map[string]float64, len(buckets))
	for _, b := range buckets {
		m[normalizeLabel(b.Label)] = b.Days
	}
	return &Classifier{buckets: m, boundaries: boundaries, logger: logger}
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), " "))
}

// Classify maps a categorical estimate label to a RiskAssessment. Severity
// fields depend only on the label; the display text carries the current
// reference time. An unrecognized label classifies as critical.
func (c *Classifier) Classify(label string) models.RiskAssessment {
	days, ok := c.buckets[normalizeLabel(label)]
	if !ok {
		c.logger.Warnf("unknown hazard estimate %q, classifying as critical", label)
		return c.ClassifyDays(0)
	}
	return c.ClassifyDays(days)
}

// ClassifyDays maps a numeric days-remaining value to a RiskAssessment.
func (c *Classifier) ClassifyDays(days float64) models.RiskAssessment {
	tier := c.tierFor(days)
	a := models.RiskAssessment{
		DaysRemaining:    days,
		Tier:             tier,
		NeedsAction:      tier >= models.TierAttention,
		IsUrgent:         tier >= models.TierUrgent,
		IsCritical:       tier == models.TierCritical,
		ShouldTriggerBot: tier == models.TierCritical,
	}
	a.DisplayText = displayText(days)
	a.FullDisplayText = fmt.Sprintf("%s (tier %s, as of %s)",
		a.DisplayText, tier, clock.Now().Format("2006-01-02 15:04"))
	return a
}

// Assess classifies a hazard entity. The tier comes from the label alone; the
// numeric days remaining is adjusted for time elapsed since the estimate was
// recorded, so repeated calls on an aging report count down.
func (c *Classifier) Assess(entity models.HazardEntity) models.RiskAssessment {
	a := c.Classify(entity.Estimate)
	if !entity.ReportedAt.IsZero() {
		elapsed := clock.Now().Sub(entity.ReportedAt).Hours() / 24
		if elapsed > 0 {
			a.DaysRemaining -= elapsed
			if a.DaysRemaining < 0 {
				a.DaysRemaining = 0
			}
			a.DisplayText = displayText(a.DaysRemaining)
			a.FullDisplayText = fmt.Sprintf("%s (tier %s, as of %s)",
				a.DisplayText, a.Tier, clock.Now().Format("2006-01-02 15:04"))
		}
	}
	return a
}

func (c *Classifier) tierFor(days float64) models.SeverityTier {
	b := c.boundaries
	switch {
	case days < b.CriticalBelow:
		return models.TierCritical
	case days < b.UrgentBelow:
		return models.TierUrgent
	case days <= b.AttentionMax:
		return models.TierAttention
	case days <= b.MonitoringMax:
		return models.TierMonitoring
	default:
		return models.TierSafe
	}
}

func displayText(days float64) string {
	switch {
	case days <= 0:
		return "estimated time exhausted"
	case days < 1:
		return fmt.Sprintf("under %d hours remaining", int(days*24)+1)
	default:
		return fmt.Sprintf("about %.0f days remaining", days)
	}
}
