// Package classify converts a surveyor's categorical clearing-time estimate
// into a numeric days-remaining value and a discrete severity tier.
//
// # Estimate vocabulary
//
// Field surveys record how long until a reported hazard (typically vegetation
// growing into a line span) becomes an outage risk, as one of five labels.
// Each label maps to a fixed numeric value, the midpoint of its bucket; the
// open-ended top bucket uses 1.5x its lower bound:
//
//	"<1 day"     -> 0.5
//	"1-5 days"   -> 3
//	"5-7 days"   -> 6
//	"7-30 days"  -> 18
//	">30 days"   -> 45
//
// The mapping is a table ([DefaultBuckets]) injected into the [Classifier], so
// operations can recalibrate values or add labels without a code change.
// Labels are matched case-insensitively after trimming whitespace.
//
// # Severity tiers
//
// Tiers derive from days remaining; boundary values resolve to the more
// severe tier:
//
//	critical    <1 day
//	urgent      <5 days
//	attention   5-7 days
//	monitoring  7-30 days
//	safe        >30 days
//
// Only the critical tier auto-escalates to the external notification channel;
// lower tiers surface in the portal only.
//
// An unrecognized label classifies as critical and logs a data-quality
// warning, so a typo in a survey record can never hide a hazard or fail the
// caller.
package classify
