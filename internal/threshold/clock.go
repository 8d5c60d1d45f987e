package threshold

import "github.com/jonboulle/clockwork"

// clock supplies the evaluation date stamped onto candidates. Tests freeze it
// via SetClock to exercise day-boundary behavior.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
