package capture

import (
	"time"

	"github.com/cjeanneret/TurnGo/internal/clock"
	"github.com/cjeanneret/TurnGo/internal/present"
)

// CountdownDuration is the delay between a start request and the first
// movement, announced by one beep per second.
const CountdownDuration = 3 * time.Second

type countdown struct {
	session string
	start   uint32
	shown   int
}

func (c *countdown) begin(now uint32) {
	c.start = now
	c.shown = 0
}

// update returns the beeps and display updates due at now and reports
// whether the countdown has elapsed.
func (c *countdown) update(now uint32) ([]present.Event, bool) {
	elapsed := clock.Since(now, c.start)
	total := clock.Millis(CountdownDuration)
	if elapsed >= total {
		return []present.Event{present.ToneGo, present.Countdown{Session: c.session, Remaining: 0}}, true
	}
	remaining := int((total - elapsed + 999) / 1000)
	if remaining == c.shown {
		return nil, false
	}
	c.shown = remaining
	return []present.Event{present.ToneCountdown, present.Countdown{Session: c.session, Remaining: remaining}}, false
}
