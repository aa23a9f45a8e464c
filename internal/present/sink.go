package present

import (
	"sync"

	"github.com/cjeanneret/TurnGo/internal/debug"
)

// Sink renders events. Present is called from the poll loop and must not
// block.
type Sink interface {
	Present(ev Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Present(ev Event) { f(ev) }

// Multi fans every event out to each sink in order.
type Multi []Sink

func (m Multi) Present(ev Event) {
	for _, s := range m {
		s.Present(ev)
	}
}

// LogSink writes events to the debug log. Tones and progress go to the
// live level, screens to verbose.
type LogSink struct{}

func (LogSink) Present(ev Event) {
	switch e := ev.(type) {
	case Tone:
		debug.Trace("Beep %s", e)
	case Countdown:
		debug.Live("%s starts in %d", e.Session, e.Remaining)
	case PhotoProgress:
		debug.Live("Photo session: %s", e)
	case ScanProgress:
		debug.Live("Scan: %s", e)
	case Banner:
		debug.Info("%s", e.Text)
	case Screen:
		debug.Verbose("Screen: %+v", e)
	}
}

// Recorder keeps every event it receives. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Present(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Tones returns the recorded tones in order.
func (r *Recorder) Tones() []Tone {
	var out []Tone
	for _, ev := range r.Events() {
		if t, ok := ev.(Tone); ok {
			out = append(out, t)
		}
	}
	return out
}

// Reset forgets all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
