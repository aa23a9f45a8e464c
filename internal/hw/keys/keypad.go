package keys

import (
	"time"

	"github.com/cjeanneret/TurnGo/internal/clock"
	"github.com/cjeanneret/TurnGo/internal/debug"
	"github.com/cjeanneret/TurnGo/internal/hw/gpio"
)

// Pins maps each key to its GPIO pin (BCM).
type Pins struct {
	Cancel, Prev, Next, OK int
}

type keyState struct {
	pressed    bool
	pressStart uint32
	longFired  bool
}

// Keypad reads four GPIO keys. A long press fires once while the key is
// still held; a short press fires on release when no long press fired.
type Keypad struct {
	lines     [4]*gpio.Line
	activeLow bool
	longMs    uint32
	state     [4]keyState
}

// NewKeypad configures the key pins as inputs. With activeLow the keys
// short to ground and the internal pull-ups are enabled.
func NewKeypad(drv gpio.Driver, pins Pins, activeLow bool, longPress time.Duration) (*Keypad, error) {
	k := &Keypad{activeLow: activeLow, longMs: clock.Millis(longPress)}
	mode := gpio.Input
	if activeLow {
		mode = gpio.InputPullUp
	}
	for i, pin := range [4]int{pins.Cancel, pins.Prev, pins.Next, pins.OK} {
		k.lines[i] = gpio.NewLine(drv, All[i].String(), pin)
		if err := k.lines[i].Configure(mode); err != nil {
			return nil, err
		}
	}
	return k, nil
}

// Poll samples every key once.
func (k *Keypad) Poll(now uint32) []Event {
	var out []Event
	for i, line := range k.lines {
		level, err := line.Read()
		if err != nil {
			debug.Error(err)
			continue
		}
		pressed := level == gpio.High
		if k.activeLow {
			pressed = !pressed
		}
		if p := k.track(&k.state[i], pressed, now); p != None {
			ev := Event{Key: All[i], Press: p}
			debug.Verbose("Key: %s", ev)
			out = append(out, ev)
		}
	}
	return out
}

func (k *Keypad) track(st *keyState, pressed bool, now uint32) Press {
	switch {
	case pressed && !st.pressed:
		st.pressed = true
		st.pressStart = now
		st.longFired = false
	case pressed && !st.longFired:
		if clock.Reached(now, st.pressStart, k.longMs) {
			st.longFired = true
			return Long
		}
	case !pressed && st.pressed:
		st.pressed = false
		if !st.longFired {
			return Short
		}
	}
	return None
}
