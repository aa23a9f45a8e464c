package camera

import (
	"errors"
	"fmt"
	"time"

	"github.com/cjeanneret/TurnGo/internal/clock"
	"github.com/cjeanneret/TurnGo/internal/debug"
	"github.com/cjeanneret/TurnGo/internal/hw/gpio"
)

var (
	// ErrNotReady is returned when a trigger is requested while the link is
	// not FullyConnected.
	ErrNotReady = errors.New("camera not ready")
	// ErrTriggerBusy is returned when a trigger is requested while another
	// one is still held.
	ErrTriggerBusy = errors.New("camera trigger already active")
)

// Action identifies which trigger line is held.
type Action int

const (
	ActionNone Action = iota
	ActionFocus
	ActionShutter
)

func (a Action) String() string {
	switch a {
	case ActionFocus:
		return "focus"
	case ActionShutter:
		return "shutter"
	default:
		return "none"
	}
}

// Trigger drives the focus and shutter lines without blocking.
//
// Sequence of a shot, spread over several ticks by the caller:
// 1. Focus pulls FOCUS LOW, Update releases it after the focus delay
// 2. Shutter pulls SHUTTER LOW, Update releases it after the shutter delay
type Trigger struct {
	focus   *gpio.Line
	shutter *gpio.Line
	link    StatusSource

	focusMs   uint32
	shutterMs uint32

	active   Action
	start    uint32
	duration uint32
	shots    uint64
}

// NewTrigger creates a trigger gated on link and leaves both lines released.
func NewTrigger(focus, shutter *gpio.Line, link StatusSource, focusDelay, shutterDelay time.Duration) (*Trigger, error) {
	t := &Trigger{
		focus:     focus,
		shutter:   shutter,
		link:      link,
		focusMs:   clock.Millis(focusDelay),
		shutterMs: clock.Millis(shutterDelay),
	}
	if err := t.Release(); err != nil {
		return nil, err
	}
	return t, nil
}

// Focus starts an autofocus pulse.
func (t *Trigger) Focus(now uint32) error {
	return t.fire(now, ActionFocus, t.focus, t.focusMs)
}

// Shutter starts a shutter pulse.
func (t *Trigger) Shutter(now uint32) error {
	if err := t.fire(now, ActionShutter, t.shutter, t.shutterMs); err != nil {
		return err
	}
	t.shots++
	return nil
}

func (t *Trigger) fire(now uint32, action Action, line *gpio.Line, duration uint32) error {
	if st := t.link.Status(); st != FullyConnected {
		return fmt.Errorf("%s: %w (%s)", action, ErrNotReady, st)
	}
	if t.active != ActionNone {
		return fmt.Errorf("%s: %w (%s held)", action, ErrTriggerBusy, t.active)
	}
	if err := line.Drive(gpio.Low); err != nil {
		_ = line.Release()
		return err
	}
	t.active = action
	t.start = now
	t.duration = duration
	debug.Verbose("Camera: %s LOW for %dms", action, duration)
	return nil
}

// Update releases the held line once its duration has elapsed.
func (t *Trigger) Update(now uint32) {
	if t.active == ActionNone {
		return
	}
	if !clock.Reached(now, t.start, t.duration) {
		return
	}
	debug.Verbose("Camera: %s released", t.active)
	if err := t.Release(); err != nil {
		debug.Error(err)
	}
}

// Release returns both lines to pulled-up inputs and clears the active
// trigger. Both lines are attempted even if the first fails.
func (t *Trigger) Release() error {
	t.active = ActionNone
	errFocus := t.focus.Release()
	errShutter := t.shutter.Release()
	return errors.Join(errFocus, errShutter)
}

// Active returns the held trigger, ActionNone when idle.
func (t *Trigger) Active() Action { return t.active }

// Busy reports whether a trigger line is held.
func (t *Trigger) Busy() bool { return t.active != ActionNone }

// Shots returns the number of shutter pulses fired since creation.
func (t *Trigger) Shots() uint64 { return t.shots }
