package mode

import (
	"github.com/cjeanneret/TurnGo/internal/config"
	"github.com/cjeanneret/TurnGo/internal/debug"
	"github.com/cjeanneret/TurnGo/internal/hw/camera"
	"github.com/cjeanneret/TurnGo/internal/hw/keys"
	"github.com/cjeanneret/TurnGo/internal/present"
)

// Session is a startable orchestrator. *capture.Photo and *capture.Scan
// implement it.
type Session interface {
	Start(now uint32, settings config.MotionConfig) ([]present.Event, error)
	Stop(now uint32) []present.Event
	Running() bool
}

// SettingsStore holds the user-editable motion settings.
// *config.FileStore implements it.
type SettingsStore interface {
	Motion() config.MotionConfig
	SaveMotion(config.MotionConfig) error
}

// Options tune the dispatcher.
type Options struct {
	// AbortOnCameraLost stops a photo session as soon as the link drops
	// below FullyConnected.
	AbortOnCameraLost bool
	// OnTransition is called after every mode change.
	OnTransition func(from, to Mode)
}

// Dispatcher owns the top-level mode. Update must be called every tick
// after the link and the sessions have been updated.
type Dispatcher struct {
	link  camera.StatusSource
	photo Session
	scan  Session
	store SettingsStore
	opts  Options

	mode   Mode
	item   Item
	draft  config.MotionConfig
	screen present.Screen
}

// New creates a dispatcher in Standby.
func New(link camera.StatusSource, photo, scan Session, store SettingsStore, opts Options) *Dispatcher {
	return &Dispatcher{
		link:  link,
		photo: photo,
		scan:  scan,
		store: store,
		opts:  opts,
		mode:  Standby,
		draft: store.Motion(),
	}
}

// Update applies link-driven transitions, then the key events, and
// returns the resulting tones and screen updates.
func (d *Dispatcher) Update(now uint32, events []keys.Event) []present.Event {
	var out []present.Event
	out = append(out, d.follow(now)...)
	for _, ev := range events {
		out = append(out, d.handle(now, ev)...)
		out = append(out, d.follow(now)...)
	}
	if s := d.currentScreen(); s != d.screen {
		d.screen = s
		out = append(out, s)
	}
	return out
}

// follow applies the transitions that need no key press.
func (d *Dispatcher) follow(now uint32) []present.Event {
	var out []present.Event
	status := d.link.Status()

	switch {
	case d.mode.Idle():
		if status == camera.FullyConnected {
			d.setMode(CameraMode)
		} else {
			d.setMode(ScanMode)
		}

	case d.mode == PhotoRunning:
		if d.opts.AbortOnCameraLost && status != camera.FullyConnected && d.photo.Running() {
			debug.Info("Camera lost (%s), stopping photo session", status)
			out = append(out, d.photo.Stop(now)...)
		}
		if !d.photo.Running() {
			d.setMode(Standby)
		}

	case d.mode == ScanRunning:
		if !d.scan.Running() {
			d.setMode(Standby)
		}
	}
	return out
}

func (d *Dispatcher) handle(now uint32, ev keys.Event) []present.Event {
	if ev.Press == keys.None {
		return nil
	}
	debug.Verbose("Key %s (%s) in %s", ev.Key, ev.Press, d.mode)

	switch d.mode {
	case Standby, CameraMode, ScanMode:
		return d.handleIdle(now, ev)
	case Config:
		return d.handleConfig(ev)
	case ConfigEdit:
		return d.handleEdit(ev)
	case PhotoRunning:
		if ev.Key == keys.Cancel || ev.Key == keys.OK {
			return d.photo.Stop(now)
		}
	case ScanRunning:
		if ev.Key == keys.Cancel || ev.Key == keys.OK {
			return d.scan.Stop(now)
		}
	}
	return nil
}

func (d *Dispatcher) handleIdle(now uint32, ev keys.Event) []present.Event {
	switch {
	case ev.Key == keys.Cancel && ev.Press == keys.Long:
		d.item = ItemDirection
		d.draft = d.store.Motion()
		d.setMode(Config)
		return []present.Event{present.ToneConfigEnter}

	case ev.Key == keys.OK && ev.Press == keys.Short && d.mode == CameraMode:
		return d.start(now, d.photo, d.scan, PhotoRunning)

	case ev.Key == keys.OK && ev.Press == keys.Short && d.mode == ScanMode:
		return d.start(now, d.scan, d.photo, ScanRunning)
	}
	return nil
}

func (d *Dispatcher) start(now uint32, s, other Session, next Mode) []present.Event {
	if other.Running() {
		debug.Info("%s refused: another session is active", next)
		return []present.Event{present.ToneReject}
	}
	events, err := s.Start(now, d.store.Motion())
	if err != nil {
		debug.Error(err)
		return events
	}
	d.setMode(next)
	return events
}

func (d *Dispatcher) handleConfig(ev keys.Event) []present.Event {
	if ev.Press != keys.Short {
		return nil
	}
	switch ev.Key {
	case keys.Cancel:
		d.setMode(Standby)
		return []present.Event{present.ToneConfigLeave}
	case keys.Prev:
		d.item = d.item.Cycle(-1)
		return []present.Event{present.ToneItemPrev}
	case keys.Next:
		d.item = d.item.Cycle(1)
		return []present.Event{present.ToneItemNext}
	case keys.OK:
		d.draft = d.store.Motion()
		d.setMode(ConfigEdit)
		return []present.Event{present.ToneEditEnter}
	}
	return nil
}

func (d *Dispatcher) handleEdit(ev keys.Event) []present.Event {
	if ev.Press != keys.Short {
		return nil
	}
	switch ev.Key {
	case keys.Cancel:
		d.draft = d.store.Motion()
		d.setMode(Config)
		return []present.Event{present.ToneConfigLeave}
	case keys.Prev:
		d.draft = d.item.Step(d.draft, -1)
		return []present.Event{present.ToneValueDec}
	case keys.Next:
		d.draft = d.item.Step(d.draft, 1)
		return []present.Event{present.ToneValueInc}
	case keys.OK:
		if err := d.store.SaveMotion(d.draft); err != nil {
			debug.Error(err)
			d.draft = d.store.Motion()
			d.setMode(Config)
			return []present.Event{present.ToneReject}
		}
		debug.Info("%s set to %s", d.item, d.item.Value(d.draft))
		d.setMode(Config)
		return []present.Event{present.ToneCommit}
	}
	return nil
}

func (d *Dispatcher) setMode(m Mode) {
	if m == d.mode {
		return
	}
	from := d.mode
	d.mode = m
	debug.Mode(from, m)
	if d.opts.OnTransition != nil {
		d.opts.OnTransition(from, m)
	}
}

func (d *Dispatcher) currentScreen() present.Screen {
	s := present.Screen{Mode: d.mode.String(), Link: d.link.Status().String()}
	switch d.mode {
	case Config:
		s.Item = d.item.String()
		s.Value = d.item.Value(d.store.Motion())
	case ConfigEdit:
		s.Item = d.item.String()
		s.Value = d.item.Value(d.draft)
		s.Editing = true
	}
	return s
}

// Mode returns the current mode.
func (d *Dispatcher) Mode() Mode { return d.mode }

// Item returns the selected configuration item.
func (d *Dispatcher) Item() Item { return d.item }

// Draft returns the settings being edited. Outside ConfigEdit it equals
// the stored settings as of the last menu entry.
func (d *Dispatcher) Draft() config.MotionConfig { return d.draft }

// Screen returns the last published mode screen.
func (d *Dispatcher) Screen() present.Screen { return d.screen }
