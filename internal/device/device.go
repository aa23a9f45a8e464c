// Package device owns the turntable state machines and runs them from a
// single cooperative poll loop.
package device

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cjeanneret/TurnGo/internal/clock"
	"github.com/cjeanneret/TurnGo/internal/config"
	"github.com/cjeanneret/TurnGo/internal/debug"
	"github.com/cjeanneret/TurnGo/internal/hw/camera"
	"github.com/cjeanneret/TurnGo/internal/hw/gpio"
	"github.com/cjeanneret/TurnGo/internal/hw/keys"
	"github.com/cjeanneret/TurnGo/internal/hw/stepper"
	"github.com/cjeanneret/TurnGo/internal/logic/capture"
	"github.com/cjeanneret/TurnGo/internal/logic/mode"
	"github.com/cjeanneret/TurnGo/internal/logic/motion"
	"github.com/cjeanneret/TurnGo/internal/metrics"
	"github.com/cjeanneret/TurnGo/internal/present"
)

// StartupTones is the melody played once at boot.
var StartupTones = []present.Tone{present.ToneStartup1, present.ToneStartup2, present.ToneStartup3}

// Options are the optional collaborators of a Device.
type Options struct {
	Clock   clock.Clock      // defaults to the system clock
	Sink    present.Sink     // defaults to present.LogSink
	Metrics *metrics.Metrics // nil disables metrics
	Keys    keys.Source      // extra key source merged after the keypad
}

// Snapshot is the device state published after every tick.
type Snapshot struct {
	Mode       string                `json:"mode"`
	Link       string                `json:"link"`
	Screen     present.Screen        `json:"screen"`
	PhotoState string                `json:"photo_state"`
	Photo      present.PhotoProgress `json:"photo"`
	ScanState  string                `json:"scan_state"`
	Scan       present.ScanProgress  `json:"scan"`
	Banner     string                `json:"banner,omitempty"`
	Motion     config.MotionConfig   `json:"motion"`
	MotorOwner string                `json:"motor_owner,omitempty"`
	Shots      uint64                `json:"shots"`
	TotalSteps uint64                `json:"total_steps"`
}

// Device wires the hardware lines, the orchestrators and the dispatcher.
type Device struct {
	clk     clock.Clock
	sink    present.Sink
	metrics *metrics.Metrics
	store   mode.SettingsStore
	tick    time.Duration

	link  *camera.Link
	trig  *camera.Trigger
	seq   *stepper.Sequencer
	ctrl  *motion.Controller
	photo *capture.Photo
	scan  *capture.Scan
	disp  *mode.Dispatcher
	keys  keys.Source
	queue *keys.Queue

	// last values seen, for metric deltas
	lastLink   camera.Status
	lastShots  uint64
	lastSteps  uint64
	lastPhoto  capture.PhotoState
	lastScan   capture.ScanState
	lastBanner string

	mu   sync.RWMutex
	snap Snapshot
}

// New builds a device from cfg on drv. store holds the editable motion
// settings.
func New(cfg *config.Config, drv gpio.Driver, store mode.SettingsStore, opts Options) (*Device, error) {
	d := &Device{
		clk:     opts.Clock,
		sink:    opts.Sink,
		metrics: opts.Metrics,
		store:   store,
		tick:    cfg.TickPeriod(),
		queue:   keys.NewQueue(32),
	}
	if d.clk == nil {
		d.clk = clock.NewSystem()
	}
	if d.sink == nil {
		d.sink = present.LogSink{}
	}

	var err error
	d.link, err = camera.NewLink(
		gpio.NewLine(drv, "cable", cfg.Camera.CablePin),
		gpio.NewLine(drv, "sense", cfg.Camera.SensePin),
		cfg.ShutterDelay(),
	)
	if err != nil {
		return nil, err
	}
	d.trig, err = camera.NewTrigger(
		gpio.NewLine(drv, "focus", cfg.Camera.FocusPin),
		gpio.NewLine(drv, "shutter", cfg.Camera.ShutterPin),
		d.link, cfg.FocusDelay(), cfg.ShutterDelay(),
	)
	if err != nil {
		return nil, err
	}
	d.seq, err = stepper.New(drv, stepper.Config{Pins: cfg.Stepper.Pins, StepsPerRev: cfg.Stepper.StepsPerRev})
	if err != nil {
		return nil, err
	}
	keypad, err := keys.NewKeypad(drv, keys.Pins{
		Cancel: cfg.Keys.CancelPin,
		Prev:   cfg.Keys.PrevPin,
		Next:   cfg.Keys.NextPin,
		OK:     cfg.Keys.OkPin,
	}, cfg.Keys.ActiveLow, cfg.LongPress())
	if err != nil {
		return nil, err
	}
	sources := keys.Multi{keypad, d.queue}
	if opts.Keys != nil {
		sources = append(sources, opts.Keys)
	}
	d.keys = sources

	d.ctrl = motion.NewController(d.seq)
	d.photo = capture.NewPhoto(d.ctrl, d.trig, d.link, capture.TimingsFromConfig(cfg),
		cfg.Stepper.StepsPerRev, cfg.Camera.CompensationSteps)
	d.scan = capture.NewScan(d.ctrl)
	d.disp = mode.New(d.link, d.photo, d.scan, store, mode.Options{
		AbortOnCameraLost: cfg.Defaults.AbortOnCameraLost,
		OnTransition:      d.onTransition,
	})
	d.lastLink = d.link.Status()
	d.publish(d.clk.NowMillis())
	return d, nil
}

// Queue returns the queue behind PressKey, for key consoles.
func (d *Device) Queue() *keys.Queue { return d.queue }

// Startup plays the boot melody.
func (d *Device) Startup() {
	debug.Section("TurnGo ready")
	for _, t := range StartupTones {
		d.sink.Present(t)
	}
}

// Tick runs one pass of the poll loop: link, stepper, trigger, sessions,
// then the dispatcher.
func (d *Device) Tick() {
	now := d.clk.NowMillis()

	d.link.Update(now)
	d.seq.Update(d.clk.NowMicros())
	d.trig.Update(now)

	events := d.photo.Update(now)
	events = append(events, d.scan.Update(now)...)
	events = append(events, d.disp.Update(now, d.keys.Poll(now))...)

	for _, ev := range events {
		if b, ok := ev.(present.Banner); ok {
			d.lastBanner = b.Text
		}
		d.sink.Present(ev)
	}
	d.record()
	d.publish(now)
}

// Run ticks every tick period until ctx is done, then leaves the hardware
// safe.
func (d *Device) Run(ctx context.Context) error {
	d.Startup()
	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return d.Shutdown()
		case <-ticker.C:
			d.Tick()
		}
	}
}

// Shutdown stops any session, de-energizes the motor and releases the
// trigger lines.
func (d *Device) Shutdown() error {
	now := d.clk.NowMillis()
	for _, ev := range d.photo.Stop(now) {
		d.sink.Present(ev)
	}
	for _, ev := range d.scan.Stop(now) {
		d.sink.Present(ev)
	}
	d.record()
	d.seq.Stop()
	err := d.trig.Release()
	d.publish(now)
	debug.Info("Device stopped, motor off, trigger lines released")
	return err
}

func (d *Device) onTransition(from, to mode.Mode) {
	if d.metrics != nil {
		d.metrics.ModeTransition(from.String(), to.String())
	}
}

// record turns state changes since the last tick into metrics.
func (d *Device) record() {
	status := d.link.Status()
	shots := d.trig.Shots()
	steps := d.seq.TotalSteps()
	photo := d.photo.State()
	scan := d.scan.State()
	defer func() {
		d.lastLink, d.lastShots, d.lastSteps = status, shots, steps
		d.lastPhoto, d.lastScan = photo, scan
	}()

	m := d.metrics
	if m == nil {
		return
	}
	if status != d.lastLink {
		m.SetLinkStatus(status)
	}
	if shots > d.lastShots {
		m.ShutterFired(shots - d.lastShots)
	}
	if steps > d.lastSteps {
		m.Steps(steps - d.lastSteps)
	}
	if photo != d.lastPhoto {
		switch photo {
		case capture.PhotoComplete:
			m.PhotoSession(metrics.ResultComplete)
			m.MissedShots(d.photo.Missed())
		case capture.PhotoStopped:
			if d.lastPhoto == capture.PhotoComplete {
				break
			}
			m.PhotoSession(metrics.ResultStopped)
			m.MissedShots(d.photo.Missed())
		}
	}
	if scan != d.lastScan && scan == capture.ScanStopped {
		m.ScanSession(d.scan.Runtime())
	}
}

func (d *Device) publish(now uint32) {
	s := Snapshot{
		Mode:       d.disp.Mode().String(),
		Link:       d.link.Status().String(),
		Screen:     d.disp.Screen(),
		PhotoState: d.photo.State().String(),
		Photo:      d.photo.Progress(),
		ScanState:  d.scan.State().String(),
		Scan: present.ScanProgress{
			Elapsed: d.scan.Elapsed(now),
			Steps:   d.scan.TotalSteps(),
			Turns:   d.scan.TotalTurns(),
		},
		Banner:     d.lastBanner,
		Motion:     d.store.Motion(),
		MotorOwner: d.ctrl.Owner(),
		Shots:      d.trig.Shots(),
		TotalSteps: d.seq.TotalSteps(),
	}
	d.mu.Lock()
	d.snap = s
	d.mu.Unlock()
}

// Snapshot returns the state published by the last tick. Safe for
// concurrent use.
func (d *Device) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snap
}

// Settings returns the stored motion settings.
func (d *Device) Settings() config.MotionConfig { return d.store.Motion() }

// ErrQueueFull is returned when an injected key press cannot be queued.
var ErrQueueFull = errors.New("device: key queue full")

// PressKey injects a key press as if typed on the keypad. The press is
// handled by the next tick.
func (d *Device) PressKey(ev keys.Event) error {
	if !d.queue.Push(ev) {
		return ErrQueueFull
	}
	return nil
}
