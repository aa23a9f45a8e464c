package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cjeanneret/TurnGo/internal/clock"
	"github.com/cjeanneret/TurnGo/internal/config"
	"github.com/cjeanneret/TurnGo/internal/hw/camera"
	"github.com/cjeanneret/TurnGo/internal/hw/gpio"
	"github.com/cjeanneret/TurnGo/internal/hw/stepper"
	"github.com/cjeanneret/TurnGo/internal/logic/motion"
	"github.com/cjeanneret/TurnGo/internal/present"
)

const (
	cablePin   = 26
	focusPin   = 23 // doubles as camera sense, as on the real connector
	shutterPin = 24
)

var coilPins = [4]int{17, 18, 27, 22}

var realTimings = Timings{
	Focus:    500 * time.Millisecond,
	Shutter:  200 * time.Millisecond,
	PreShot:  300 * time.Millisecond,
	PostShot: 800 * time.Millisecond,
	Settle:   500 * time.Millisecond,
}

var fastTimings = Timings{
	Focus:    20 * time.Millisecond,
	Shutter:  20 * time.Millisecond,
	PreShot:  5 * time.Millisecond,
	PostShot: 5 * time.Millisecond,
	Settle:   5 * time.Millisecond,
}

// rig wires the real state machines to a mock GPIO driver and a fake
// clock, ticking them in device order.
type rig struct {
	t     *testing.T
	clk   *clock.Fake
	drv   *gpio.MockDriver
	link  *camera.Link
	trig  *camera.Trigger
	seq   *stepper.Sequencer
	ctrl  *motion.Controller
	photo *Photo
	scan  *Scan
	rec   present.Recorder
}

func newRig(t *testing.T, timings Timings, fullStepsPerRev int) *rig {
	t.Helper()
	r := &rig{t: t, clk: clock.NewFake(1000), drv: gpio.NewMockDriver()}

	var err error
	r.link, err = camera.NewLink(gpio.NewLine(r.drv, "cable", cablePin), gpio.NewLine(r.drv, "sense", focusPin), timings.Shutter)
	require.NoError(t, err)
	r.trig, err = camera.NewTrigger(gpio.NewLine(r.drv, "focus", focusPin), gpio.NewLine(r.drv, "shutter", shutterPin),
		r.link, timings.Focus, timings.Shutter)
	require.NoError(t, err)
	r.seq, err = stepper.New(r.drv, stepper.Config{Pins: coilPins, StepsPerRev: fullStepsPerRev})
	require.NoError(t, err)

	r.ctrl = motion.NewController(r.seq)
	r.photo = NewPhoto(r.ctrl, r.trig, r.link, timings, fullStepsPerRev, 4)
	r.scan = NewScan(r.ctrl)
	return r
}

func (r *rig) now() uint32 { return r.clk.NowMillis() }

// connectCamera seats the cable with the camera powered.
func (r *rig) connectCamera() {
	r.drv.Set(cablePin, gpio.Low)
	r.drv.Set(focusPin, gpio.High)
	r.tick()
	require.Equal(r.t, camera.FullyConnected, r.link.Status())
}

func (r *rig) present(events []present.Event) {
	for _, ev := range events {
		r.rec.Present(ev)
	}
}

func (r *rig) tick() {
	r.clk.Advance(time.Millisecond)
	now := r.now()
	r.link.Update(now)
	r.seq.Update(r.clk.NowMicros())
	r.trig.Update(now)
	r.present(r.photo.Update(now))
	r.present(r.scan.Update(now))
}

// runUntil ticks until cond holds, failing after limit of simulated time.
func (r *rig) runUntil(cond func() bool, limit time.Duration) {
	r.t.Helper()
	for i := 0; i < int(limit/time.Millisecond); i++ {
		if cond() {
			return
		}
		r.tick()
	}
	require.True(r.t, cond(), "condition not reached within %v", limit)
}

func (r *rig) run(d time.Duration) {
	for i := 0; i < int(d/time.Millisecond); i++ {
		r.tick()
	}
}

func (r *rig) coilsOff() bool {
	for _, pin := range coilPins {
		if lvl, _ := r.drv.ReadPin(pin); lvl != gpio.Low {
			return false
		}
	}
	return true
}

func (r *rig) triggerLinesReleased() bool {
	f, _ := r.drv.ReadPin(focusPin)
	s, _ := r.drv.ReadPin(shutterPin)
	return f == gpio.High && s == gpio.High && !r.trig.Busy()
}

func motionSettingsFor(angle, interval, speedMs int, mode string) config.MotionConfig {
	return config.MotionConfig{
		Direction:        config.DirectionCW,
		StepMode:         mode,
		SpeedMs:          speedMs,
		RotationAngleDeg: angle,
		PhotoIntervalDeg: interval,
	}
}

func countTones(tones []present.Tone, want present.Tone) int {
	n := 0
	for _, tone := range tones {
		if tone == want {
			n++
		}
	}
	return n
}
