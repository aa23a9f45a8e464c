package stepper

import (
	"errors"
	"fmt"
	"time"

	"github.com/cjeanneret/TurnGo/internal/clock"
	"github.com/cjeanneret/TurnGo/internal/debug"
	"github.com/cjeanneret/TurnGo/internal/hw/gpio"
)

// Direction of rotation. Clockwise advances the phase table.
type Direction int

const (
	CW Direction = iota
	CCW
)

func (d Direction) String() string {
	if d == CCW {
		return "ccw"
	}
	return "cw"
}

// StepMode selects the phase table.
type StepMode int

const (
	HalfStep StepMode = iota
	FullStep
)

func (m StepMode) String() string {
	if m == FullStep {
		return "full"
	}
	return "half"
}

// Speed presets: SpeedSlow steps every 3ms, SpeedFast every 1ms.
type Speed int

const (
	SpeedSlow Speed = iota
	SpeedFast
)

var speedDelays = [...]time.Duration{
	SpeedSlow: 3 * time.Millisecond,
	SpeedFast: 1 * time.Millisecond,
}

// Bounds applied by SetCustomDelay.
const (
	MinDelay = 2 * time.Millisecond
	MaxDelay = 100 * time.Millisecond
)

// Coil patterns, bit 0 = IN1 .. bit 3 = IN4.
var (
	halfStepSequence = [...]uint8{0b0001, 0b0011, 0b0010, 0b0110, 0b0100, 0b1100, 0b1000, 0b1001}
	fullStepSequence = [...]uint8{0b0011, 0b0110, 0b1100, 0b1001}
)

func (m StepMode) sequence() []uint8 {
	if m == FullStep {
		return fullStepSequence[:]
	}
	return halfStepSequence[:]
}

// Config holds the hardware configuration of a four-coil unipolar motor.
type Config struct {
	Pins        [4]int // IN1..IN4 (BCM)
	StepsPerRev int    // full steps per output revolution
}

// Sequencer drives the coils one phase per Update, never blocking.
type Sequencer struct {
	coils       [4]*gpio.Line
	stepsPerRev int

	pos      int
	dir      Direction
	mode     StepMode
	interval uint32 // µs

	running    bool
	continuous bool
	remaining  int
	armed      bool // first Update after a start only stamps the time
	lastStep   uint32
	count      uint64
	total      uint64
}

// New configures the coil pins as outputs, de-energized.
func New(drv gpio.Driver, cfg Config) (*Sequencer, error) {
	if cfg.StepsPerRev <= 0 {
		return nil, errors.New("stepper: steps per revolution must be > 0")
	}
	s := &Sequencer{
		stepsPerRev: cfg.StepsPerRev,
		interval:    uint32(speedDelays[SpeedSlow] / time.Microsecond),
	}
	for i, pin := range cfg.Pins {
		s.coils[i] = gpio.NewLine(drv, coilName(i), pin)
		if err := s.coils[i].Drive(gpio.Low); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func coilName(i int) string {
	return fmt.Sprintf("IN%d", i+1)
}

// SetDirection sets the direction used by the next phase advances.
func (s *Sequencer) SetDirection(d Direction) {
	s.dir = d
}

func (s *Sequencer) Direction() Direction { return s.dir }

// SetStepMode selects the phase table and resets the position in the cycle.
func (s *Sequencer) SetStepMode(m StepMode) {
	if m != s.mode {
		debug.Verbose("Stepper: step mode %s", m)
	}
	s.mode = m
	s.pos = 0
}

func (s *Sequencer) StepMode() StepMode { return s.mode }

// SetSpeed applies a speed preset.
func (s *Sequencer) SetSpeed(sp Speed) {
	if sp < SpeedSlow || sp > SpeedFast {
		sp = SpeedSlow
	}
	s.interval = uint32(speedDelays[sp] / time.Microsecond)
}

// SetCustomDelay sets the time between phase advances, clamped to
// [MinDelay, MaxDelay].
func (s *Sequencer) SetCustomDelay(ms int) {
	d := time.Duration(ms) * time.Millisecond
	if d < MinDelay {
		d = MinDelay
	}
	if d > MaxDelay {
		d = MaxDelay
	}
	s.interval = uint32(d / time.Microsecond)
}

// Interval returns the time between two phase advances.
func (s *Sequencer) Interval() time.Duration {
	return time.Duration(s.interval) * time.Microsecond
}

// StepsPerRevolution returns the phase advances per output turn in the
// current step mode.
func (s *Sequencer) StepsPerRevolution() int {
	if s.mode == HalfStep {
		return s.stepsPerRev * 2
	}
	return s.stepsPerRev
}

// RotateSteps starts a finite move of n phase advances. n <= 0 is ignored.
func (s *Sequencer) RotateSteps(n int) {
	if n <= 0 {
		return
	}
	debug.Move(n, s.dir.String())
	s.remaining = n
	s.continuous = false
	s.start()
}

// Start rotates until Stop.
func (s *Sequencer) Start() {
	debug.Live("Motor: continuous rotation (%s, %v/step)", s.dir, s.Interval())
	s.remaining = 0
	s.continuous = true
	s.start()
}

func (s *Sequencer) start() {
	s.running = true
	s.armed = true
}

// Stop halts immediately and de-energizes every coil.
func (s *Sequencer) Stop() {
	s.running = false
	s.continuous = false
	s.remaining = 0
	s.armed = false
	for _, c := range s.coils {
		if err := c.Write(gpio.Low); err != nil {
			debug.Error(err)
		}
	}
}

// Update advances one phase when the step interval has elapsed.
func (s *Sequencer) Update(nowMicros uint32) {
	if !s.running {
		return
	}
	if s.armed {
		s.armed = false
		s.lastStep = nowMicros
		return
	}
	if !clock.Reached(nowMicros, s.lastStep, s.interval) {
		return
	}
	s.lastStep = nowMicros
	s.step()

	if s.continuous {
		return
	}
	s.remaining--
	if s.remaining <= 0 {
		debug.Verbose("Stepper: move complete (%d steps total)", s.count)
		s.Stop()
	}
}

func (s *Sequencer) step() {
	seq := s.mode.sequence()
	n := len(seq)
	if s.dir == CW {
		s.pos = (s.pos + 1) % n
	} else {
		s.pos = (s.pos - 1 + n) % n
	}
	s.count++
	s.total++
	s.setCoils(seq[s.pos])
}

func (s *Sequencer) setCoils(pattern uint8) {
	for i, c := range s.coils {
		level := gpio.Low
		if pattern&(1<<i) != 0 {
			level = gpio.High
		}
		if err := c.Write(level); err != nil {
			debug.Error(err)
		}
	}
}

// IsRunning reports whether a move or continuous rotation is in progress.
func (s *Sequencer) IsRunning() bool { return s.running }

// Remaining returns the phase advances left in a finite move.
func (s *Sequencer) Remaining() int { return s.remaining }

// Position returns the index in the current phase table.
func (s *Sequencer) Position() int { return s.pos }

// Pattern returns the coil pattern at the current position.
func (s *Sequencer) Pattern() uint8 { return s.mode.sequence()[s.pos] }

// StepCount returns the phase advances since the last ResetStepCount.
func (s *Sequencer) StepCount() uint64 { return s.count }

func (s *Sequencer) ResetStepCount() { s.count = 0 }

// TotalSteps returns the phase advances since creation; never reset.
func (s *Sequencer) TotalSteps() uint64 { return s.total }
