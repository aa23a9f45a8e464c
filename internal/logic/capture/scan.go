package capture

import (
	"fmt"
	"time"

	"github.com/cjeanneret/TurnGo/internal/clock"
	"github.com/cjeanneret/TurnGo/internal/config"
	"github.com/cjeanneret/TurnGo/internal/debug"
	"github.com/cjeanneret/TurnGo/internal/logic/motion"
	"github.com/cjeanneret/TurnGo/internal/present"
)

// ScanRefresh is the period of scan progress updates.
const ScanRefresh = 500 * time.Millisecond

// ScanState is a state of the continuous scan.
type ScanState int

const (
	ScanIdle ScanState = iota
	ScanCountdown
	ScanRunning
	ScanStopped
)

func (s ScanState) String() string {
	switch s {
	case ScanIdle:
		return "Idle"
	case ScanCountdown:
		return "Countdown"
	case ScanRunning:
		return "Running"
	case ScanStopped:
		return "Stopped"
	default:
		return fmt.Sprintf("ScanState(%d)", int(s))
	}
}

// Scan rotates the platform continuously, for 3D scanning, until stopped.
type Scan struct {
	motion *motion.Controller

	state    ScanState
	enter    uint32
	cd       countdown
	settings motion.Settings

	start       uint32
	runtime     uint32 // ms, final value after Stop
	totalSteps  uint64
	totalTurns  float64
	lastRefresh uint32
}

// NewScan creates an idle scan.
func NewScan(m *motion.Controller) *Scan {
	return &Scan{motion: m, cd: countdown{session: "Scan"}}
}

// Start takes the motor and begins the countdown.
func (s *Scan) Start(now uint32, settings config.MotionConfig) ([]present.Event, error) {
	reject := []present.Event{present.ToneReject}
	if s.state != ScanIdle {
		return reject, fmt.Errorf("scan: %w (%s)", ErrAlreadyActive, s.state)
	}
	if err := s.motion.Acquire(OwnerScan); err != nil {
		return reject, fmt.Errorf("scan: %w", err)
	}
	s.settings = motionSettings(settings)
	s.totalSteps = 0
	s.totalTurns = 0
	s.runtime = 0

	debug.Section("Scan session")
	debug.PrintStruct("Motor", s.settings)

	s.enterState(now, ScanCountdown)
	s.cd.begin(now)
	events, _ := s.cd.update(now)
	return events, nil
}

// Stop halts the motor and records the final runtime.
func (s *Scan) Stop(now uint32) []present.Event {
	if s.state == ScanIdle || s.state == ScanStopped {
		return nil
	}
	if s.state == ScanRunning {
		s.runtime = clock.Since(now, s.start)
		s.refreshTotals()
	}
	s.motion.Release(OwnerScan)
	debug.Info("Scan stopped after %s, %d steps, %.1f turns", present.FormatClock(s.Runtime()), s.totalSteps, s.totalTurns)
	s.enterState(now, ScanStopped)
	return []present.Event{present.ToneStop, s.progress(), present.Banner{Text: "Scan Stopped"}}
}

// Update advances the scan. It never blocks.
func (s *Scan) Update(now uint32) []present.Event {
	switch s.state {
	case ScanCountdown:
		events, done := s.cd.update(now)
		if done {
			s.begin(now)
			events = append(events, s.progress())
		}
		return events

	case ScanRunning:
		s.refreshTotals()
		if !s.motion.Running() {
			debug.Verbose("Scan: motor stopped, restarting")
			if err := s.motion.Run(OwnerScan); err != nil {
				debug.Error(err)
			}
		}
		if clock.Reached(now, s.lastRefresh, clock.Millis(ScanRefresh)) {
			s.lastRefresh = now
			return []present.Event{s.progressAt(now)}
		}

	case ScanStopped:
		s.enterState(now, ScanIdle)
	}
	return nil
}

func (s *Scan) begin(now uint32) {
	s.enterState(now, ScanRunning)
	s.start = now
	s.lastRefresh = now

	err := s.motion.Configure(OwnerScan, s.settings)
	if err == nil {
		err = s.motion.ResetSteps(OwnerScan)
	}
	if err == nil {
		err = s.motion.Run(OwnerScan)
	}
	if err != nil {
		debug.Error(err)
	}
}

func (s *Scan) refreshTotals() {
	s.totalSteps = s.motion.Steps()
	if spr := s.motion.StepsPerRevolution(); spr > 0 {
		s.totalTurns = float64(s.totalSteps) / float64(spr)
	}
}

func (s *Scan) progress() present.ScanProgress {
	return present.ScanProgress{Elapsed: s.Runtime(), Steps: s.totalSteps, Turns: s.totalTurns}
}

func (s *Scan) progressAt(now uint32) present.ScanProgress {
	return present.ScanProgress{Elapsed: s.Elapsed(now), Steps: s.totalSteps, Turns: s.totalTurns}
}

func (s *Scan) enterState(now uint32, st ScanState) {
	if st != s.state {
		debug.State("Scan", s.state, st)
	}
	s.state = st
	s.enter = now
}

// Running reports whether the scan holds the device.
func (s *Scan) Running() bool {
	return s.state == ScanCountdown || s.state == ScanRunning
}

func (s *Scan) State() ScanState { return s.state }

// Elapsed returns the time spent rotating so far.
func (s *Scan) Elapsed(now uint32) time.Duration {
	if s.state != ScanRunning {
		return s.Runtime()
	}
	return time.Duration(clock.Since(now, s.start)) * time.Millisecond
}

// Runtime returns the rotating time of the last stopped scan.
func (s *Scan) Runtime() time.Duration {
	return time.Duration(s.runtime) * time.Millisecond
}

func (s *Scan) TotalSteps() uint64 { return s.totalSteps }
func (s *Scan) TotalTurns() float64 { return s.totalTurns }
