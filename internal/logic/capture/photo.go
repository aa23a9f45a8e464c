package capture

import (
	"errors"
	"fmt"
	"time"

	"github.com/cjeanneret/TurnGo/internal/clock"
	"github.com/cjeanneret/TurnGo/internal/config"
	"github.com/cjeanneret/TurnGo/internal/debug"
	"github.com/cjeanneret/TurnGo/internal/hw/camera"
	"github.com/cjeanneret/TurnGo/internal/hw/stepper"
	"github.com/cjeanneret/TurnGo/internal/logic/geometry"
	"github.com/cjeanneret/TurnGo/internal/logic/motion"
	"github.com/cjeanneret/TurnGo/internal/present"
)

// Motor owner names.
const (
	OwnerPhoto = "photo"
	OwnerScan  = "scan"
)

// ErrAlreadyActive is returned by Start when a session is in progress.
var ErrAlreadyActive = errors.New("capture: session already active")

// CompleteHold is how long the completion banner stays up before the
// session returns to Idle.
const CompleteHold = 2 * time.Second

const completeSecondTone = 100 * time.Millisecond

// Trigger fires the camera. *camera.Trigger implements it.
type Trigger interface {
	Focus(now uint32) error
	Shutter(now uint32) error
	Release() error
}

// Timings are the fixed delays of a photo session.
type Timings struct {
	Focus    time.Duration // autofocus hold
	Shutter  time.Duration // shutter hold
	PreShot  time.Duration // settle before each shutter
	PostShot time.Duration // settle after each shutter
	Settle   time.Duration // settle after the motor stops
}

// TimingsFromConfig reads the camera delays from cfg.
func TimingsFromConfig(cfg *config.Config) Timings {
	return Timings{
		Focus:    cfg.FocusDelay(),
		Shutter:  cfg.ShutterDelay(),
		PreShot:  cfg.PreShotDelay(),
		PostShot: cfg.PostShotDelay(),
		Settle:   cfg.SettleDelay(),
	}
}

// PhotoState is a state of the photo session.
type PhotoState int

const (
	PhotoIdle PhotoState = iota
	PhotoCountdown
	PhotoFocus
	PhotoPreFirstShot
	PhotoFirstShot
	PhotoPostFirstShot
	PhotoRotating
	PhotoPreShooting
	PhotoShooting
	PhotoPostShooting
	PhotoComplete
	PhotoStopped
)

var photoStateNames = [...]string{
	PhotoIdle:          "Idle",
	PhotoCountdown:     "Countdown",
	PhotoFocus:         "Focus",
	PhotoPreFirstShot:  "PreFirstShot",
	PhotoFirstShot:     "FirstShot",
	PhotoPostFirstShot: "PostFirstShot",
	PhotoRotating:      "Rotating",
	PhotoPreShooting:   "PreShooting",
	PhotoShooting:      "Shooting",
	PhotoPostShooting:  "PostShooting",
	PhotoComplete:      "Complete",
	PhotoStopped:       "Stopped",
}

func (s PhotoState) String() string {
	if s < 0 || int(s) >= len(photoStateNames) {
		return fmt.Sprintf("PhotoState(%d)", int(s))
	}
	return photoStateNames[s]
}

type photoDelays struct {
	focus, shutter, preShot, postShot, settle uint32
}

// Photo runs a turntable photo session: a shot, a rotation segment, a
// shot, and so on until the full rotation angle has been swept. The final
// position equals the start position and is not photographed.
type Photo struct {
	motion  *motion.Controller
	trigger Trigger
	link    camera.StatusSource

	delays          photoDelays
	fullStepsPerRev int
	compensation    int

	state PhotoState
	enter uint32
	cd    countdown

	plan     *geometry.PhotoPlan
	segments *geometry.Segmenter
	calc     *geometry.StepsCalculator
	settings motion.Settings

	photosDone   int
	segmentsDone int
	segStart     uint64 // motor step count at segment start
	motorDone    bool
	motorDoneAt  uint32
	secondTone   bool
	missed       int
	progress     present.PhotoProgress
}

// NewPhoto creates an idle photo session.
func NewPhoto(m *motion.Controller, trig Trigger, link camera.StatusSource, t Timings, fullStepsPerRev, compensation int) *Photo {
	return &Photo{
		motion:  m,
		trigger: trig,
		link:    link,
		delays: photoDelays{
			focus:    clock.Millis(t.Focus),
			shutter:  clock.Millis(t.Shutter),
			preShot:  clock.Millis(t.PreShot),
			postShot: clock.Millis(t.PostShot),
			settle:   clock.Millis(t.Settle),
		},
		fullStepsPerRev: fullStepsPerRev,
		compensation:    compensation,
		cd:              countdown{session: "Photo"},
	}
}

// Start plans a session from settings and begins the countdown. A
// rejected start plays the error tone and changes nothing.
func (p *Photo) Start(now uint32, settings config.MotionConfig) ([]present.Event, error) {
	reject := []present.Event{present.ToneReject}
	if p.state != PhotoIdle {
		return reject, fmt.Errorf("photo: %w (%s)", ErrAlreadyActive, p.state)
	}
	if st := p.link.Status(); st != camera.FullyConnected {
		return reject, fmt.Errorf("photo: %w (%s)", camera.ErrNotReady, st)
	}
	mode := stepModeOf(settings)
	plan, err := geometry.PlanPhotos(settings.RotationAngleDeg, settings.PhotoIntervalDeg, p.fullStepsPerRev, mode, p.compensation)
	if err != nil {
		return reject, fmt.Errorf("photo: %w", err)
	}
	if err := p.motion.Acquire(OwnerPhoto); err != nil {
		return reject, fmt.Errorf("photo: %w", err)
	}

	p.plan = plan
	p.segments = plan.Segments()
	p.calc = geometry.NewStepsCalculator(p.fullStepsPerRev, mode)
	p.settings = motionSettings(settings)
	p.photosDone = 0
	p.segmentsDone = 0
	p.missed = 0
	p.secondTone = false
	p.progress = present.PhotoProgress{}

	debug.Section("Photo session")
	debug.Plan(plan.TotalPhotos, plan.IntervalDeg, plan.TargetDeg)
	debug.Value("Steps per revolution", plan.StepsPerRevolution)
	debug.Value("Compensation steps", plan.CompensationSteps)

	p.enterState(now, PhotoCountdown)
	p.cd.begin(now)
	events, _ := p.cd.update(now)
	return events, nil
}

// Stop aborts the session from any non-idle state. The motor is stopped
// and released and both trigger lines return to pulled-up inputs. During
// the completion banner the session is already finished: Stop only
// dismisses the banner, silently.
func (p *Photo) Stop(now uint32) []present.Event {
	switch p.state {
	case PhotoIdle, PhotoStopped:
		return nil
	case PhotoComplete:
		p.enterState(now, PhotoIdle)
		return nil
	}
	p.motion.Release(OwnerPhoto)
	if err := p.trigger.Release(); err != nil {
		debug.Error(err)
	}
	debug.Info("Photo session stopped after %d/%d photos", p.photosDone, p.total())
	p.enterState(now, PhotoStopped)
	return []present.Event{present.ToneStop, present.Banner{Text: "Photos Stopped"}}
}

// Update advances the session. It never blocks.
func (p *Photo) Update(now uint32) []present.Event {
	var events []present.Event
	elapsed := clock.Since(now, p.enter)

	switch p.state {
	case PhotoIdle:
		return nil

	case PhotoCountdown:
		ev, done := p.cd.update(now)
		events = append(events, ev...)
		if done {
			p.enterState(now, PhotoFocus)
			if err := p.trigger.Focus(now); err != nil {
				debug.Error(err)
			}
		}

	case PhotoFocus:
		if elapsed >= p.delays.focus {
			p.release()
			p.enterState(now, PhotoPreFirstShot)
		}

	case PhotoPreFirstShot:
		if elapsed >= p.delays.preShot {
			p.shoot(now, PhotoFirstShot)
		}

	case PhotoFirstShot:
		if elapsed >= p.delays.shutter {
			p.release()
			p.enterState(now, PhotoPostFirstShot)
		}

	case PhotoPostFirstShot, PhotoPostShooting:
		if elapsed >= p.delays.postShot {
			p.photosDone++
			debug.Shot(p.photosDone, p.total())
			if p.photosDone == 1 && p.total() == 1 {
				events = append(events, p.complete(now)...)
				break
			}
			p.rotate(now)
		}

	case PhotoRotating:
		if !p.motorDone {
			if p.motion.Running() {
				break
			}
			p.motorDone = true
			p.motorDoneAt = now
		}
		if clock.Reached(now, p.motorDoneAt, p.delays.settle) {
			p.segmentsDone++
			if p.photosDone >= p.total() {
				events = append(events, p.complete(now)...)
				break
			}
			p.enterState(now, PhotoPreShooting)
		}

	case PhotoPreShooting:
		if elapsed >= p.delays.preShot {
			p.shoot(now, PhotoShooting)
		}

	case PhotoShooting:
		if elapsed >= p.delays.shutter {
			p.release()
			p.enterState(now, PhotoPostShooting)
		}

	case PhotoComplete:
		if !p.secondTone && elapsed >= clock.Millis(completeSecondTone) {
			p.secondTone = true
			events = append(events, present.ToneComplete2)
		}
		if elapsed >= clock.Millis(CompleteHold) {
			p.enterState(now, PhotoIdle)
		}

	case PhotoStopped:
		p.enterState(now, PhotoIdle)
	}

	if pr := p.currentProgress(); pr != p.progress && p.state != PhotoIdle {
		p.progress = pr
		events = append(events, pr)
	}
	return events
}

func (p *Photo) shoot(now uint32, next PhotoState) {
	p.enterState(now, next)
	if err := p.trigger.Shutter(now); err != nil {
		p.missed++
		debug.Error(err)
	}
}

func (p *Photo) release() {
	if err := p.trigger.Release(); err != nil {
		debug.Error(err)
	}
}

func (p *Photo) rotate(now uint32) {
	p.enterState(now, PhotoRotating)
	p.motorDone = false
	p.segStart = p.motion.Steps()

	steps := p.segments.Next()
	err := p.motion.Configure(OwnerPhoto, p.settings)
	if err == nil {
		err = p.motion.Move(OwnerPhoto, steps)
	}
	if err != nil {
		debug.Error(err)
	}
}

func (p *Photo) complete(now uint32) []present.Event {
	p.motion.Release(OwnerPhoto)
	p.release()
	p.enterState(now, PhotoComplete)
	debug.Info("Photo session complete: %d photos, %d missed", p.photosDone, p.missed)
	return []present.Event{present.ToneComplete, present.Banner{Text: "Photos Complete"}}
}

func (p *Photo) enterState(now uint32, s PhotoState) {
	if s != p.state {
		debug.State("Photo", p.state, s)
	}
	p.state = s
	p.enter = now
}

func (p *Photo) total() int {
	if p.plan == nil {
		return 0
	}
	return p.plan.TotalPhotos
}

// AngleDeg returns the platform angle relative to the session start, live
// during rotation.
func (p *Photo) AngleDeg() int {
	if p.plan == nil {
		return 0
	}
	angle := p.segmentsDone * p.plan.IntervalDeg
	if p.state == PhotoRotating {
		moved := p.calc.DegreesFromSteps(int(p.motion.Steps() - p.segStart))
		angle += min(moved, p.plan.IntervalDeg)
	}
	return min(angle, p.plan.TargetDeg)
}

func (p *Photo) currentProgress() present.PhotoProgress {
	photo := p.photosDone
	switch p.state {
	case PhotoFocus, PhotoPreFirstShot, PhotoFirstShot, PhotoPostFirstShot,
		PhotoPreShooting, PhotoShooting, PhotoPostShooting:
		photo++
	}
	return present.PhotoProgress{
		State:     p.state.String(),
		Photo:     photo,
		Total:     p.total(),
		AngleDeg:  p.AngleDeg(),
		TargetDeg: p.target(),
	}
}

func (p *Photo) target() int {
	if p.plan == nil {
		return 0
	}
	return p.plan.TargetDeg
}

// Running reports whether the session holds the device, completion banner
// included.
func (p *Photo) Running() bool {
	return p.state != PhotoIdle && p.state != PhotoStopped
}

func (p *Photo) State() PhotoState { return p.state }

// PhotosDone returns the number of completed photos.
func (p *Photo) PhotosDone() int { return p.photosDone }

// TotalPhotos returns the planned number of photos, 0 before the first start.
func (p *Photo) TotalPhotos() int { return p.total() }

// Segments returns the number of completed rotation segments.
func (p *Photo) Segments() int { return p.segmentsDone }

// Missed returns the shutter requests the camera rejected.
func (p *Photo) Missed() int { return p.missed }

// Progress returns the last published progress.
func (p *Photo) Progress() present.PhotoProgress { return p.currentProgress() }

func stepModeOf(m config.MotionConfig) stepper.StepMode {
	if m.HalfStep() {
		return stepper.HalfStep
	}
	return stepper.FullStep
}

func motionSettings(m config.MotionConfig) motion.Settings {
	dir := stepper.CCW
	if m.Clockwise() {
		dir = stepper.CW
	}
	return motion.Settings{Direction: dir, Mode: stepModeOf(m), DelayMs: m.SpeedMs}
}
