package camera

import (
	"time"

	"github.com/cjeanneret/TurnGo/internal/clock"
	"github.com/cjeanneret/TurnGo/internal/debug"
	"github.com/cjeanneret/TurnGo/internal/hw/gpio"
)

// LostMargin is added to the shutter hold time to form the camera-lost
// threshold, so that a trigger pulling the sense line LOW never reads as
// a lost camera.
const LostMargin = 500 * time.Millisecond

// Link tracks cable and camera presence. Update must be called every tick.
type Link struct {
	cable *gpio.Line
	sense *gpio.Line

	lostAfter uint32 // ms the sense line must stay LOW before the camera is lost

	cableConnected bool
	cameraDetected bool
	lastCable      gpio.Level
	lastEdge       uint32
	lostActive     bool
	lostStart      uint32
	status         Status
}

// NewLink configures both lines as pulled-up inputs. shutterDelay sets the
// camera-lost hysteresis to shutterDelay + LostMargin.
func NewLink(cable, sense *gpio.Line, shutterDelay time.Duration) (*Link, error) {
	if err := cable.Release(); err != nil {
		return nil, err
	}
	if err := sense.Release(); err != nil {
		return nil, err
	}
	return &Link{
		cable:     cable,
		sense:     sense,
		lostAfter: clock.Millis(shutterDelay + LostMargin),
		lastCable: gpio.High, // pull-up idle level, so a seated cable is seen at boot
		status:    Disconnected,
	}, nil
}

// LostThreshold returns how long the sense line must stay LOW before the
// camera is considered gone.
func (l *Link) LostThreshold() time.Duration {
	return time.Duration(l.lostAfter) * time.Millisecond
}

// Update samples both lines and recomputes the status. Read failures keep
// the previous sample.
func (l *Link) Update(now uint32) {
	l.updateCable(now)
	l.updateCamera(now)

	status := StatusOf(l.cableConnected, l.cameraDetected)
	if status != l.status {
		debug.Link(status)
		l.status = status
	}
}

func (l *Link) updateCable(now uint32) {
	level, err := l.cable.Read()
	if err != nil {
		debug.Error(err)
		return
	}
	switch {
	case l.lastCable == gpio.High && level == gpio.Low:
		l.cableConnected = true
		l.lastEdge = now
		debug.Verbose("Camera cable connected")
	case l.lastCable == gpio.Low && level == gpio.High:
		l.cableConnected = false
		l.cameraDetected = false
		l.lostActive = false
		l.lastEdge = now
		debug.Verbose("Camera cable disconnected")
	}
	l.lastCable = level
}

func (l *Link) updateCamera(now uint32) {
	if !l.cableConnected {
		l.cameraDetected = false
		l.lostActive = false
		return
	}
	level, err := l.sense.Read()
	if err != nil {
		debug.Error(err)
		return
	}

	if level == gpio.High {
		l.lostActive = false
		if !l.cameraDetected {
			l.cameraDetected = true
			l.lastEdge = now
			debug.Verbose("Camera detected")
		}
		return
	}

	if !l.cameraDetected {
		return
	}
	if !l.lostActive {
		l.lostActive = true
		l.lostStart = now
		return
	}
	if clock.Reached(now, l.lostStart, l.lostAfter) {
		l.cameraDetected = false
		l.lostActive = false
		l.lastEdge = now
		debug.Verbose("Camera connection lost after %v LOW", l.LostThreshold())
	}
}

// Status returns the status computed by the last Update.
func (l *Link) Status() Status { return l.status }

func (l *Link) CableConnected() bool { return l.cableConnected }
func (l *Link) CameraDetected() bool { return l.cameraDetected }

// LastEdge returns the time of the last presence change.
func (l *Link) LastEdge() uint32 { return l.lastEdge }
