// Package mode implements the top-level mode dispatcher: it turns key
// presses and camera link changes into mode transitions and starts and
// stops the photo and scan sessions.
package mode

import "fmt"

// Mode is a top-level operating mode.
type Mode int

const (
	Standby Mode = iota
	CameraMode
	ScanMode
	Config
	ConfigEdit
	PhotoRunning
	ScanRunning
	// Countdown is never entered; both sessions run their own countdown.
	Countdown
)

var modeNames = [...]string{
	Standby:      "Standby",
	CameraMode:   "Camera",
	ScanMode:     "Scan",
	Config:       "Config",
	ConfigEdit:   "Config Edit",
	PhotoRunning: "Photo Running",
	ScanRunning:  "Scan Running",
	Countdown:    "Countdown",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// Modes lists every mode, for metrics label initialisation.
var Modes = [...]Mode{Standby, CameraMode, ScanMode, Config, ConfigEdit, PhotoRunning, ScanRunning, Countdown}

// Idle reports whether m follows the camera link status.
func (m Mode) Idle() bool {
	return m == Standby || m == CameraMode || m == ScanMode
}

// Running reports whether a session owns the device in m.
func (m Mode) Running() bool {
	return m == PhotoRunning || m == ScanRunning
}
