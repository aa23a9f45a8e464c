// Package present defines what the device shows and plays. State machines
// return these events as data; a Sink renders them (log, web, buzzer).
package present

import (
	"fmt"
	"time"
)

// Event is a presentation intent.
type Event interface {
	Kind() string
}

// Tone asks the buzzer to play a square wave.
type Tone struct {
	FreqHz   int           `json:"freq_hz"`
	Duration time.Duration `json:"duration"`
}

// Countdown shows the seconds left before a session starts.
type Countdown struct {
	Session   string `json:"session"`
	Remaining int    `json:"remaining"`
}

// PhotoProgress shows the state of a photo session.
type PhotoProgress struct {
	State     string `json:"state"`
	Photo     int    `json:"photo"`
	Total     int    `json:"total"`
	AngleDeg  int    `json:"angle_deg"`
	TargetDeg int    `json:"target_deg"`
}

// ScanProgress shows the state of a continuous scan.
type ScanProgress struct {
	Elapsed time.Duration `json:"elapsed"`
	Steps   uint64        `json:"steps"`
	Turns   float64       `json:"turns"`
}

// Banner is a full-screen message such as "Photos Complete".
type Banner struct {
	Text string `json:"text"`
}

// Screen is the mode screen: current mode, link status and, in the config
// menu, the selected item.
type Screen struct {
	Mode    string `json:"mode"`
	Link    string `json:"link"`
	Item    string `json:"item,omitempty"`
	Value   string `json:"value,omitempty"`
	Editing bool   `json:"editing,omitempty"`
}

func (Tone) Kind() string          { return "tone" }
func (Countdown) Kind() string     { return "countdown" }
func (PhotoProgress) Kind() string { return "photo" }
func (ScanProgress) Kind() string  { return "scan" }
func (Banner) Kind() string        { return "banner" }
func (Screen) Kind() string        { return "screen" }

func (t Tone) String() string {
	return fmt.Sprintf("%dHz/%dms", t.FreqHz, t.Duration.Milliseconds())
}

func (p PhotoProgress) String() string {
	return fmt.Sprintf("%s %d/%d at %d/%d°", p.State, p.Photo, p.Total, p.AngleDeg, p.TargetDeg)
}

func (s ScanProgress) String() string {
	return fmt.Sprintf("%s %d steps %.1f turns", FormatClock(s.Elapsed), s.Steps, s.Turns)
}

// FormatClock renders d as mm:ss. Minutes are not capped at 59.
func FormatClock(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// Buzzer tones.
var (
	ToneStartup1    = Tone{1000, 100 * time.Millisecond}
	ToneStartup2    = Tone{1500, 100 * time.Millisecond}
	ToneStartup3    = Tone{2000, 100 * time.Millisecond}
	ToneCountdown   = Tone{1500, 200 * time.Millisecond}
	ToneGo          = Tone{2000, 200 * time.Millisecond}
	ToneComplete    = Tone{2000, 200 * time.Millisecond}
	ToneComplete2   = Tone{2500, 200 * time.Millisecond}
	ToneStop        = Tone{1000, 300 * time.Millisecond}
	ToneReject      = Tone{1000, 500 * time.Millisecond}
	ToneConfigEnter = Tone{1500, 200 * time.Millisecond}
	ToneConfigLeave = Tone{1200, 200 * time.Millisecond}
	ToneItemPrev    = Tone{1600, 100 * time.Millisecond}
	ToneItemNext    = Tone{1700, 100 * time.Millisecond}
	ToneValueDec    = Tone{1400, 100 * time.Millisecond}
	ToneValueInc    = Tone{1800, 100 * time.Millisecond}
	ToneEditEnter   = Tone{1800, 200 * time.Millisecond}
	ToneCommit      = Tone{2000, 200 * time.Millisecond}
)
