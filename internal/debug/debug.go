// Package debug is the leveled log of the turntable. Every line carries a
// level tag such as [LIVE] so the web status stream can filter on it.
package debug

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Debug levels
const (
	LevelOff     = 0 // No output
	LevelInfo    = 1 // Mode changes, session plans, banners
	LevelLive    = 2 // Shots, rotation segments, camera link, progress
	LevelVerbose = 3 // State machine transitions, timings
	LevelTrace   = 4 // GPIO, tones
)

const (
	rule      = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"
	logPrefix = "[TurnGo] "
)

var (
	level  int
	out    io.Writer = os.Stdout
	logger *log.Logger
)

// Init sets the level (0-4). Level 0 disables all output.
func Init(debugLevel int) {
	level = debugLevel
	logger = nil
	if level > LevelOff {
		logger = log.New(out, logPrefix, log.LstdFlags|log.Lmicroseconds)
	}
}

// SetOutput redirects debug output, e.g. to tee it to the web status stream.
func SetOutput(w io.Writer) {
	out = w
	if logger != nil {
		logger.SetOutput(w)
	}
}

// Level returns the current debug level.
func Level() int {
	return level
}

// IsEnabled reports whether messages of minLevel are printed.
func IsEnabled(minLevel int) bool {
	return level >= minLevel
}

// logf prints format under tag when the level allows it.
func logf(minLevel int, tag, format string, args ...interface{}) {
	if level < minLevel || logger == nil {
		return
	}
	logger.Printf("["+tag+"] "+format, args...)
}

// Level 1

func Info(format string, args ...interface{}) { logf(LevelInfo, "INFO", format, args...) }

// Plan prints the photo plan of a session.
func Plan(totalPhotos, intervalDeg, targetDeg int) {
	logf(LevelInfo, "INFO", "Plan: %d photos every %d° over %d°", totalPhotos, intervalDeg, targetDeg)
}

// Mode prints a mode dispatcher transition.
func Mode(from, to fmt.Stringer) {
	logf(LevelInfo, "INFO", "Mode: %s -> %s", from, to)
}

// Value prints a named setting, aligned under a Section or Step.
func Value(name string, value interface{}) {
	logf(LevelInfo, "INFO", "  %s = %v", name, value)
}

// Error prints err at every level but off.
func Error(err error) { logf(LevelInfo, "ERROR", "%v", err) }

// Level 2

func Live(format string, args ...interface{}) { logf(LevelLive, "LIVE", format, args...) }

// Move prints a motor movement.
func Move(steps int, direction string) {
	logf(LevelLive, "LIVE", "Motor: %d steps (%s)", steps, direction)
}

// Shot prints a photo capture.
func Shot(photo, total int) { logf(LevelLive, "LIVE", "Photo %d/%d taken", photo, total) }

// Link prints a camera link status change.
func Link(status fmt.Stringer) { logf(LevelLive, "LIVE", "Camera link: %s", status) }

// Level 3

func Verbose(format string, args ...interface{}) { logf(LevelVerbose, "VERBOSE", format, args...) }

// PrintStruct prints v with field names.
func PrintStruct(name string, v interface{}) { logf(LevelVerbose, "VERBOSE", "%s: %+v", name, v) }

// Step prints a numbered startup step.
func Step(num int, description string) {
	logf(LevelVerbose, "VERBOSE", "Step %d: %s", num, description)
}

// State prints a state machine transition.
func State(machine string, from, to fmt.Stringer) {
	logf(LevelVerbose, "VERBOSE", "%s: %s -> %s", machine, from, to)
}

// Section prints a banner between startup phases.
func Section(name string) {
	if level < LevelVerbose || logger == nil {
		return
	}
	logger.Print(rule)
	logger.Printf("  %s", name)
	logger.Print(rule)
}

// Level 4

func Trace(format string, args ...interface{}) { logf(LevelTrace, "TRACE", format, args...) }

// GPIO prints a pin operation.
func GPIO(operation string, pin int, value interface{}) {
	logf(LevelTrace, "GPIO", "%s pin=%d value=%v", operation, pin, value)
}
