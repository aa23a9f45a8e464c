// Package clock provides the monotonic millisecond/microsecond counters the
// poll loop runs on. Both counters are 32 bits wide and wrap; elapsed time
// must always be computed with Since, never with signed subtraction.
package clock

import (
	"sync"
	"time"
)

// Clock is the monotonic time source consumed by every state machine.
type Clock interface {
	NowMillis() uint32
	NowMicros() uint32
}

// Since returns the elapsed ticks between since and now, wrap-safe.
func Since(now, since uint32) uint32 {
	return now - since
}

// Reached reports whether at least d ticks have elapsed since start.
func Reached(now, start, d uint32) bool {
	return Since(now, start) >= d
}

// Millis converts a duration to a millisecond tick count.
func Millis(d time.Duration) uint32 {
	return uint32(d / time.Millisecond)
}

// System is the process clock, counting from its creation.
type System struct {
	start time.Time
}

func NewSystem() *System {
	return &System{start: time.Now()}
}

func (s *System) NowMillis() uint32 {
	return uint32(time.Since(s.start).Milliseconds())
}

func (s *System) NowMicros() uint32 {
	return uint32(time.Since(s.start).Microseconds())
}

// Fake is a manually advanced clock for tests and simulations.
type Fake struct {
	mu     sync.Mutex
	micros uint64
}

// NewFake returns a fake clock reading startMillis.
func NewFake(startMillis uint32) *Fake {
	return &Fake{micros: uint64(startMillis) * 1000}
}

func (f *Fake) NowMillis() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint32(f.micros / 1000)
}

func (f *Fake) NowMicros() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint32(f.micros)
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.micros += uint64(d / time.Microsecond)
	f.mu.Unlock()
}
