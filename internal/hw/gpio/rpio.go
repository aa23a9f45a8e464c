package gpio

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"

	"github.com/cjeanneret/TurnGo/internal/debug"
)

// RPiDriver drives the Raspberry Pi header through go-rpio (memory mapped
// /dev/gpiomem).
type RPiDriver struct {
	mu   sync.Mutex
	pins map[int]PinMode
}

// NewRPiDriver maps the GPIO registers. It fails off a Raspberry Pi or
// without access to /dev/gpiomem.
func NewRPiDriver() (*RPiDriver, error) {
	debug.Info("Initializing real GPIO driver (go-rpio)")
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open GPIO: %w (are you running on a Raspberry Pi?)", err)
	}
	return &RPiDriver{pins: make(map[int]PinMode)}, nil
}

// SetupPin switches pin to mode and remembers it for Close.
func (r *RPiDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)
	p := rpio.Pin(pin)

	switch mode {
	case Input:
		p.Input()
		p.PullOff()
	case InputPullUp:
		p.Input()
		p.PullUp()
	case Output:
		p.Output()
	default:
		return fmt.Errorf("unknown pin mode: %d", mode)
	}

	r.mu.Lock()
	r.pins[pin] = mode
	r.mu.Unlock()
	return nil
}

// WritePin drives pin, switching it to an output first if needed.
func (r *RPiDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)
	if r.mode(pin) != Output {
		if err := r.SetupPin(pin, Output); err != nil {
			return err
		}
	}
	rpio.Pin(pin).Write(toRPIO(level))
	return nil
}

// ReadPin samples pin. A pin never set up is read as a pulled-up input.
func (r *RPiDriver) ReadPin(pin int) (Level, error) {
	if _, ok := r.lookup(pin); !ok {
		if err := r.SetupPin(pin, InputPullUp); err != nil {
			return Low, err
		}
	}
	return rpio.Pin(pin).Read() == rpio.High, nil
}

// Close drives every output low, so no coil or trigger stays energized,
// then leaves all used pins as pulled-up inputs and unmaps the registers.
func (r *RPiDriver) Close() error {
	debug.Trace("GPIO Close (real driver)")
	r.mu.Lock()
	defer r.mu.Unlock()

	for pin, mode := range r.pins {
		p := rpio.Pin(pin)
		if mode == Output {
			p.Low()
		}
		p.Input()
		p.PullUp()
		debug.Verbose("Released pin %d", pin)
	}
	clear(r.pins)
	return rpio.Close()
}

func (r *RPiDriver) lookup(pin int) (PinMode, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.pins[pin]
	return m, ok
}

func (r *RPiDriver) mode(pin int) PinMode {
	m, ok := r.lookup(pin)
	if !ok {
		return -1
	}
	return m
}

func toRPIO(l Level) rpio.State {
	if l == High {
		return rpio.High
	}
	return rpio.Low
}
