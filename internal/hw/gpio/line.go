package gpio

import "fmt"

// Line is a named, bidirectional digital line. Idle lines are kept as
// pulled-up inputs; a line is driven only while Drive is in effect.
type Line struct {
	drv  Driver
	name string
	pin  int
}

// NewLine binds a named line to pin on drv.
func NewLine(drv Driver, name string, pin int) *Line {
	return &Line{drv: drv, name: name, pin: pin}
}

func (l *Line) Name() string { return l.name }
func (l *Line) Pin() int     { return l.pin }

// Configure sets the pin mode.
func (l *Line) Configure(mode PinMode) error {
	if err := l.drv.SetupPin(l.pin, mode); err != nil {
		return fmt.Errorf("configure %s (pin %d): %w", l.name, l.pin, err)
	}
	return nil
}

// Read samples the line.
func (l *Line) Read() (Level, error) {
	level, err := l.drv.ReadPin(l.pin)
	if err != nil {
		return Low, fmt.Errorf("read %s (pin %d): %w", l.name, l.pin, err)
	}
	return level, nil
}

// Write sets the output level of an already configured output.
func (l *Line) Write(level Level) error {
	if err := l.drv.WritePin(l.pin, level); err != nil {
		return fmt.Errorf("write %s (pin %d): %w", l.name, l.pin, err)
	}
	return nil
}

// Drive switches the line to output and writes level.
func (l *Line) Drive(level Level) error {
	if err := l.Configure(Output); err != nil {
		return err
	}
	return l.Write(level)
}

// Release returns the line to a pulled-up input.
func (l *Line) Release() error {
	return l.Configure(InputPullUp)
}
