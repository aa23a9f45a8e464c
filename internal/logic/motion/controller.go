package motion

import (
	"errors"
	"fmt"

	"github.com/cjeanneret/TurnGo/internal/debug"
	"github.com/cjeanneret/TurnGo/internal/hw/stepper"
)

var (
	// ErrNotOwner is returned when a motion command comes from a session
	// that does not hold the motor.
	ErrNotOwner = errors.New("motion: caller does not own the motor")
	// ErrBusy is returned by Acquire while another session holds the motor.
	ErrBusy = errors.New("motion: motor held by another session")
)

// Motor is the stepper as seen by the controller. *stepper.Sequencer
// implements it.
type Motor interface {
	SetDirection(stepper.Direction)
	SetStepMode(stepper.StepMode)
	StepMode() stepper.StepMode
	SetCustomDelay(ms int)
	RotateSteps(n int)
	Start()
	Stop()
	IsRunning() bool
	StepCount() uint64
	ResetStepCount()
	StepsPerRevolution() int
}

// Settings are applied to the motor before a session moves it.
type Settings struct {
	Direction stepper.Direction
	Mode      stepper.StepMode
	DelayMs   int
}

// Controller serializes access to the single stepper. It is an
// intermediate layer between the capture sessions and the sequencer:
// a session must Acquire the motor before commanding it.
type Controller struct {
	motor Motor
	owner string
}

func NewController(m Motor) *Controller {
	return &Controller{motor: m}
}

// Acquire gives owner exclusive use of the motor. Re-acquiring by the
// current owner is allowed.
func (c *Controller) Acquire(owner string) error {
	if owner == "" {
		return fmt.Errorf("acquire: %w", ErrNotOwner)
	}
	if c.owner != "" && c.owner != owner {
		return fmt.Errorf("acquire by %s: %w (%s)", owner, ErrBusy, c.owner)
	}
	c.owner = owner
	return nil
}

// Release stops the motor and frees it. Releasing a motor owner does not
// hold is a no-op.
func (c *Controller) Release(owner string) {
	if c.owner != owner {
		return
	}
	c.motor.Stop()
	c.owner = ""
	debug.Verbose("Motion: released by %s", owner)
}

// Owner returns the current holder, "" when free.
func (c *Controller) Owner() string { return c.owner }

func (c *Controller) check(owner string) error {
	if owner == "" || owner != c.owner {
		return fmt.Errorf("%s: %w", owner, ErrNotOwner)
	}
	return nil
}

// Configure applies direction, step mode and speed. The step mode is only
// written when it changes, since changing it resets the phase position.
func (c *Controller) Configure(owner string, s Settings) error {
	if err := c.check(owner); err != nil {
		return err
	}
	if c.motor.IsRunning() {
		c.motor.Stop()
	}
	c.motor.SetDirection(s.Direction)
	if c.motor.StepMode() != s.Mode {
		c.motor.SetStepMode(s.Mode)
	}
	c.motor.SetCustomDelay(s.DelayMs)
	return nil
}

// Move starts a finite move of n steps.
func (c *Controller) Move(owner string, n int) error {
	if err := c.check(owner); err != nil {
		return err
	}
	c.motor.RotateSteps(n)
	return nil
}

// Run rotates continuously until Stop.
func (c *Controller) Run(owner string) error {
	if err := c.check(owner); err != nil {
		return err
	}
	c.motor.Start()
	return nil
}

// Stop halts the motor and de-energizes it.
func (c *Controller) Stop(owner string) error {
	if err := c.check(owner); err != nil {
		return err
	}
	c.motor.Stop()
	return nil
}

// ResetSteps zeroes the motor step counter.
func (c *Controller) ResetSteps(owner string) error {
	if err := c.check(owner); err != nil {
		return err
	}
	c.motor.ResetStepCount()
	return nil
}

func (c *Controller) Running() bool           { return c.motor.IsRunning() }
func (c *Controller) Steps() uint64           { return c.motor.StepCount() }
func (c *Controller) StepsPerRevolution() int { return c.motor.StepsPerRevolution() }
