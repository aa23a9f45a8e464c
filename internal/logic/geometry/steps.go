package geometry

import (
	"math"

	"github.com/cjeanneret/TurnGo/internal/hw/stepper"
)

// StepsPerRevolution returns the phase advances per output turn for mode,
// given the motor's full-step count.
func StepsPerRevolution(fullStepsPerRev int, mode stepper.StepMode) int {
	if mode == stepper.HalfStep {
		return fullStepsPerRev * 2
	}
	return fullStepsPerRev
}

// StepsCalculator converts angles to motor steps for one step mode. Build a
// new one whenever the step mode changes.
type StepsCalculator struct {
	stepsPerRev int
}

// NewStepsCalculator creates a step calculator for mode.
func NewStepsCalculator(fullStepsPerRev int, mode stepper.StepMode) *StepsCalculator {
	return &StepsCalculator{stepsPerRev: StepsPerRevolution(fullStepsPerRev, mode)}
}

func (s *StepsCalculator) StepsPerRevolution() int { return s.stepsPerRev }

// Resolution returns the angle of one step, in degrees.
func (s *StepsCalculator) Resolution() float64 {
	return 360.0 / float64(s.stepsPerRev)
}

// StepsFromAngle converts an angle (in degrees) to the nearest step count.
func (s *StepsCalculator) StepsFromAngle(angleDegrees float64) int {
	return int(math.Round(angleDegrees * float64(s.stepsPerRev) / 360.0))
}

// AngleFromSteps converts a step count back to degrees.
func (s *StepsCalculator) AngleFromSteps(steps int) float64 {
	return float64(steps) * 360.0 / float64(s.stepsPerRev)
}

// DegreesFromSteps is AngleFromSteps truncated to whole degrees, as shown
// on the progress screen.
func (s *StepsCalculator) DegreesFromSteps(steps int) int {
	return steps * 360 / s.stepsPerRev
}
