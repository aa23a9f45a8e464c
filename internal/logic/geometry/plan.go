package geometry

import (
	"fmt"

	"github.com/cjeanneret/TurnGo/internal/hw/stepper"
)

// PhotoPlan describes a turntable photo session: how many photos, and how
// far to rotate between two of them.
type PhotoPlan struct {
	TargetDeg          int // total sweep
	IntervalDeg        int // angle between two photos
	TotalPhotos        int // TargetDeg / IntervalDeg; the final position is not photographed
	StepsPerRevolution int // in the session's step mode
	CompensationSteps  int // added to every segment for start/stop losses
}

// PlanPhotos computes the plan for sweeping targetDeg in intervalDeg
// increments.
func PlanPhotos(targetDeg, intervalDeg, fullStepsPerRev int, mode stepper.StepMode, compensation int) (*PhotoPlan, error) {
	if intervalDeg <= 0 {
		return nil, fmt.Errorf("photo interval must be > 0, got %d", intervalDeg)
	}
	if targetDeg < intervalDeg {
		return nil, fmt.Errorf("rotation angle %d° is smaller than the photo interval %d°", targetDeg, intervalDeg)
	}
	if fullStepsPerRev <= 0 {
		return nil, fmt.Errorf("steps per revolution must be > 0, got %d", fullStepsPerRev)
	}
	if compensation < 0 {
		compensation = 0
	}
	return &PhotoPlan{
		TargetDeg:          targetDeg,
		IntervalDeg:        intervalDeg,
		TotalPhotos:        targetDeg / intervalDeg,
		StepsPerRevolution: StepsPerRevolution(fullStepsPerRev, mode),
		CompensationSteps:  compensation,
	}, nil
}

// Segments returns a fresh segment iterator for the plan.
func (p *PhotoPlan) Segments() *Segmenter {
	return &Segmenter{
		num:          p.IntervalDeg * p.StepsPerRevolution,
		compensation: p.CompensationSteps,
	}
}

// SegmentSteps lists the step counts of the first n segments.
func (p *PhotoPlan) SegmentSteps(n int) []int {
	seg := p.Segments()
	out := make([]int, n)
	for i := range out {
		out[i] = seg.Next()
	}
	return out
}

// Segmenter yields the step count of successive rotation segments. The
// fraction lost by integer division is carried into later segments, so the
// sum over k segments never drifts more than one step from the exact angle.
type Segmenter struct {
	num          int // interval * steps per revolution
	compensation int
	remainder    int // in 1/360 step
}

// Next returns the steps of the next segment, compensation included.
func (s *Segmenter) Next() int {
	total := s.num + s.remainder
	s.remainder = total % 360
	return total/360 + s.compensation
}

// Remainder returns the carried fraction, in 1/360 step.
func (s *Segmenter) Remainder() int { return s.remainder }
