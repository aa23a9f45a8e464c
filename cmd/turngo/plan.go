package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cjeanneret/TurnGo/internal/config"
	"github.com/cjeanneret/TurnGo/internal/hw/stepper"
	"github.com/cjeanneret/TurnGo/internal/logic/geometry"
)

func newPlanCmd(a *app) *cobra.Command {
	var ov overrides
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the photo plan for the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOverrides(ov); err != nil {
				return fmt.Errorf("invalid CLI override: %w", err)
			}
			applyOverrides(a.cfg, ov)
			return printPlan(cmd.OutOrStdout(), a.cfg)
		},
	}
	f := cmd.Flags()
	f.StringVar(&ov.StepMode, "step-mode", "", "override step mode (half, full)")
	f.IntVar(&ov.RotationAngleDeg, "angle", 0, "override rotation angle in degrees")
	f.IntVar(&ov.PhotoIntervalDeg, "interval", 0, "override angle between two photos in degrees")
	return cmd
}

// segmentsShown caps the per-segment listing.
const segmentsShown = 8

func printPlan(w io.Writer, cfg *config.Config) error {
	m := cfg.Motion
	mode := stepper.FullStep
	if m.HalfStep() {
		mode = stepper.HalfStep
	}
	plan, err := geometry.PlanPhotos(m.RotationAngleDeg, m.PhotoIntervalDeg,
		cfg.Stepper.StepsPerRev, mode, cfg.Camera.CompensationSteps)
	if err != nil {
		return err
	}
	calc := geometry.NewStepsCalculator(cfg.Stepper.StepsPerRev, mode)

	fmt.Fprintf(w, "Sweep:         %d° every %d° (%s step, %s)\n", plan.TargetDeg, plan.IntervalDeg, mode, m.Direction)
	fmt.Fprintf(w, "Photos:        %d\n", plan.TotalPhotos)
	fmt.Fprintf(w, "Steps/turn:    %d (%.4f°/step)\n", plan.StepsPerRevolution, calc.Resolution())
	fmt.Fprintf(w, "Compensation:  %d steps/segment\n", plan.CompensationSteps)

	n := min(plan.TotalPhotos, segmentsShown)
	total := 0
	for _, s := range plan.SegmentSteps(plan.TotalPhotos) {
		total += s
	}
	fmt.Fprintf(w, "Segments:      %v", plan.SegmentSteps(n))
	if plan.TotalPhotos > n {
		fmt.Fprintf(w, " ... (%d more)", plan.TotalPhotos-n)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total steps:   %d\n", total)
	fmt.Fprintf(w, "Step delay:    %d ms\n", m.SpeedMs)
	return nil
}
