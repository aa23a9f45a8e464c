package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cjeanneret/TurnGo/internal/config"
	"github.com/cjeanneret/TurnGo/internal/debug"
	"github.com/cjeanneret/TurnGo/internal/device"
	"github.com/cjeanneret/TurnGo/internal/hw/gpio"
	"github.com/cjeanneret/TurnGo/internal/hw/keys"
	"github.com/cjeanneret/TurnGo/internal/metrics"
	"github.com/cjeanneret/TurnGo/internal/present"
	"github.com/cjeanneret/TurnGo/internal/web"
)

const defaultWebPort = 8080

// overrides are the motion settings given on the command line. Zero values
// keep the config file value.
type overrides struct {
	Direction        string
	StepMode         string
	SpeedMs          int
	RotationAngleDeg int
	PhotoIntervalDeg int
}

type runOptions struct {
	webPort   int
	serialDev string
	baud      int
	ov        overrides
}

func newRunCmd(a *app) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the turntable until interrupted",
		Long: `Runs the poll loop on the GPIO pins of the config file. With --web the
status page, key injection and metrics are served over HTTP; with --serial
key presses are read from a serial line ("-" reads stdin).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validatePort(opts.webPort); err != nil {
				return err
			}
			if err := validateOverrides(opts.ov); err != nil {
				return fmt.Errorf("invalid CLI override: %w", err)
			}
			applyOverrides(a.cfg, opts.ov)

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return run(ctx, a, opts)
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.webPort, "web", 0, "start web server on port; --web alone uses 8080")
	f.Lookup("web").NoOptDefVal = fmt.Sprint(defaultWebPort)
	f.StringVar(&opts.serialDev, "serial", "", `serial device for the key console, "-" for stdin`)
	f.IntVar(&opts.baud, "baud", 115200, "serial baud rate")
	f.StringVar(&opts.ov.Direction, "direction", "", "override motor direction (cw, ccw)")
	f.StringVar(&opts.ov.StepMode, "step-mode", "", "override step mode (half, full)")
	f.IntVar(&opts.ov.SpeedMs, "speed", 0, "override delay between motor steps in ms")
	f.IntVar(&opts.ov.RotationAngleDeg, "angle", 0, "override rotation angle of a photo session in degrees")
	f.IntVar(&opts.ov.PhotoIntervalDeg, "interval", 0, "override angle between two photos in degrees")
	return cmd
}

// run wires the hardware, the device loop and the outer services, and
// blocks until ctx is done or one of them fails.
func run(ctx context.Context, a *app, opts runOptions) error {
	cfg := a.cfg

	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)
	debug.Step(1, "Initializing GPIO driver")
	drv, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		return fmt.Errorf("init GPIO failed: %w", err)
	}
	defer func() {
		if err := drv.Close(); err != nil {
			debug.Error(fmt.Errorf("closing GPIO driver failed: %w", err))
		}
	}()

	debug.Step(2, "Building device")
	m := metrics.New()
	sink := present.Multi{present.LogSink{}}
	var broadcaster *web.Broadcaster
	if opts.webPort > 0 {
		broadcaster = web.NewBroadcaster()
		sink = append(sink, broadcaster)
		debug.SetOutput(io.MultiWriter(os.Stdout, web.LogWriter(broadcaster)))
	}

	store := config.NewFileStore(a.cfgPath, cfg)
	dev, err := device.New(cfg, drv, store, device.Options{Sink: sink, Metrics: m})
	if err != nil {
		return fmt.Errorf("init device failed: %w", err)
	}
	debug.PrintStruct("Stepper", cfg.Stepper)
	debug.PrintStruct("Camera", cfg.Camera)
	debug.PrintStruct("Motion", cfg.Motion)

	var srv *web.Server
	if opts.webPort > 0 {
		debug.Step(3, "Preparing web server")
		srv, err = web.NewServer(fmt.Sprintf(":%d", opts.webPort), dev, broadcaster, m.Handler())
		if err != nil {
			return err
		}
	}
	var console *keys.SerialConsole
	if opts.serialDev != "" && opts.serialDev != "-" {
		console, err = keys.OpenSerialConsole(opts.serialDev, opts.baud, dev.Queue())
		if err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dev.Run(ctx) })
	if srv != nil {
		g.Go(func() error { return srv.Run(ctx) })
	}
	if console != nil {
		g.Go(func() error { return console.Run(ctx) })
	}
	if opts.serialDev == "-" {
		// stdin reads do not unblock on cancel, so this one is not waited for
		go func() {
			if err := keys.Serve(ctx, os.Stdin, dev.Queue()); err != nil {
				debug.Error(err)
			}
		}()
	}

	return g.Wait()
}

func validatePort(port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", port)
	}
	return nil
}

// validateOverrides checks the non-zero overrides against the menu domains.
func validateOverrides(ov overrides) error {
	if ov.Direction != "" && !config.ValidDirection(ov.Direction) {
		return fmt.Errorf("direction must be one of %v, got %q", config.Directions, ov.Direction)
	}
	if ov.StepMode != "" && !config.ValidStepMode(ov.StepMode) {
		return fmt.Errorf("step-mode must be one of %v, got %q", config.StepModes, ov.StepMode)
	}
	if ov.SpeedMs != 0 && !config.ValidSpeed(ov.SpeedMs) {
		return fmt.Errorf("speed must be one of %v, got %d", config.SpeedsMs, ov.SpeedMs)
	}
	if ov.RotationAngleDeg != 0 && !config.ValidRotationAngle(ov.RotationAngleDeg) {
		return fmt.Errorf("angle must be one of %v, got %d", config.RotationAngles, ov.RotationAngleDeg)
	}
	if ov.PhotoIntervalDeg != 0 && !config.ValidPhotoInterval(ov.PhotoIntervalDeg) {
		return fmt.Errorf("interval must be one of %v, got %d", config.PhotoIntervals, ov.PhotoIntervalDeg)
	}
	return nil
}

// applyOverrides mutates cfg with overrides. Only non-zero values are applied.
func applyOverrides(cfg *config.Config, ov overrides) {
	if ov.Direction != "" {
		cfg.Motion.Direction = ov.Direction
	}
	if ov.StepMode != "" {
		cfg.Motion.StepMode = ov.StepMode
	}
	if ov.SpeedMs != 0 {
		cfg.Motion.SpeedMs = ov.SpeedMs
	}
	if ov.RotationAngleDeg != 0 {
		cfg.Motion.RotationAngleDeg = ov.RotationAngleDeg
	}
	if ov.PhotoIntervalDeg != 0 {
		cfg.Motion.PhotoIntervalDeg = ov.PhotoIntervalDeg
	}
}
