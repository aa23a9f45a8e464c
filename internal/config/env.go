package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "TURNGO_"

// envOverrides lists the settings that may come from the environment.
// Unset variables leave the pointer nil and the file value untouched.
type envOverrides struct {
	MockGPIO         *bool `env:"MOCK_GPIO"`
	DebugLevel       *int  `env:"DEBUG_LEVEL"`
	TickMs           *int  `env:"TICK_MS"`
	SpeedMs          *int  `env:"SPEED_MS"`
	RotationAngleDeg *int  `env:"ROTATION_ANGLE_DEG"`
	PhotoIntervalDeg *int  `env:"PHOTO_INTERVAL_DEG"`
}

// ApplyEnv overlays TURNGO_* variables onto cfg. environ replaces the
// process environment when non-nil (tests).
func ApplyEnv(cfg *Config, environ map[string]string) error {
	var ov envOverrides
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&ov, opts); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	if ov.MockGPIO != nil {
		cfg.Defaults.MockGPIO = *ov.MockGPIO
	}
	if ov.DebugLevel != nil {
		if *ov.DebugLevel < 0 || *ov.DebugLevel > 4 {
			return fmt.Errorf("%sDEBUG_LEVEL must be between 0 and 4, got %d", EnvPrefix, *ov.DebugLevel)
		}
		cfg.Defaults.DebugLevel = *ov.DebugLevel
	}
	if ov.TickMs != nil {
		if *ov.TickMs <= 0 {
			return fmt.Errorf("%sTICK_MS must be > 0, got %d", EnvPrefix, *ov.TickMs)
		}
		cfg.Defaults.TickMs = *ov.TickMs
	}

	m := cfg.Motion
	if ov.SpeedMs != nil {
		m.SpeedMs = *ov.SpeedMs
	}
	if ov.RotationAngleDeg != nil {
		m.RotationAngleDeg = *ov.RotationAngleDeg
	}
	if ov.PhotoIntervalDeg != nil {
		m.PhotoIntervalDeg = *ov.PhotoIntervalDeg
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("environment override: %w", err)
	}
	cfg.Motion = m
	return nil
}
