package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Motor directions as stored in the config file.
const (
	DirectionCW  = "cw"
	DirectionCCW = "ccw"
)

// Step modes as stored in the config file.
const (
	StepModeHalf = "half"
	StepModeFull = "full"
)

// Discrete domains of the user-editable motion settings, in display order.
var (
	Directions     = []string{DirectionCW, DirectionCCW}
	StepModes      = []string{StepModeHalf, StepModeFull}
	SpeedsMs       = []int{2, 4, 6, 8, 10, 15, 30, 60, 100}
	RotationAngles = []int{90, 180, 360, 540, 720}
	PhotoIntervals = []int{5, 10, 15, 30}
)

// StepperConfig holds the wiring of the unipolar stepper (ULN2003 style).
type StepperConfig struct {
	Pins        [4]int `yaml:"pins"`          // IN1..IN4 (BCM)
	StepsPerRev int    `yaml:"steps_per_rev"` // full steps per output revolution; half-step doubles it
}

// CameraConfig describes the camera link cable and trigger timing.
type CameraConfig struct {
	CablePin          int `yaml:"cable_pin"`          // pulled up, LOW when the link cable is seated
	SensePin          int `yaml:"sense_pin"`          // HIGH when the camera is powered; 0 = share focus_pin
	FocusPin          int `yaml:"focus_pin"`          // active LOW
	ShutterPin        int `yaml:"shutter_pin"`        // active LOW
	FocusDelayMs      int `yaml:"focus_delay_ms"`     // autofocus hold
	ShutterDelayMs    int `yaml:"shutter_delay_ms"`   // shutter hold
	PreShotDelayMs    int `yaml:"pre_shot_delay_ms"`  // settle before the shutter
	PostShotDelayMs   int `yaml:"post_shot_delay_ms"` // settle after the shutter before moving
	SettleDelayMs     int `yaml:"settle_delay_ms"`    // settle after a rotation segment
	CompensationSteps int `yaml:"compensation_steps"` // extra steps per segment for start/stop losses
}

// KeysConfig describes the four-key keypad.
type KeysConfig struct {
	CancelPin   int  `yaml:"cancel_pin"`
	PrevPin     int  `yaml:"prev_pin"`
	NextPin     int  `yaml:"next_pin"`
	OkPin       int  `yaml:"ok_pin"`
	ActiveLow   bool `yaml:"active_low"` // keys wired to GND with pull-ups
	LongPressMs int  `yaml:"long_press_ms"`
}

// MotionConfig holds the settings edited from the on-device config menu.
type MotionConfig struct {
	Direction        string `yaml:"direction" json:"direction"`                   // cw / ccw
	StepMode         string `yaml:"step_mode" json:"step_mode"`                   // half / full
	SpeedMs          int    `yaml:"speed_ms" json:"speed_ms"`                     // delay between motor steps
	RotationAngleDeg int    `yaml:"rotation_angle_deg" json:"rotation_angle_deg"` // total sweep of a photo session
	PhotoIntervalDeg int    `yaml:"photo_interval_deg" json:"photo_interval_deg"` // angle between two photos
}

// DefaultsConfig contains generic runtime parameters.
type DefaultsConfig struct {
	DebugLevel        int  `yaml:"debug_level"`          // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO          bool `yaml:"mock_gpio"`            // use mock GPIO (true=dev/test, false=real Raspberry Pi)
	TickMs            int  `yaml:"tick_ms"`              // poll loop period
	AbortOnCameraLost bool `yaml:"abort_on_camera_lost"` // stop a photo session when the camera drops
}

// Config aggregates all application configuration.
type Config struct {
	Stepper  StepperConfig  `yaml:"stepper"`
	Camera   CameraConfig   `yaml:"camera"`
	Keys     KeysConfig     `yaml:"keys"`
	Motion   MotionConfig   `yaml:"motion"`
	Defaults DefaultsConfig `yaml:"defaults"`

	// Warnings lists the values Load replaced with defaults.
	Warnings []string `yaml:"-"`
}

// DefaultMotion returns the factory motion settings.
func DefaultMotion() MotionConfig {
	return MotionConfig{
		Direction:        DirectionCW,
		StepMode:         StepModeHalf,
		SpeedMs:          4,
		RotationAngleDeg: 360,
		PhotoIntervalDeg: 15,
	}
}

// Default returns a complete configuration with factory values.
func Default() *Config {
	cfg := preset()
	cfg.applyDefaults()
	return cfg
}

// DefaultCompensationSteps is used when compensation_steps is absent. An
// explicit 0 disables compensation.
const DefaultCompensationSteps = 4

// preset returns the values that applyDefaults cannot tell apart from an
// explicit zero, so they are set before decoding.
func preset() *Config {
	return &Config{Camera: CameraConfig{CompensationSteps: DefaultCompensationSteps}}
}

// ValidateConfigPath checks that path points to a .yaml file inside a
// configs/ directory and contains no traversal.
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("config path %q must not contain '..'", path)
		}
	}
	clean := filepath.Clean(path)
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config path %q must have a .yaml extension", path)
	}
	if filepath.Base(filepath.Dir(clean)) != "configs" {
		return fmt.Errorf("config path %q must be inside a configs/ directory", path)
	}
	return nil
}

// MaxConfigFileBytes caps the size of a config file accepted by Load.
const MaxConfigFileBytes = 64 << 10

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file %s is %d bytes, limit is %d", path, info.Size(), MaxConfigFileBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// SenseLostMarginMs is how long the sense line may stay LOW past the
// shutter hold before the camera counts as lost.
const SenseLostMarginMs = 500

// Parse decodes YAML data, fills defaults and validates the result.
// Invalid motion settings are reset to factory values and reported in
// Warnings; invalid wiring is an error.
func Parse(data []byte) (*Config, error) {
	cfg := preset()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	cfg.applyDefaults()

	if cfg.Stepper.StepsPerRev < 4 {
		return nil, fmt.Errorf("stepper.steps_per_rev must be >= 4, got %d", cfg.Stepper.StepsPerRev)
	}
	if cfg.Defaults.DebugLevel < 0 || cfg.Defaults.DebugLevel > 4 {
		return nil, fmt.Errorf("debug_level must be between 0 and 4, got %d", cfg.Defaults.DebugLevel)
	}
	if cfg.Camera.CablePin == cfg.Camera.FocusPin || cfg.Camera.CablePin == cfg.Camera.ShutterPin {
		return nil, fmt.Errorf("camera.cable_pin must differ from the trigger pins")
	}
	// A shared sense line reads LOW for the whole focus hold; the link
	// declares the camera lost once LOW outlasts the shutter hold by
	// SenseLostMarginMs.
	if cfg.Camera.SensePin == cfg.Camera.FocusPin &&
		cfg.Camera.FocusDelayMs >= cfg.Camera.ShutterDelayMs+SenseLostMarginMs {
		return nil, fmt.Errorf("camera.focus_delay_ms (%d) must be below shutter_delay_ms + %d (%d) while sense_pin shares focus_pin",
			cfg.Camera.FocusDelayMs, SenseLostMarginMs, cfg.Camera.ShutterDelayMs+SenseLostMarginMs)
	}

	cfg.sanitizeMotion()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Stepper.Pins == [4]int{} {
		c.Stepper.Pins = [4]int{17, 18, 27, 22}
	}
	if c.Stepper.StepsPerRev <= 0 {
		c.Stepper.StepsPerRev = 2048 // 28BYJ-48 full steps per output revolution
	}

	if c.Camera.CablePin <= 0 {
		c.Camera.CablePin = 26
	}
	if c.Camera.FocusPin <= 0 {
		c.Camera.FocusPin = 23
	}
	if c.Camera.ShutterPin <= 0 {
		c.Camera.ShutterPin = 24
	}
	if c.Camera.SensePin <= 0 {
		c.Camera.SensePin = c.Camera.FocusPin
	}
	if c.Camera.FocusDelayMs <= 0 {
		c.Camera.FocusDelayMs = 500 // 500ms for autofocus
	}
	if c.Camera.ShutterDelayMs <= 0 {
		c.Camera.ShutterDelayMs = 200 // 200ms shutter hold
	}
	if c.Camera.PreShotDelayMs <= 0 {
		c.Camera.PreShotDelayMs = 300
	}
	if c.Camera.PostShotDelayMs <= 0 {
		c.Camera.PostShotDelayMs = 800
	}
	if c.Camera.SettleDelayMs <= 0 {
		c.Camera.SettleDelayMs = 500
	}
	if c.Camera.CompensationSteps < 0 {
		c.Camera.CompensationSteps = 0
	}

	if c.Keys.CancelPin <= 0 {
		c.Keys.CancelPin = 5
	}
	if c.Keys.PrevPin <= 0 {
		c.Keys.PrevPin = 6
	}
	if c.Keys.NextPin <= 0 {
		c.Keys.NextPin = 13
	}
	if c.Keys.OkPin <= 0 {
		c.Keys.OkPin = 19
	}
	if c.Keys.LongPressMs <= 0 {
		c.Keys.LongPressMs = 1000
	}

	def := DefaultMotion()
	if c.Motion.Direction == "" {
		c.Motion.Direction = def.Direction
	}
	if c.Motion.StepMode == "" {
		c.Motion.StepMode = def.StepMode
	}
	if c.Motion.SpeedMs == 0 {
		c.Motion.SpeedMs = def.SpeedMs
	}
	if c.Motion.RotationAngleDeg == 0 {
		c.Motion.RotationAngleDeg = def.RotationAngleDeg
	}
	if c.Motion.PhotoIntervalDeg == 0 {
		c.Motion.PhotoIntervalDeg = def.PhotoIntervalDeg
	}

	if c.Defaults.TickMs <= 0 {
		c.Defaults.TickMs = 1
	}
}

// sanitizeMotion replaces each out-of-domain motion value with its default.
func (c *Config) sanitizeMotion() {
	def := DefaultMotion()
	m := &c.Motion
	if !ValidDirection(m.Direction) {
		c.warn("motion.direction %q invalid, using %q", m.Direction, def.Direction)
		m.Direction = def.Direction
	}
	if !ValidStepMode(m.StepMode) {
		c.warn("motion.step_mode %q invalid, using %q", m.StepMode, def.StepMode)
		m.StepMode = def.StepMode
	}
	if !ValidSpeed(m.SpeedMs) {
		c.warn("motion.speed_ms %d invalid, using %d", m.SpeedMs, def.SpeedMs)
		m.SpeedMs = def.SpeedMs
	}
	if !ValidRotationAngle(m.RotationAngleDeg) {
		c.warn("motion.rotation_angle_deg %d invalid, using %d", m.RotationAngleDeg, def.RotationAngleDeg)
		m.RotationAngleDeg = def.RotationAngleDeg
	}
	if !ValidPhotoInterval(m.PhotoIntervalDeg) {
		c.warn("motion.photo_interval_deg %d invalid, using %d", m.PhotoIntervalDeg, def.PhotoIntervalDeg)
		m.PhotoIntervalDeg = def.PhotoIntervalDeg
	}
}

func (c *Config) warn(format string, args ...interface{}) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

// ErrInvalidMotion wraps every motion value outside its domain.
var ErrInvalidMotion = errors.New("invalid motion setting")

// Validate checks every motion value against its discrete domain.
func (m MotionConfig) Validate() error {
	if !ValidDirection(m.Direction) {
		return fmt.Errorf("%w: direction must be one of %v, got %q", ErrInvalidMotion, Directions, m.Direction)
	}
	if !ValidStepMode(m.StepMode) {
		return fmt.Errorf("%w: step_mode must be one of %v, got %q", ErrInvalidMotion, StepModes, m.StepMode)
	}
	if !ValidSpeed(m.SpeedMs) {
		return fmt.Errorf("%w: speed_ms must be one of %v, got %d", ErrInvalidMotion, SpeedsMs, m.SpeedMs)
	}
	if !ValidRotationAngle(m.RotationAngleDeg) {
		return fmt.Errorf("%w: rotation_angle_deg must be one of %v, got %d", ErrInvalidMotion, RotationAngles, m.RotationAngleDeg)
	}
	if !ValidPhotoInterval(m.PhotoIntervalDeg) {
		return fmt.Errorf("%w: photo_interval_deg must be one of %v, got %d", ErrInvalidMotion, PhotoIntervals, m.PhotoIntervalDeg)
	}
	return nil
}

func ValidDirection(d string) bool  { return slices.Contains(Directions, d) }
func ValidStepMode(s string) bool   { return slices.Contains(StepModes, s) }
func ValidSpeed(ms int) bool        { return slices.Contains(SpeedsMs, ms) }
func ValidRotationAngle(a int) bool { return slices.Contains(RotationAngles, a) }
func ValidPhotoInterval(i int) bool { return slices.Contains(PhotoIntervals, i) }

// Save writes cfg as YAML to path, replacing the file atomically.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".turngo-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// HalfStep reports whether the motor runs in half-step mode.
func (m MotionConfig) HalfStep() bool {
	return m.StepMode == StepModeHalf
}

// Clockwise reports whether the motor turns clockwise.
func (m MotionConfig) Clockwise() bool {
	return m.Direction == DirectionCW
}

// Speed returns the duration between two motor steps.
func (m MotionConfig) Speed() time.Duration {
	return time.Duration(m.SpeedMs) * time.Millisecond
}

// FocusDelay returns the autofocus hold duration.
func (c *Config) FocusDelay() time.Duration {
	return time.Duration(c.Camera.FocusDelayMs) * time.Millisecond
}

// ShutterDelay returns the shutter hold duration.
func (c *Config) ShutterDelay() time.Duration {
	return time.Duration(c.Camera.ShutterDelayMs) * time.Millisecond
}

// PreShotDelay returns the settle delay before each shutter.
func (c *Config) PreShotDelay() time.Duration {
	return time.Duration(c.Camera.PreShotDelayMs) * time.Millisecond
}

// PostShotDelay returns the delay after shot before movement.
func (c *Config) PostShotDelay() time.Duration {
	return time.Duration(c.Camera.PostShotDelayMs) * time.Millisecond
}

// SettleDelay returns the delay after a rotation segment.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Camera.SettleDelayMs) * time.Millisecond
}

// LongPress returns the hold time of a long key press.
func (c *Config) LongPress() time.Duration {
	return time.Duration(c.Keys.LongPressMs) * time.Millisecond
}

// TickPeriod returns the poll loop period.
func (c *Config) TickPeriod() time.Duration {
	return time.Duration(c.Defaults.TickMs) * time.Millisecond
}
