package mode

import (
	"fmt"
	"slices"

	"github.com/cjeanneret/TurnGo/internal/config"
)

// Item is an entry of the configuration menu.
type Item int

const (
	ItemDirection Item = iota
	ItemSpeed
	ItemRotation
	ItemInterval
	ItemStepMode
	itemCount
)

var itemNames = [...]string{
	ItemDirection: "Motor Dir",
	ItemSpeed:     "Motor Speed",
	ItemRotation:  "Rotation",
	ItemInterval:  "Photo Int",
	ItemStepMode:  "Step Mode",
}

func (i Item) String() string {
	if i < 0 || i >= itemCount {
		return fmt.Sprintf("Item(%d)", int(i))
	}
	return itemNames[i]
}

// Items lists the menu in display order.
var Items = [...]Item{ItemDirection, ItemSpeed, ItemRotation, ItemInterval, ItemStepMode}

// Cycle moves the selection by delta, wrapping at both ends.
func (i Item) Cycle(delta int) Item {
	return Item(wrap(int(i)+delta, int(itemCount)))
}

// Value formats the item's value in m.
func (i Item) Value(m config.MotionConfig) string {
	switch i {
	case ItemDirection:
		if m.Clockwise() {
			return "CW"
		}
		return "CCW"
	case ItemSpeed:
		return fmt.Sprintf("%dms", m.SpeedMs)
	case ItemRotation:
		return fmt.Sprintf("%d°", m.RotationAngleDeg)
	case ItemInterval:
		return fmt.Sprintf("%d°", m.PhotoIntervalDeg)
	case ItemStepMode:
		if m.HalfStep() {
			return "Half"
		}
		return "Full"
	}
	return ""
}

// Step returns m with the item's value moved delta places through its
// discrete domain, wrapping at both ends. A value outside the domain
// restarts from the first entry.
func (i Item) Step(m config.MotionConfig, delta int) config.MotionConfig {
	switch i {
	case ItemDirection:
		m.Direction = cycle(config.Directions, m.Direction, delta)
	case ItemSpeed:
		m.SpeedMs = cycle(config.SpeedsMs, m.SpeedMs, delta)
	case ItemRotation:
		m.RotationAngleDeg = cycle(config.RotationAngles, m.RotationAngleDeg, delta)
	case ItemInterval:
		m.PhotoIntervalDeg = cycle(config.PhotoIntervals, m.PhotoIntervalDeg, delta)
	case ItemStepMode:
		m.StepMode = cycle(config.StepModes, m.StepMode, delta)
	}
	return m
}

func cycle[T comparable](values []T, cur T, delta int) T {
	idx := slices.Index(values, cur)
	if idx < 0 {
		return values[0]
	}
	return values[wrap(idx+delta, len(values))]
}

func wrap(i, n int) int {
	return ((i % n) + n) % n
}
