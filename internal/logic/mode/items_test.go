package mode

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cjeanneret/TurnGo/internal/config"
)

func TestItem_CycleWraps(t *testing.T) {
	assert.Equal(t, ItemStepMode, ItemDirection.Cycle(-1))
	assert.Equal(t, ItemDirection, ItemStepMode.Cycle(1))
	assert.Equal(t, ItemRotation, ItemSpeed.Cycle(1))
	assert.Equal(t, ItemSpeed, ItemSpeed.Cycle(len(Items)))
}

func TestItem_StepEveryDomain(t *testing.T) {
	m := config.DefaultMotion()

	assert.Equal(t, config.DirectionCCW, ItemDirection.Step(m, 1).Direction)
	assert.Equal(t, config.DirectionCCW, ItemDirection.Step(m, -1).Direction)
	assert.Equal(t, 6, ItemSpeed.Step(m, 1).SpeedMs)
	assert.Equal(t, 2, ItemSpeed.Step(m, -1).SpeedMs)
	assert.Equal(t, 540, ItemRotation.Step(m, 1).RotationAngleDeg)
	assert.Equal(t, 30, ItemInterval.Step(m, 1).PhotoIntervalDeg)
	assert.Equal(t, config.StepModeFull, ItemStepMode.Step(m, 1).StepMode)

	m.SpeedMs = 100
	assert.Equal(t, 2, ItemSpeed.Step(m, 1).SpeedMs)
	m.PhotoIntervalDeg = 5
	assert.Equal(t, 30, ItemInterval.Step(m, -1).PhotoIntervalDeg)
}

func TestItem_StepOutOfDomainRestarts(t *testing.T) {
	m := config.DefaultMotion()
	m.SpeedMs = 7
	assert.Equal(t, 2, ItemSpeed.Step(m, 1).SpeedMs)
}

func TestItem_Value(t *testing.T) {
	m := config.DefaultMotion()
	assert.Equal(t, "CW", ItemDirection.Value(m))
	assert.Equal(t, "4ms", ItemSpeed.Value(m))
	assert.Equal(t, "360°", ItemRotation.Value(m))
	assert.Equal(t, "15°", ItemInterval.Value(m))
	assert.Equal(t, "Half", ItemStepMode.Value(m))
	assert.Equal(t, "Item(9)", Item(9).String())
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "Photo Running", PhotoRunning.String())
	assert.Equal(t, "Mode(99)", Mode(99).String())
	assert.True(t, ScanMode.Idle())
	assert.False(t, Config.Idle())
	assert.True(t, ScanRunning.Running())
}
