package capture

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjeanneret/TurnGo/internal/config"
	"github.com/cjeanneret/TurnGo/internal/hw/camera"
	"github.com/cjeanneret/TurnGo/internal/hw/gpio"
	"github.com/cjeanneret/TurnGo/internal/logic/motion"
	"github.com/cjeanneret/TurnGo/internal/present"
)

func TestPhoto_Scenario360By90(t *testing.T) {
	r := newRig(t, realTimings, 2048)
	r.connectCamera()

	events, err := r.photo.Start(r.now(), motionSettingsFor(360, 90, 2, config.StepModeHalf))
	require.NoError(t, err)
	r.present(events)
	assert.Equal(t, PhotoCountdown, r.photo.State())
	assert.Equal(t, 4, r.photo.TotalPhotos())
	assert.Equal(t, OwnerPhoto, r.ctrl.Owner())

	var lastSettle uint32
	r.runUntil(func() bool {
		if r.photo.State() == PhotoRotating && !r.seq.IsRunning() {
			lastSettle = r.now()
		}
		return r.photo.State() == PhotoComplete
	}, 60*time.Second)

	assert.Equal(t, uint64(4), r.trig.Shots(), "four shutter fires")
	assert.Equal(t, 4, r.photo.PhotosDone())
	assert.Equal(t, 4, r.photo.Segments(), "three segments between photos plus the return to start")
	assert.Equal(t, uint64(4*1028), r.seq.TotalSteps(), "1024 steps per 90° plus 4 compensation")
	assert.Equal(t, 360, r.photo.AngleDeg())
	assert.LessOrEqual(t, r.now()-lastSettle, uint32(2000))
	assert.Empty(t, r.ctrl.Owner(), "motor released on completion")
	assert.True(t, r.coilsOff())
	assert.True(t, r.triggerLinesReleased())
	assert.True(t, r.photo.Running(), "completion banner still holds the device")

	completeAt := r.now()
	r.runUntil(func() bool { return r.photo.State() == PhotoIdle }, 3*time.Second)
	assert.Equal(t, uint32(2000), r.now()-completeAt)
	assert.False(t, r.photo.Running())

	tones := r.rec.Tones()
	assert.Equal(t, 3, countTones(tones, present.ToneCountdown))
	require.GreaterOrEqual(t, len(tones), 2)
	assert.Equal(t, present.ToneComplete2, tones[len(tones)-1])
	assert.Equal(t, present.ToneComplete, tones[len(tones)-2])
	assert.Contains(t, r.rec.Events(), present.Banner{Text: "Photos Complete"})
}

func TestPhoto_AllConfiguredPairsFireExactlyTotalPhotos(t *testing.T) {
	for _, angle := range config.RotationAngles {
		for _, interval := range config.PhotoIntervals {
			t.Run(fmt.Sprintf("%d_%d", angle, interval), func(t *testing.T) {
				r := newRig(t, fastTimings, 200)
				r.connectCamera()

				_, err := r.photo.Start(r.now(), motionSettingsFor(angle, interval, 2, config.StepModeFull))
				require.NoError(t, err)
				r.runUntil(func() bool { return r.photo.State() == PhotoComplete }, 10*time.Minute)

				want := angle / interval
				assert.Equal(t, want, r.photo.TotalPhotos())
				assert.Equal(t, uint64(want), r.trig.Shots())
				assert.Equal(t, want, r.photo.Segments())
				assert.Zero(t, r.photo.Missed())
			})
		}
	}
}

func TestPhoto_StepSequenceOfFirstShot(t *testing.T) {
	r := newRig(t, realTimings, 2048)
	r.connectCamera()
	_, err := r.photo.Start(r.now(), motionSettingsFor(360, 90, 2, config.StepModeHalf))
	require.NoError(t, err)
	start := r.now()

	r.runUntil(func() bool { return r.photo.State() == PhotoFocus }, 4*time.Second)
	assert.Equal(t, uint32(3000), r.now()-start)
	lvl, _ := r.drv.ReadPin(focusPin)
	assert.Equal(t, gpio.Low, lvl, "focus held")

	r.runUntil(func() bool { return r.photo.State() == PhotoPreFirstShot }, time.Second)
	assert.Equal(t, uint32(3500), r.now()-start)
	lvl, _ = r.drv.ReadPin(focusPin)
	assert.Equal(t, gpio.High, lvl, "focus released")
	assert.Equal(t, camera.FullyConnected, r.link.Status(), "focus pulse must not read as camera loss")

	r.runUntil(func() bool { return r.photo.State() == PhotoFirstShot }, time.Second)
	assert.Equal(t, uint32(3800), r.now()-start)
	lvl, _ = r.drv.ReadPin(shutterPin)
	assert.Equal(t, gpio.Low, lvl, "shutter held")

	r.runUntil(func() bool { return r.photo.State() == PhotoPostFirstShot }, time.Second)
	assert.Equal(t, uint32(4000), r.now()-start)

	r.runUntil(func() bool { return r.photo.State() == PhotoRotating }, time.Second)
	assert.Equal(t, uint32(4800), r.now()-start)
	assert.Equal(t, 1, r.photo.PhotosDone())
}

func TestPhoto_LiveAngleDuringRotation(t *testing.T) {
	r := newRig(t, realTimings, 2048)
	r.connectCamera()
	_, err := r.photo.Start(r.now(), motionSettingsFor(360, 90, 2, config.StepModeHalf))
	require.NoError(t, err)

	r.runUntil(func() bool { return r.photo.State() == PhotoRotating }, 6*time.Second)
	assert.Equal(t, 0, r.photo.AngleDeg())

	r.runUntil(func() bool { return r.seq.StepCount() >= 512 }, 2*time.Second)
	assert.InDelta(t, 45, r.photo.AngleDeg(), 1)

	r.runUntil(func() bool { return !r.seq.IsRunning() }, 2*time.Second)
	assert.Equal(t, 90, r.photo.AngleDeg(), "compensation steps never show past the segment")

	var angles []int
	for _, ev := range r.rec.Events() {
		if p, ok := ev.(present.PhotoProgress); ok && p.State == "Rotating" {
			angles = append(angles, p.AngleDeg)
		}
	}
	assert.Greater(t, len(angles), 10, "progress updates within the segment")
}

func TestPhoto_StartRejectedWithoutCamera(t *testing.T) {
	r := newRig(t, realTimings, 2048)
	r.drv.Set(focusPin, gpio.Low)
	r.drv.Set(cablePin, gpio.Low)
	r.tick()
	require.Equal(t, camera.CableOnly, r.link.Status())

	events, err := r.photo.Start(r.now(), config.DefaultMotion())
	assert.ErrorIs(t, err, camera.ErrNotReady)
	assert.Equal(t, []present.Event{present.ToneReject}, events)
	assert.Equal(t, PhotoIdle, r.photo.State())
	assert.Empty(t, r.ctrl.Owner())
}

func TestPhoto_StartRejectedWhenActiveOrMotorBusy(t *testing.T) {
	r := newRig(t, realTimings, 2048)
	r.connectCamera()

	require.NoError(t, r.ctrl.Acquire(OwnerScan))
	_, err := r.photo.Start(r.now(), config.DefaultMotion())
	assert.ErrorIs(t, err, motion.ErrBusy)
	assert.Equal(t, PhotoIdle, r.photo.State())
	r.ctrl.Release(OwnerScan)

	_, err = r.photo.Start(r.now(), config.DefaultMotion())
	require.NoError(t, err)
	events, err := r.photo.Start(r.now(), config.DefaultMotion())
	assert.ErrorIs(t, err, ErrAlreadyActive)
	assert.Equal(t, []present.Event{present.ToneReject}, events)
}

func TestPhoto_StopFromEveryActiveStateIsSafe(t *testing.T) {
	states := []PhotoState{
		PhotoCountdown, PhotoFocus, PhotoPreFirstShot, PhotoFirstShot, PhotoPostFirstShot,
		PhotoRotating, PhotoPreShooting, PhotoShooting, PhotoPostShooting,
	}
	for _, target := range states {
		t.Run(target.String(), func(t *testing.T) {
			r := newRig(t, realTimings, 2048)
			r.connectCamera()
			_, err := r.photo.Start(r.now(), motionSettingsFor(180, 90, 2, config.StepModeHalf))
			require.NoError(t, err)
			r.runUntil(func() bool { return r.photo.State() == target }, time.Minute)

			events := r.photo.Stop(r.now())
			assert.Contains(t, events, present.ToneStop)
			assert.Equal(t, PhotoStopped, r.photo.State())
			assert.False(t, r.photo.Running())
			assert.False(t, r.seq.IsRunning())
			assert.True(t, r.coilsOff(), "motor de-energized")
			assert.True(t, r.triggerLinesReleased(), "trigger lines pulled up")
			assert.Empty(t, r.ctrl.Owner())

			r.tick()
			assert.Equal(t, PhotoIdle, r.photo.State())
			assert.Nil(t, r.photo.Stop(r.now()), "stopping an idle session is a no-op")
		})
	}
}

func TestPhoto_StopDuringCompletionBannerIsSilent(t *testing.T) {
	r := newRig(t, fastTimings, 200)
	r.connectCamera()
	_, err := r.photo.Start(r.now(), motionSettingsFor(180, 90, 2, config.StepModeFull))
	require.NoError(t, err)
	r.runUntil(func() bool { return r.photo.State() == PhotoComplete }, time.Minute)
	done := r.photo.PhotosDone()

	assert.Nil(t, r.photo.Stop(r.now()), "no stop tone or banner after completion")
	assert.Equal(t, PhotoIdle, r.photo.State())
	assert.False(t, r.photo.Running())
	assert.Equal(t, done, r.photo.PhotosDone())
	assert.Empty(t, r.ctrl.Owner())
	assert.True(t, r.coilsOff())

	r.rec.Reset()
	r.run(3 * time.Second)
	assert.Equal(t, PhotoIdle, r.photo.State())
	assert.Empty(t, r.rec.Events(), "the banner hold is not resumed")
}

func TestPhotoState_String(t *testing.T) {
	assert.Equal(t, "PostShooting", PhotoPostShooting.String())
	assert.Equal(t, "PhotoState(42)", PhotoState(42).String())
}
