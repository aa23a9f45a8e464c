package mode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjeanneret/TurnGo/internal/config"
	"github.com/cjeanneret/TurnGo/internal/hw/camera"
	"github.com/cjeanneret/TurnGo/internal/hw/keys"
	"github.com/cjeanneret/TurnGo/internal/present"
)

type fakeLink struct{ status camera.Status }

func (l *fakeLink) Status() camera.Status { return l.status }

type fakeSession struct {
	running  bool
	startErr error
	started  []config.MotionConfig
	stops    int
}

func (s *fakeSession) Start(now uint32, m config.MotionConfig) ([]present.Event, error) {
	if s.startErr != nil {
		return []present.Event{present.ToneReject}, s.startErr
	}
	s.started = append(s.started, m)
	s.running = true
	return []present.Event{present.ToneCountdown}, nil
}

func (s *fakeSession) Stop(now uint32) []present.Event {
	if !s.running {
		return nil
	}
	s.running = false
	s.stops++
	return []present.Event{present.ToneStop}
}

func (s *fakeSession) Running() bool { return s.running }

type memStore struct {
	m       config.MotionConfig
	saves   int
	saveErr error
}

func (s *memStore) Motion() config.MotionConfig { return s.m }

func (s *memStore) SaveMotion(m config.MotionConfig) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.m = m
	s.saves++
	return nil
}

type harness struct {
	link  *fakeLink
	photo *fakeSession
	scan  *fakeSession
	store *memStore
	d     *Dispatcher
	now   uint32
}

func newHarness(status camera.Status, opts Options) *harness {
	h := &harness{
		link:  &fakeLink{status: status},
		photo: &fakeSession{},
		scan:  &fakeSession{},
		store: &memStore{m: config.DefaultMotion()},
	}
	h.d = New(h.link, h.photo, h.scan, h.store, opts)
	return h
}

func (h *harness) update(evs ...keys.Event) []present.Event {
	h.now++
	return h.d.Update(h.now, evs)
}

func short(k keys.Key) keys.Event { return keys.Event{Key: k, Press: keys.Short} }
func long(k keys.Key) keys.Event  { return keys.Event{Key: k, Press: keys.Long} }

func tonesOf(events []present.Event) []present.Tone {
	var out []present.Tone
	for _, ev := range events {
		if t, ok := ev.(present.Tone); ok {
			out = append(out, t)
		}
	}
	return out
}

func TestDispatcher_StandbyResolvesByLinkStatus(t *testing.T) {
	cases := []struct {
		status camera.Status
		want   Mode
	}{
		{camera.FullyConnected, CameraMode},
		{camera.CableOnly, ScanMode},
		{camera.Disconnected, ScanMode},
	}
	for _, tc := range cases {
		t.Run(tc.status.String(), func(t *testing.T) {
			h := newHarness(tc.status, Options{})
			assert.Equal(t, Standby, h.d.Mode())
			h.update()
			assert.Equal(t, tc.want, h.d.Mode())
		})
	}
}

func TestDispatcher_CableRemovalSwitchesToScanMode(t *testing.T) {
	h := newHarness(camera.FullyConnected, Options{})
	h.update()
	require.Equal(t, CameraMode, h.d.Mode())

	h.link.status = camera.Disconnected
	h.update()
	assert.Equal(t, ScanMode, h.d.Mode())

	h.link.status = camera.CableOnly
	h.update()
	assert.Equal(t, ScanMode, h.d.Mode())

	h.link.status = camera.FullyConnected
	h.update()
	assert.Equal(t, CameraMode, h.d.Mode())
}

func TestDispatcher_PhotoSessionLifecycle(t *testing.T) {
	h := newHarness(camera.FullyConnected, Options{})
	h.update()

	events := h.update(short(keys.OK))
	assert.Equal(t, PhotoRunning, h.d.Mode())
	require.Len(t, h.photo.started, 1)
	assert.Equal(t, h.store.m, h.photo.started[0], "session runs with the stored settings")
	assert.Contains(t, events, present.Event(present.ToneCountdown))

	h.link.status = camera.CableOnly
	h.update()
	assert.Equal(t, PhotoRunning, h.d.Mode(), "link changes do not preempt a session")

	h.update(short(keys.Prev), short(keys.Next), long(keys.Next))
	assert.Equal(t, PhotoRunning, h.d.Mode())
	assert.Zero(t, h.photo.stops)

	events = h.update(short(keys.Cancel))
	assert.Equal(t, 1, h.photo.stops)
	assert.Equal(t, []present.Tone{present.ToneStop}, tonesOf(events))
	assert.Equal(t, Standby, h.d.Mode())

	h.update()
	assert.Equal(t, ScanMode, h.d.Mode())
}

func TestDispatcher_ScanSessionStopsOnOK(t *testing.T) {
	h := newHarness(camera.Disconnected, Options{})
	h.update()
	h.update(short(keys.OK))
	require.Equal(t, ScanRunning, h.d.Mode())
	assert.True(t, h.scan.running)
	assert.Empty(t, h.photo.started)

	h.update(short(keys.OK))
	assert.Equal(t, 1, h.scan.stops)
	assert.Equal(t, Standby, h.d.Mode())
}

func TestDispatcher_SelfCompletionReturnsToStandby(t *testing.T) {
	h := newHarness(camera.FullyConnected, Options{})
	h.update()
	h.update(short(keys.OK))
	require.Equal(t, PhotoRunning, h.d.Mode())

	h.photo.running = false
	h.update()
	assert.Equal(t, Standby, h.d.Mode())
	h.update()
	assert.Equal(t, CameraMode, h.d.Mode())
}

func TestDispatcher_SessionsAreMutuallyExclusive(t *testing.T) {
	h := newHarness(camera.FullyConnected, Options{})
	h.update()
	h.scan.running = true

	events := h.update(short(keys.OK))
	assert.Equal(t, []present.Event{present.ToneReject}, events[:1])
	assert.Empty(t, h.photo.started)
	assert.Equal(t, CameraMode, h.d.Mode())

	h.scan.running = false
	h.link.status = camera.Disconnected
	h.update()
	h.photo.running = true
	h.update(short(keys.OK))
	assert.Empty(t, h.scan.started)
	assert.Equal(t, ScanMode, h.d.Mode())
}

func TestDispatcher_RejectedStartKeepsMode(t *testing.T) {
	h := newHarness(camera.FullyConnected, Options{})
	h.update()
	h.photo.startErr = camera.ErrNotReady

	events := h.update(short(keys.OK))
	assert.Equal(t, []present.Tone{present.ToneReject}, tonesOf(events))
	assert.Equal(t, CameraMode, h.d.Mode())
}

func TestDispatcher_AbortOnCameraLost(t *testing.T) {
	h := newHarness(camera.FullyConnected, Options{AbortOnCameraLost: true})
	h.update()
	h.update(short(keys.OK))
	require.Equal(t, PhotoRunning, h.d.Mode())

	h.link.status = camera.CableOnly
	events := h.update()
	assert.Equal(t, 1, h.photo.stops)
	assert.Contains(t, tonesOf(events), present.ToneStop)
	assert.Equal(t, Standby, h.d.Mode())
}

func TestDispatcher_RotationDecrementCycle(t *testing.T) {
	h := newHarness(camera.FullyConnected, Options{})
	h.store.m.RotationAngleDeg = 720
	h.update()

	events := h.update(long(keys.Cancel))
	assert.Equal(t, Config, h.d.Mode())
	assert.Equal(t, []present.Tone{present.ToneConfigEnter}, tonesOf(events))

	h.update(short(keys.Next), short(keys.Next))
	require.Equal(t, ItemRotation, h.d.Item())
	h.update(short(keys.OK))
	require.Equal(t, ConfigEdit, h.d.Mode())

	var seen []int
	for range 5 {
		events = h.update(short(keys.Prev))
		assert.Equal(t, []present.Tone{present.ToneValueDec}, tonesOf(events))
		seen = append(seen, h.d.Draft().RotationAngleDeg)
	}
	assert.Equal(t, []int{540, 360, 180, 90, 720}, seen)
	assert.Zero(t, h.store.saves, "nothing persisted before commit")

	h.update(short(keys.Prev))
	events = h.update(short(keys.OK))
	assert.Equal(t, []present.Tone{present.ToneCommit}, tonesOf(events))
	assert.Equal(t, Config, h.d.Mode())
	assert.Equal(t, 540, h.store.m.RotationAngleDeg)
	assert.Equal(t, 1, h.store.saves)

	h.update(short(keys.Cancel))
	assert.Equal(t, CameraMode, h.d.Mode(), "leaving the menu resolves by link status at once")
}

func TestDispatcher_EditCancelDiscardsDraft(t *testing.T) {
	h := newHarness(camera.Disconnected, Options{})
	h.update()
	h.update(long(keys.Cancel), short(keys.Next), short(keys.OK))
	require.Equal(t, ConfigEdit, h.d.Mode())
	require.Equal(t, ItemSpeed, h.d.Item())

	h.update(short(keys.Next), short(keys.Next))
	assert.Equal(t, 8, h.d.Draft().SpeedMs)

	events := h.update(short(keys.Cancel))
	assert.Equal(t, []present.Tone{present.ToneConfigLeave}, tonesOf(events))
	assert.Equal(t, Config, h.d.Mode())
	assert.Equal(t, 4, h.d.Draft().SpeedMs)
	assert.Equal(t, 4, h.store.m.SpeedMs)
	assert.Zero(t, h.store.saves)
}

func TestDispatcher_CommitFailureRejects(t *testing.T) {
	h := newHarness(camera.Disconnected, Options{})
	h.store.saveErr = errors.New("disk full")
	h.update()
	h.update(long(keys.Cancel), short(keys.OK), short(keys.Next))
	require.Equal(t, config.DirectionCCW, h.d.Draft().Direction)

	events := h.update(short(keys.OK))
	assert.Equal(t, []present.Tone{present.ToneReject}, tonesOf(events))
	assert.Equal(t, Config, h.d.Mode())
	assert.Equal(t, config.DirectionCW, h.store.m.Direction)
}

func TestDispatcher_ConfigMenuWrapsItems(t *testing.T) {
	h := newHarness(camera.Disconnected, Options{})
	h.update()
	h.update(long(keys.Cancel))

	events := h.update(short(keys.Prev))
	assert.Equal(t, ItemStepMode, h.d.Item())
	assert.Equal(t, []present.Tone{present.ToneItemPrev}, tonesOf(events))

	events = h.update(short(keys.Next))
	assert.Equal(t, ItemDirection, h.d.Item())
	assert.Equal(t, []present.Tone{present.ToneItemNext}, tonesOf(events))

	h.update(long(keys.OK), long(keys.Next))
	assert.Equal(t, Config, h.d.Mode(), "long presses are ignored in the menu")
	assert.Equal(t, ItemDirection, h.d.Item())
}

func TestDispatcher_ScreenUpdates(t *testing.T) {
	h := newHarness(camera.FullyConnected, Options{})
	events := h.update()
	assert.Contains(t, events, present.Event(present.Screen{Mode: "Camera", Link: "Fully Connected"}))

	assert.Empty(t, h.update(), "unchanged screen is not republished")

	h.update(long(keys.Cancel), short(keys.Next), short(keys.OK))
	assert.Equal(t, present.Screen{
		Mode:    "Config Edit",
		Link:    "Fully Connected",
		Item:    "Motor Speed",
		Value:   "4ms",
		Editing: true,
	}, h.d.Screen())
}

func TestDispatcher_OnTransition(t *testing.T) {
	var got [][2]Mode
	h := newHarness(camera.FullyConnected, Options{OnTransition: func(from, to Mode) {
		got = append(got, [2]Mode{from, to})
	}})
	h.update()
	h.update(short(keys.OK))
	h.update(short(keys.Cancel))

	assert.Equal(t, [][2]Mode{
		{Standby, CameraMode},
		{CameraMode, PhotoRunning},
		{PhotoRunning, Standby},
	}, got)
}
