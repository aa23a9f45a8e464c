package web

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cjeanneret/TurnGo/internal/present"
)

// received mirrors StatusEvent with a decodable payload.
type received struct {
	Time  string          `json:"t"`
	Kind  string          `json:"kind"`
	Level string          `json:"l"`
	Msg   string          `json:"msg"`
	Data  json.RawMessage `json:"data"`
}

func next(t *testing.T, ch <-chan string) received {
	t.Helper()
	select {
	case msg := <-ch:
		var evt received
		if err := json.Unmarshal([]byte(msg), &evt); err != nil {
			t.Fatalf("unmarshal %q: %v", msg, err)
		}
		return evt
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for broadcast")
	}
	return received{}
}

func TestBroadcaster_LogReachesSubscriber(t *testing.T) {
	b := NewBroadcaster()
	b.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Log("info", "hello")

	evt := next(t, ch)
	if evt.Kind != "log" || evt.Level != "info" || evt.Msg != "hello" {
		t.Errorf("event = %+v, want log/info/hello", evt)
	}
	if evt.Time != "2026-01-02T03:04:05Z" {
		t.Errorf("time = %q", evt.Time)
	}
}

func TestBroadcaster_MultipleSubscribers(t *testing.T) {
	b := NewBroadcaster()
	ch1, unsub1 := b.Subscribe()
	defer unsub1()
	ch2, unsub2 := b.Subscribe()
	defer unsub2()

	if n := b.Clients(); n != 2 {
		t.Fatalf("clients = %d, want 2", n)
	}
	b.Log("info", "multi")

	for i, ch := range []<-chan string{ch1, ch2} {
		if evt := next(t, ch); evt.Msg != "multi" {
			t.Errorf("subscriber %d: msg = %q, want \"multi\"", i, evt.Msg)
		}
	}
}

func TestBroadcaster_UnsubscribeClosesChannelOnce(t *testing.T) {
	b := NewBroadcaster()
	ch, unsub := b.Subscribe()
	unsub()
	unsub()

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after unsubscribe")
	}
	if n := b.Clients(); n != 0 {
		t.Errorf("clients = %d, want 0", n)
	}
	b.Log("info", "after unsub")
}

func TestBroadcaster_SlowClientDropsMessages(t *testing.T) {
	b := NewBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	for i := 0; i < clientBuffer+10; i++ {
		b.Log("info", "fill")
	}
	if len(ch) != clientBuffer {
		t.Errorf("buffered = %d, want %d", len(ch), clientBuffer)
	}
}

func TestBroadcaster_PresentEvents(t *testing.T) {
	b := NewBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Present(present.ToneStop)
	evt := next(t, ch)
	if evt.Kind != "tone" || evt.Msg != "1000Hz/300ms" {
		t.Errorf("tone event = %+v", evt)
	}
	var tone struct {
		FreqHz int `json:"freq_hz"`
	}
	if err := json.Unmarshal(evt.Data, &tone); err != nil || tone.FreqHz != 1000 {
		t.Errorf("tone data = %s (%v)", evt.Data, err)
	}

	b.Present(present.Banner{Text: "Photos Complete"})
	if evt := next(t, ch); evt.Kind != "banner" || evt.Msg != "Photos Complete" {
		t.Errorf("banner event = %+v", evt)
	}

	b.Present(present.PhotoProgress{State: "Rotating", Photo: 2, Total: 4, AngleDeg: 120, TargetDeg: 360})
	evt = next(t, ch)
	var p present.PhotoProgress
	if err := json.Unmarshal(evt.Data, &p); err != nil {
		t.Fatalf("photo data: %v", err)
	}
	if evt.Kind != "photo" || p.AngleDeg != 120 || p.Total != 4 {
		t.Errorf("photo event = %+v, data %+v", evt, p)
	}
}

func TestLogWriter_TrimsAndTagsLevel(t *testing.T) {
	b := NewBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	w := LogWriter(b)
	line := "[TurnGo] 2026/01/02 03:04:05 [VERBOSE] Photo: Countdown -> Focus  \n"
	n, err := w.Write([]byte(line))
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if n != len(line) {
		t.Errorf("n = %d, want %d", n, len(line))
	}

	evt := next(t, ch)
	if evt.Level != "verbose" {
		t.Errorf("level = %q, want verbose", evt.Level)
	}
	if evt.Msg != "[TurnGo] 2026/01/02 03:04:05 [VERBOSE] Photo: Countdown -> Focus" {
		t.Errorf("msg = %q", evt.Msg)
	}
}

func TestLogWriter_EmptyWriteIgnored(t *testing.T) {
	b := NewBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	LogWriter(b).Write([]byte("   \n"))

	select {
	case <-ch:
		t.Error("expected no message for whitespace-only write")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLevelOf(t *testing.T) {
	cases := map[string]string{
		"[INFO] ready":                   "info",
		"[TurnGo] 12:00:00 [TRACE] x":    "trace",
		"[TurnGo] 12:00:00 [GPIO] write": "gpio",
		"[TurnGo] [LIVE] Photo [1] done": "live",
		"no tag":                         "info",
		"[] empty":                       "info",
		"broken ] order [ BRACKET":       "info",
	}
	for line, want := range cases {
		if got := levelOf(line); got != want {
			t.Errorf("levelOf(%q) = %q, want %q", line, got, want)
		}
	}
}
