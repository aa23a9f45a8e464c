package web

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cjeanneret/TurnGo/internal/present"
)

// clientBuffer is the number of pending messages kept per SSE client.
const clientBuffer = 64

// StatusEvent is one message on the status stream.
type StatusEvent struct {
	Time  string        `json:"t"`
	Kind  string        `json:"kind"`
	Level string        `json:"l,omitempty"`
	Msg   string        `json:"msg,omitempty"`
	Data  present.Event `json:"data,omitempty"`
}

// Broadcaster distributes status messages to the SSE clients. It is also
// a present.Sink, so the device events reach the browser.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[chan string]struct{}
	now     func() time.Time
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[chan string]struct{}),
		now:     time.Now,
	}
}

// Subscribe returns a channel of JSON messages and its cleanup function.
// The caller must call cleanup when the client goes away.
func (b *Broadcaster) Subscribe() (<-chan string, func()) {
	ch := make(chan string, clientBuffer)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.clients, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}

// Clients returns the number of subscribers.
func (b *Broadcaster) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Publish stamps evt and sends it to every client. Slow clients miss
// messages instead of blocking the device loop.
func (b *Broadcaster) Publish(evt StatusEvent) {
	evt.Time = b.now().Format(time.RFC3339)
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	payload := string(data)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- payload:
		default:
		}
	}
}

// Log publishes a log line.
func (b *Broadcaster) Log(level, msg string) {
	b.Publish(StatusEvent{Kind: "log", Level: level, Msg: msg})
}

// Present implements present.Sink.
func (b *Broadcaster) Present(ev present.Event) {
	evt := StatusEvent{Kind: ev.Kind(), Data: ev}
	if s, ok := ev.(fmt.Stringer); ok {
		evt.Msg = s.String()
	}
	if banner, ok := ev.(present.Banner); ok {
		evt.Msg = banner.Text
	}
	b.Publish(evt)
}

// LogWriter returns an io.Writer that publishes every write as a log line,
// for debug.SetOutput.
func LogWriter(b *Broadcaster) *logWriter {
	return &logWriter{b: b}
}

type logWriter struct {
	b *Broadcaster
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		w.b.Log(levelOf(msg), msg)
	}
	return len(p), nil
}

// levels are the debug tags recognised by levelOf.
var levels = []string{"info", "live", "verbose", "trace", "gpio", "error"}

// levelOf returns the first debug level tag such as "[VERBOSE]" in a log
// line, skipping the logger prefix. Lines without one are "info".
func levelOf(line string) string {
	for {
		start := strings.IndexByte(line, '[')
		if start < 0 {
			return "info"
		}
		end := strings.IndexByte(line[start:], ']')
		if end < 0 {
			return "info"
		}
		tag := strings.ToLower(line[start+1 : start+end])
		if slices.Contains(levels, tag) {
			return tag
		}
		line = line[start+end+1:]
	}
}
