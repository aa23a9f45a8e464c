// Package keys turns the four front-panel keys into short and long press
// events. Presses can also be injected from the web UI or a serial console.
package keys

import (
	"fmt"
	"strings"
	"sync"
)

// Key identifies one of the four front-panel keys.
type Key int

const (
	Cancel Key = iota
	Prev
	Next
	OK
)

// All lists the keys in scan order.
var All = [...]Key{Cancel, Prev, Next, OK}

func (k Key) String() string {
	switch k {
	case Cancel:
		return "cancel"
	case Prev:
		return "prev"
	case Next:
		return "next"
	case OK:
		return "ok"
	default:
		return fmt.Sprintf("key(%d)", int(k))
	}
}

// ParseKey accepts the names returned by Key.String, case-insensitive.
func ParseKey(s string) (Key, error) {
	for _, k := range All {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown key %q", s)
}

// Press is the kind of key event.
type Press int

const (
	None Press = iota
	Short
	Long
)

func (p Press) String() string {
	switch p {
	case Short:
		return "short"
	case Long:
		return "long"
	default:
		return "none"
	}
}

// ParsePress accepts "short" or "long"; an empty string means short.
func ParsePress(s string) (Press, error) {
	switch strings.ToLower(s) {
	case "", "short":
		return Short, nil
	case "long":
		return Long, nil
	default:
		return None, fmt.Errorf("unknown press %q", s)
	}
}

// Event is one key press.
type Event struct {
	Key   Key
	Press Press
}

func (e Event) String() string {
	return e.Key.String() + "/" + e.Press.String()
}

// Source yields the events that happened since the previous poll.
type Source interface {
	Poll(now uint32) []Event
}

// Multi merges several sources, in order.
type Multi []Source

func (m Multi) Poll(now uint32) []Event {
	var out []Event
	for _, s := range m {
		out = append(out, s.Poll(now)...)
	}
	return out
}

// Queue collects injected events. Safe for concurrent Push.
type Queue struct {
	mu     sync.Mutex
	events []Event
	max    int
}

// NewQueue returns a queue holding at most size pending events.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 16
	}
	return &Queue{max: size}
}

// Push enqueues ev. It returns false when the queue is full.
func (q *Queue) Push(ev Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) >= q.max {
		return false
	}
	q.events = append(q.events, ev)
	return true
}

// Poll drains the queue.
func (q *Queue) Poll(uint32) []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.events
	q.events = nil
	return out
}
