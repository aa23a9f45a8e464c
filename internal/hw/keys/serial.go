package keys

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"

	"github.com/cjeanneret/TurnGo/internal/debug"
)

// consoleKeys maps console bytes to events: lower case is a short press,
// upper case a long press.
var consoleKeys = map[byte]Event{
	'c': {Cancel, Short}, 'C': {Cancel, Long},
	'p': {Prev, Short}, 'P': {Prev, Long},
	'n': {Next, Short}, 'N': {Next, Long},
	'o': {OK, Short}, 'O': {OK, Long},
}

// ParseConsoleByte maps one console byte to an event.
func ParseConsoleByte(b byte) (Event, bool) {
	ev, ok := consoleKeys[b]
	return ev, ok
}

// SerialConsole feeds key presses typed on a serial line into a Queue.
type SerialConsole struct {
	port  serial.Port
	queue *Queue
}

// OpenSerialConsole opens dev at baud (8N1).
func OpenSerialConsole(dev string, baud int, q *Queue) (*SerialConsole, error) {
	port, err := serial.Open(dev, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", dev, err)
	}
	// short reads let Run notice cancellation
	if err := port.SetReadTimeout(200 * time.Millisecond); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", dev, err)
	}
	debug.Info("Serial key console on %s (%d baud)", dev, baud)
	return &SerialConsole{port: port, queue: q}, nil
}

// Run reads the port until ctx is done, then closes it.
func (c *SerialConsole) Run(ctx context.Context) error {
	defer c.port.Close()
	_, _ = io.WriteString(c.port, "TurnGo keys: c/p/n/o short, C/P/N/O long\r\n")
	return Serve(ctx, c.port, c.queue)
}

// Serve pushes every recognised byte read from r into q. Unknown bytes are
// ignored. A read returning no data (timeout) is not an error. Serve
// returns nil on EOF or when ctx is done.
func Serve(ctx context.Context, r io.Reader, q *Queue) error {
	buf := make([]byte, 32)
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			ev, ok := ParseConsoleByte(b)
			if !ok {
				continue
			}
			if !q.Push(ev) {
				debug.Live("Key queue full, dropped %s", ev)
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read key console: %w", err)
		}
	}
}
