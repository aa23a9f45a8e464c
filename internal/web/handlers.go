package web

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cjeanneret/TurnGo/internal/config"
	"github.com/cjeanneret/TurnGo/internal/device"
	"github.com/cjeanneret/TurnGo/internal/hw/keys"
)

// heartbeat is the idle period after which an SSE comment is sent.
const heartbeat = 30 * time.Second

// Device is the part of *device.Device the handlers use.
type Device interface {
	Snapshot() device.Snapshot
	Settings() config.MotionConfig
	PressKey(keys.Event) error
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	device      Device
	broadcaster *Broadcaster
	staticFS    fs.FS
}

func NewHandlers(dev Device, broadcaster *Broadcaster, staticFS fs.FS) *Handlers {
	return &Handlers{
		device:      dev,
		broadcaster: broadcaster,
		staticFS:    staticFS,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ServeIndex serves the main HTML page.
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleStatus returns the last device snapshot.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.device.Snapshot())
}

// HandleConfig returns the stored motion settings.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.device.Settings())
}

// HandleKey injects a key press: POST /keys/{key}?press=short|long.
func (h *Handlers) HandleKey(w http.ResponseWriter, r *http.Request) {
	key, err := keys.ParseKey(chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	press, err := keys.ParsePress(r.URL.Query().Get("press"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ev := keys.Event{Key: key, Press: press}
	if err := h.device.PressKey(ev); err != nil {
		if errors.Is(err, device.ErrQueueFull) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "key": ev.String()})
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.broadcaster.Subscribe()
	defer unsub()

	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
