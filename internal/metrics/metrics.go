// Package metrics exposes device counters in the Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cjeanneret/TurnGo/internal/hw/camera"
)

const namespace = "turngo"

// Photo session results.
const (
	ResultComplete = "complete"
	ResultStopped  = "stopped"
)

var linkStatuses = [...]camera.Status{camera.Disconnected, camera.CableOnly, camera.FullyConnected}

// Metrics holds the collectors of one device on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	modeTransitions *prometheus.CounterVec
	photoSessions   *prometheus.CounterVec
	shutterFires    prometheus.Counter
	missedShots     prometheus.Counter
	scanSessions    prometheus.Counter
	scanRuntime     prometheus.Counter
	stepperSteps    prometheus.Counter
	linkStatus      *prometheus.GaugeVec
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		modeTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mode_transitions_total",
			Help:      "Mode dispatcher transitions.",
		}, []string{"from", "to"}),
		photoSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "photo_sessions_total",
			Help:      "Finished photo sessions by result.",
		}, []string{"result"}),
		shutterFires: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shutter_fires_total",
			Help:      "Shutter pulses sent to the camera.",
		}),
		missedShots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missed_shots_total",
			Help:      "Shutter requests rejected by the trigger.",
		}),
		scanSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_sessions_total",
			Help:      "Finished continuous scans.",
		}),
		scanRuntime: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_runtime_seconds_total",
			Help:      "Time spent rotating in continuous scans.",
		}),
		stepperSteps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stepper_steps_total",
			Help:      "Phase advances of the stepper motor.",
		}),
		linkStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "camera_link_status",
			Help:      "1 for the current camera link status, 0 otherwise.",
		}, []string{"status"}),
	}
	m.reg.MustRegister(
		m.modeTransitions,
		m.photoSessions,
		m.shutterFires,
		m.missedShots,
		m.scanSessions,
		m.scanRuntime,
		m.stepperSteps,
		m.linkStatus,
	)
	m.SetLinkStatus(camera.Disconnected)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) ModeTransition(from, to string) {
	m.modeTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) PhotoSession(result string) {
	m.photoSessions.WithLabelValues(result).Inc()
}

func (m *Metrics) ShutterFired(n uint64) { m.shutterFires.Add(float64(n)) }
func (m *Metrics) MissedShots(n int)     { m.missedShots.Add(float64(n)) }
func (m *Metrics) Steps(n uint64)        { m.stepperSteps.Add(float64(n)) }

// ScanSession records a finished scan and its rotating time.
func (m *Metrics) ScanSession(runtime time.Duration) {
	m.scanSessions.Inc()
	m.scanRuntime.Add(runtime.Seconds())
}

// SetLinkStatus marks s as the current camera link status.
func (m *Metrics) SetLinkStatus(s camera.Status) {
	for _, st := range linkStatuses {
		v := 0.0
		if st == s {
			v = 1
		}
		m.linkStatus.WithLabelValues(st.String()).Set(v)
	}
}
