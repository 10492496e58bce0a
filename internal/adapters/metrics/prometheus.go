// Package metrics exports action and readiness state to Prometheus.
package metrics

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bft-labs/sessionguard/pkg/action"
	"github.com/bft-labs/sessionguard/pkg/readiness"
)

const namespace = "sessionguard"

var uploadStates = []readiness.BackupUploadState{
	readiness.BackupUploadUnknown,
	readiness.BackupUploadUploading,
	readiness.BackupUploadError,
	readiness.BackupUploadDone,
}

// Collector records action transitions and readiness changes.
type Collector struct {
	transitions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	ready       prometheus.Gauge
	lastDevice  prometheus.Gauge
	upload      *prometheus.GaugeVec

	mu      sync.Mutex
	started map[uuid.UUID]time.Time
}

// NewCollector registers the metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		transitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "action",
				Name:      "transitions_total",
				Help:      "Total number of action state transitions by target state",
			},
			[]string{"action", "state"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "action",
				Name:      "duration_seconds",
				Help:      "Duration of action attempts in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"action", "outcome"},
		),
		ready: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "readiness",
			Name:      "ready",
			Help:      "Whether sign-out can proceed without warning (0/1)",
		}),
		lastDevice: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "readiness",
			Name:      "last_device",
			Help:      "Whether this device holds the last copy of the keys (0/1)",
		}),
		upload: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "readiness",
				Name:      "backup_upload_state",
				Help:      "Current key backup upload state (1 for the active state)",
			},
			[]string{"state"},
		),
		started: make(map[uuid.UUID]time.Time),
	}
}

// ObserveAction records a transition of the named action.
func (c *Collector) ObserveAction(name string, kind action.Kind, attempt uuid.UUID) {
	c.transitions.WithLabelValues(name, kind.String()).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	switch kind {
	case action.KindLoading:
		c.started[attempt] = time.Now()
	case action.KindSuccess, action.KindFailure:
		start, ok := c.started[attempt]
		if !ok {
			return
		}
		delete(c.started, attempt)
		outcome := "success"
		if kind == action.KindFailure {
			outcome = "failure"
		}
		c.duration.WithLabelValues(name, outcome).Observe(time.Since(start).Seconds())
	}
}

// ActionObserver returns an observer feeding c for coordinators of any
// result type.
func ActionObserver[T any](c *Collector, name string) action.Observer[T] {
	return action.ObserverFunc[T](func(_, current action.State[T]) {
		c.ObserveAction(name, current.Kind(), current.Attempt())
	})
}

// ObserveReadiness records the latest readiness value. The ready gauge
// stays 0 until the last-device probe has answered, matching Gate.Ready.
func (c *Collector) ObserveReadiness(r readiness.Readiness) {
	c.ready.Set(boolToFloat(r.Ready && r.LastDeviceResolved))
	c.lastDevice.Set(boolToFloat(r.IsLastDevice))
	for _, s := range uploadStates {
		c.upload.WithLabelValues(s.String()).Set(boolToFloat(s == r.UploadState))
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
