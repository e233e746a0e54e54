package sweepq

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters of every run made through a Client. They live
// on a private registry so a one-shot process can dump them with
// WriteTextfile for the node_exporter textfile collector.
type Metrics struct {
	Registry *prometheus.Registry

	// KeysScanned counts keys enumerated by the key pass.
	KeysScanned prometheus.Counter

	// KeysDeleted counts keys deleted or selected for deletion.
	// Labels: phase (keys, queue_group, locks), mode (delete, dry_run)
	KeysDeleted *prometheus.CounterVec

	// DuplicatesRemoved counts duplicate list entries removed.
	// Labels: mode
	DuplicatesRemoved *prometheus.CounterVec

	RunDuration      prometheus.Histogram
	LastRunDryRun    prometheus.Gauge
	LastRunTimestamp prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		KeysScanned: f.NewCounter(prometheus.CounterOpts{
			Namespace: "sweepq",
			Name:      "keys_scanned_total",
			Help:      "Keys enumerated by the key pass.",
		}),
		KeysDeleted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sweepq",
			Name:      "keys_deleted_total",
			Help:      "Keys deleted, or selected for deletion in dry runs.",
		}, []string{"phase", "mode"}),
		DuplicatesRemoved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sweepq",
			Name:      "duplicates_removed_total",
			Help:      "Duplicate queue entries removed from lists.",
		}, []string{"mode"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sweepq",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a full run.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		LastRunDryRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "sweepq",
			Name:      "last_run_dry",
			Help:      "1 if the last run was a dry run, 0 otherwise.",
		}),
		LastRunTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "sweepq",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
}

func modeLabel(dryRun bool) string {
	if dryRun {
		return "dry_run"
	}
	return "delete"
}

func (m *Metrics) Observe(r *Report, elapsed time.Duration) {
	mode := modeLabel(r.DryRun)

	m.KeysScanned.Add(float64(r.TotalKeys))
	m.KeysDeleted.WithLabelValues(string(PhaseKeys), mode).Add(float64(r.KeysDeleted))
	m.KeysDeleted.WithLabelValues(string(PhaseQueueGroup), mode).Add(float64(r.GroupKeysDeleted))
	m.KeysDeleted.WithLabelValues(string(PhaseLocks), mode).Add(float64(r.LocksDeleted))
	m.DuplicatesRemoved.WithLabelValues(mode).Add(float64(r.DuplicatesRemoved))
	m.RunDuration.Observe(elapsed.Seconds())

	if r.DryRun {
		m.LastRunDryRun.Set(1)
	} else {
		m.LastRunDryRun.Set(0)
	}
	m.LastRunTimestamp.SetToCurrentTime()
}

func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
