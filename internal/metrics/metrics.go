// Package metrics exposes tailer counters on a private Prometheus registry.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Trigger labels for emitted lines.
const (
	TriggerNotify  = "notify"
	TriggerRefresh = "refresh"
	TriggerRead    = "read"
	TriggerScan    = "scan"
)

// Metrics holds the tailer's collectors.
type Metrics struct {
	registry        *prometheus.Registry
	linesEmitted    *prometheus.CounterVec
	filesTracked    prometheus.Gauge
	excludedFiles   prometheus.Counter
	overridesMerged prometheus.Counter
	migrations      prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry.
// The default registry is not used as it adds Go runtime metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		linesEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sessiontail_lines_emitted_total",
			Help: "Journal lines handed to callers, by trigger.",
		}, []string{"trigger"}),
		filesTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sessiontail_files_tracked",
			Help: "Journal files with in-memory tracking state.",
		}),
		excludedFiles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sessiontail_excluded_files_total",
			Help: "Files classified as belonging to the excluded channel.",
		}),
		overridesMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sessiontail_override_files_merged_total",
			Help: "Override files merged into a session collection.",
		}),
		migrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sessiontail_legacy_migrations_total",
			Help: "Legacy override files migrated to per-session files.",
		}),
	}
	m.registry.MustRegister(m.linesEmitted, m.filesTracked, m.excludedFiles, m.overridesMerged, m.migrations)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// LinesEmitted adds n lines for trigger.
func (m *Metrics) LinesEmitted(trigger string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.linesEmitted.WithLabelValues(trigger).Add(float64(n))
}

// FilesTracked sets the tracked-file gauge.
func (m *Metrics) FilesTracked(n int) {
	if m == nil {
		return
	}
	m.filesTracked.Set(float64(n))
}

// FileExcluded counts a newly excluded file.
func (m *Metrics) FileExcluded() {
	if m == nil {
		return
	}
	m.excludedFiles.Inc()
}

// OverrideMerged counts a merged override file.
func (m *Metrics) OverrideMerged() {
	if m == nil {
		return
	}
	m.overridesMerged.Inc()
}

// LegacyMigrated counts a legacy override migration.
func (m *Metrics) LegacyMigrated() {
	if m == nil {
		return
	}
	m.migrations.Inc()
}
