package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cycles          *prometheus.CounterVec
	fetchErrors     *prometheus.CounterVec
	rebinds         prometheus.Counter
	markers         *prometheus.GaugeVec
	forwardTest     *prometheus.CounterVec
	settingsUpdates *prometheus.CounterVec
	instances       prometheus.Gauge
	latency         *prometheus.HistogramVec
	exported        *prometheus.CounterVec
}

// New creates a recorder registered on reg. A nil reg uses the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		cycles: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketoverlay_poll_cycles_total",
				Help: "Poll cycles by result (applied, error, discarded)",
			},
			[]string{"result"},
		),
		fetchErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketoverlay_fetch_errors_total",
				Help: "Backend fetch errors by source",
			},
			[]string{"source"},
		),
		rebinds: f.NewCounter(
			prometheus.CounterOpts{
				Name: "marketoverlay_symbol_rebinds_total",
				Help: "Times a chart switched to the backend's canonical symbol",
			},
		),
		markers: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketoverlay_markers_rendered",
				Help: "Markers in the last render pass per timeframe",
			},
			[]string{"timeframe"},
		),
		forwardTest: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketoverlay_forward_test_overlays_total",
				Help: "Forward-test overlay attempts by outcome",
			},
			[]string{"outcome"},
		),
		settingsUpdates: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketoverlay_settings_updates_total",
				Help: "Chart settings updates by persistence result",
			},
			[]string{"persisted"},
		),
		instances: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "marketoverlay_active_instances",
				Help: "Mounted chart instances",
			},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketoverlay_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		exported: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketoverlay_frames_exported_total",
				Help: "Overlay frames handed to export sinks",
			},
			[]string{"sink", "status"},
		),
	}
}

func (r *Recorder) RecordCycle(result string) {
	r.cycles.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordFetchError(source string) {
	r.fetchErrors.WithLabelValues(source).Inc()
}

func (r *Recorder) RecordRebind() {
	r.rebinds.Inc()
}

func (r *Recorder) RecordMarkers(timeframe string, n int) {
	r.markers.WithLabelValues(timeframe).Set(float64(n))
}

func (r *Recorder) RecordForwardTest(outcome string) {
	r.forwardTest.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordSettingsUpdate(persisted bool) {
	r.settingsUpdates.WithLabelValues(strconv.FormatBool(persisted)).Inc()
}

func (r *Recorder) SetActiveInstances(n int) {
	r.instances.Set(float64(n))
}

// RecordLatency records operation latency.
func (r *Recorder) RecordLatency(op string, d time.Duration) {
	r.latency.WithLabelValues(op).Observe(d.Seconds())
}

func (r *Recorder) RecordExport(sink string, ok bool, n int) {
	status := "ok"
	if !ok {
		status = "error"
	}
	r.exported.WithLabelValues(sink, status).Add(float64(n))
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordCycle(string)                  {}
func (Nop) RecordFetchError(string)             {}
func (Nop) RecordRebind()                       {}
func (Nop) RecordMarkers(string, int)           {}
func (Nop) RecordForwardTest(string)            {}
func (Nop) RecordSettingsUpdate(bool)           {}
func (Nop) SetActiveInstances(int)              {}
func (Nop) RecordLatency(string, time.Duration) {}
func (Nop) RecordExport(string, bool, int)      {}
