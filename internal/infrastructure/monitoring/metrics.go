package monitoring

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Module source labels for ModulesLoaded.
const (
	SourceModule     = "source"
	SubstituteModule = "substitute"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Loader metrics
	LoadersActive prometheus.Gauge
	LoadersTotal  prometheus.Counter
	LoaderErrors  prometheus.Counter
	Unloads       *prometheus.CounterVec

	// Module metrics
	ModulesLoaded *prometheus.CounterVec
	ModuleErrors  prometheus.Counter

	// Harness metrics
	CapturedMessages *prometheus.CounterVec
	TrackedHarnesses prometheus.Gauge
	LeaksSwept       prometheus.Counter
}

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// Default returns the process-wide metrics registered on the default registerer.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// NewMetrics creates a new metrics collector registered on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		LoadersActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sdkloader_loaders_active",
				Help: "Number of loader instances not yet unloaded",
			},
		),
		LoadersTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sdkloader_loaders_total",
				Help: "Total number of loader instances created",
			},
		),
		LoaderErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sdkloader_loader_errors_total",
				Help: "Total number of rejected loader configurations",
			},
		),
		Unloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sdkloader_unloads_total",
				Help: "Total number of loader teardowns by reason",
			},
			[]string{"reason"},
		),
		ModulesLoaded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sdkloader_modules_loaded_total",
				Help: "Total number of modules instantiated",
			},
			[]string{"kind"},
		),
		ModuleErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sdkloader_module_errors_total",
				Help: "Total number of failed module loads",
			},
		),
		CapturedMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sdkloader_captured_messages_total",
				Help: "Total number of console messages captured by harnesses",
			},
			[]string{"kind"},
		),
		TrackedHarnesses: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sdkloader_tracked_harnesses",
				Help: "Number of harness instances awaiting unload",
			},
		),
		LeaksSwept: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sdkloader_leaks_swept_total",
				Help: "Total number of leaked harnesses reclaimed by a sweep",
			},
		),
	}
}

// LoaderCreated records a new loader instance
func (m *Metrics) LoaderCreated() {
	if m == nil {
		return
	}
	m.LoadersTotal.Inc()
	m.LoadersActive.Inc()
}

// LoaderRejected records a configuration that failed validation
func (m *Metrics) LoaderRejected() {
	if m == nil {
		return
	}
	m.LoaderErrors.Inc()
}

// LoaderUnloaded records a teardown
func (m *Metrics) LoaderUnloaded(reason string) {
	if m == nil {
		return
	}
	m.LoadersActive.Dec()
	m.Unloads.WithLabelValues(reason).Inc()
}

// ModuleLoaded records an instantiated module of the given kind
func (m *Metrics) ModuleLoaded(kind string) {
	if m == nil {
		return
	}
	m.ModulesLoaded.WithLabelValues(kind).Inc()
}

// ModuleFailed records a failed module load
func (m *Metrics) ModuleFailed() {
	if m == nil {
		return
	}
	m.ModuleErrors.Inc()
}

// MessageCaptured records a console message captured by a harness
func (m *Metrics) MessageCaptured(kind string) {
	if m == nil {
		return
	}
	m.CapturedMessages.WithLabelValues(kind).Inc()
}

// SetTracked sets the number of harnesses awaiting unload
func (m *Metrics) SetTracked(count int) {
	if m == nil {
		return
	}
	m.TrackedHarnesses.Set(float64(count))
}

// LeakSwept records a leaked harness reclaimed by a sweep
func (m *Metrics) LeakSwept() {
	if m == nil {
		return
	}
	m.LeaksSwept.Inc()
}
