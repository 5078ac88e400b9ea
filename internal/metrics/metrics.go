package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Metrics holds all Prometheus metrics for Inkwell
type Metrics struct {
	// Generation
	AssetsGeneratedTotal      *prometheus.CounterVec
	GenerationFailuresTotal   *prometheus.CounterVec
	GenerationFallbacksTotal  prometheus.Counter
	GenerationDurationSeconds *prometheus.HistogramVec
	LLMTokensTotal            *prometheus.CounterVec

	// Validation
	ValidationFailuresTotal *prometheus.CounterVec
	SanitizationsTotal      prometheus.Counter

	// Editing and export
	EditsTotal   *prometheus.CounterVec
	ExportsTotal *prometheus.CounterVec

	// Proofs
	ProofsSentTotal   prometheus.Counter
	ProofsFailedTotal *prometheus.CounterVec

	// API metrics
	APIRequestsTotal          *prometheus.CounterVec
	APIRequestDurationSeconds *prometheus.HistogramVec
	APIErrorsTotal            *prometheus.CounterVec

	// System metrics
	UptimeSeconds    prometheus.Gauge
	Goroutines       prometheus.Gauge
	StorageUsedBytes prometheus.Gauge
	AssetsStored     prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		AssetsGeneratedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inkwell_assets_generated_total",
				Help: "Total number of persisted email assets",
			},
			[]string{"mode", "strategy"},
		),
		GenerationFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inkwell_generation_failures_total",
				Help: "Total number of skipped audience/strategy pairs",
			},
			[]string{"mode", "reason"},
		),
		GenerationFallbacksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "inkwell_generation_fallbacks_total",
				Help: "Total number of runs that fell back to template mode",
			},
		),
		GenerationDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "inkwell_generation_duration_seconds",
				Help:    "Duration of a full generation run in seconds",
				Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"mode"},
		),
		LLMTokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inkwell_llm_tokens_total",
				Help: "Total number of tokens reported by the generation provider",
			},
			[]string{"operation"},
		),

		ValidationFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inkwell_validation_failures_total",
				Help: "Total number of documents that failed email validation",
			},
			[]string{"source"},
		),
		SanitizationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "inkwell_sanitizations_total",
				Help: "Total number of documents repaired by the sanitizer",
			},
		),

		EditsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inkwell_edits_total",
				Help: "Total number of asset edits by type",
			},
			[]string{"type"},
		),
		ExportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inkwell_exports_total",
				Help: "Total number of exported assets",
			},
			[]string{"format", "kind"},
		),

		ProofsSentTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "inkwell_proofs_sent_total",
				Help: "Total number of proof emails accepted by the relay",
			},
		),
		ProofsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inkwell_proofs_failed_total",
				Help: "Total number of proof emails that could not be sent",
			},
			[]string{"stage"},
		),

		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inkwell_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		APIRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "inkwell_api_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 120},
			},
			[]string{"method", "path"},
		),
		APIErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inkwell_api_errors_total",
				Help: "Total number of API errors",
			},
			[]string{"error_type"},
		),

		UptimeSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "inkwell_uptime_seconds",
				Help: "Server uptime in seconds",
			},
		),
		Goroutines: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "inkwell_goroutines",
				Help: "Number of active goroutines",
			},
		),
		StorageUsedBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "inkwell_storage_used_bytes",
				Help: "BoltDB file size in bytes",
			},
		),
		AssetsStored: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "inkwell_assets_stored",
				Help: "Number of email assets currently stored",
			},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.AssetsGeneratedTotal,
		m.GenerationFailuresTotal,
		m.GenerationFallbacksTotal,
		m.GenerationDurationSeconds,
		m.LLMTokensTotal,
		m.ValidationFailuresTotal,
		m.SanitizationsTotal,
		m.EditsTotal,
		m.ExportsTotal,
		m.ProofsSentTotal,
		m.ProofsFailedTotal,
		m.APIRequestsTotal,
		m.APIRequestDurationSeconds,
		m.APIErrorsTotal,
		m.UptimeSeconds,
		m.Goroutines,
		m.StorageUsedBytes,
		m.AssetsStored,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetGlobal sets the global metrics instance
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// IncAssetsGenerated counts a persisted asset
func IncAssetsGenerated(mode, strategy string) {
	if m := Global(); m != nil {
		m.AssetsGeneratedTotal.WithLabelValues(mode, strategy).Inc()
	}
}

// IncGenerationFailed counts a skipped audience/strategy pair
func IncGenerationFailed(mode, reason string) {
	if m := Global(); m != nil {
		m.GenerationFailuresTotal.WithLabelValues(mode, reason).Inc()
	}
}

// IncGenerationFallback counts a fallback to template mode
func IncGenerationFallback() {
	if m := Global(); m != nil {
		m.GenerationFallbacksTotal.Inc()
	}
}

// ObserveGeneration records the duration of a generation run
func ObserveGeneration(mode string, seconds float64) {
	if m := Global(); m != nil {
		m.GenerationDurationSeconds.WithLabelValues(mode).Observe(seconds)
	}
}

// AddTokens adds provider reported token usage
func AddTokens(operation string, tokens int) {
	if tokens <= 0 {
		return
	}
	if m := Global(); m != nil {
		m.LLMTokensTotal.WithLabelValues(operation).Add(float64(tokens))
	}
}

// IncValidationFailed counts a document that failed validation
func IncValidationFailed(source string) {
	if m := Global(); m != nil {
		m.ValidationFailuresTotal.WithLabelValues(source).Inc()
	}
}

// IncSanitized counts a sanitizer repair
func IncSanitized() {
	if m := Global(); m != nil {
		m.SanitizationsTotal.Inc()
	}
}

// IncEdits counts an edit, approval or undo
func IncEdits(editType string) {
	if m := Global(); m != nil {
		m.EditsTotal.WithLabelValues(editType).Inc()
	}
}

// AddExports counts exported assets; kind is single or bulk
func AddExports(format, kind string, n int) {
	if m := Global(); m != nil {
		m.ExportsTotal.WithLabelValues(format, kind).Add(float64(n))
	}
}

// IncProofsSent counts a delivered proof
func IncProofsSent() {
	if m := Global(); m != nil {
		m.ProofsSentTotal.Inc()
	}
}

// IncProofsFailed counts a failed proof
func IncProofsFailed(stage string) {
	if m := Global(); m != nil {
		m.ProofsFailedTotal.WithLabelValues(stage).Inc()
	}
}

// IncAPIErrors increments API error counter
func IncAPIErrors(errorType string) {
	if m := Global(); m != nil {
		m.APIErrorsTotal.WithLabelValues(errorType).Inc()
	}
}
