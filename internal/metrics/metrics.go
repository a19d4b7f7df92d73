// Package metrics exposes Prometheus collectors for page rendering.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RenderStatus labels a finished render.
type RenderStatus string

const (
	RenderSuccess       RenderStatus = "success"
	RenderManifestError RenderStatus = "manifest_error"
	RenderWriteError    RenderStatus = "write_error"
)

// Prompt results.
const (
	PromptOK        = "ok"
	PromptFallback  = "fallback"
	PromptDiscarded = "discarded"
)

// Metrics collects Prometheus metrics for the showcase.
type Metrics struct {
	rendersTotal     *prometheus.CounterVec
	renderDuration   prometheus.Histogram
	samplesRendered  prometheus.Counter
	promptsTotal     *prometheus.CounterVec
	manifestFailures prometheus.Counter
	assetRequests    *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *Metrics
)

// NewMetrics creates the metrics collector. Collectors are registered once
// per process; later calls return the same instance.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInst = &Metrics{
			rendersTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "sepdemo_renders_total",
					Help: "Total number of page renders",
				},
				[]string{"status"},
			),
			renderDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "sepdemo_render_duration_seconds",
					Help:    "Page render duration in seconds, including the prompt wait",
					Buckets: prometheus.DefBuckets,
				},
			),
			samplesRendered: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "sepdemo_samples_rendered_total",
					Help: "Total number of sample subsections rendered",
				},
			),
			promptsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "sepdemo_prompts_total",
					Help: "Prompt text fetches by result",
				},
				[]string{"result"},
			),
			manifestFailures: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "sepdemo_manifest_failures_total",
					Help: "Total number of manifest load failures",
				},
			),
			assetRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "sepdemo_asset_requests_total",
					Help: "Static asset requests by kind",
				},
				[]string{"kind"},
			),
		}
	})
	return metricsInst
}

// RecordRender records a finished render.
func (m *Metrics) RecordRender(status RenderStatus, duration time.Duration, samples int) {
	if m == nil {
		return
	}

	statusLabel := string(status)
	if statusLabel == "" {
		statusLabel = "unknown"
	}

	m.rendersTotal.WithLabelValues(statusLabel).Inc()
	m.renderDuration.Observe(duration.Seconds())
	if samples > 0 {
		m.samplesRendered.Add(float64(samples))
	}
	if status == RenderManifestError {
		m.manifestFailures.Inc()
	}
}

// RecordPrompt records one settled prompt fetch.
func (m *Metrics) RecordPrompt(result string) {
	if m == nil {
		return
	}
	m.promptsTotal.WithLabelValues(result).Inc()
}

// RecordPromptsDiscarded records prompt fetches abandoned at render time.
func (m *Metrics) RecordPromptsDiscarded(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.promptsTotal.WithLabelValues(PromptDiscarded).Add(float64(n))
}

// RecordAsset records a static asset request. ext is the file extension,
// with or without the dot; it is folded into AssetKind.
func (m *Metrics) RecordAsset(ext string) {
	if m == nil {
		return
	}
	m.assetRequests.WithLabelValues(AssetKind(ext)).Inc()
}

// AssetKind maps a file extension onto the fixed set of asset label values.
// The extension comes from the request URL, so anything unknown is "other".
func AssetKind(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "wav":
		return "wav"
	case "png":
		return "png"
	case "txt":
		return "txt"
	case "json":
		return "json"
	case "yaml", "yml":
		return "yaml"
	default:
		return "other"
	}
}
