package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keithlinneman/viteguide-web/internal/version"
)

// ServerMetrics owns a private registry. Labels are restricted to bounded
// values: method, chi route pattern, status, and registered article ids.
type ServerMetrics struct {
	reg     *prometheus.Registry
	handler http.Handler

	inflight  prometheus.Gauge
	reqTotal  *prometheus.CounterVec
	reqDur    *prometheus.HistogramVec
	respBytes *prometheus.HistogramVec
	errors5xx *prometheus.CounterVec
	panics    prometheus.Counter
	buildInfo *prometheus.GaugeVec

	rateLimited      prometheus.Counter
	rateLimitEvicted prometheus.Counter

	contentSource   *prometheus.GaugeVec
	contentLoadedTs prometheus.Gauge
	contentBundle   *prometheus.GaugeVec
	contentArticles prometheus.Gauge

	articleViews  *prometheus.CounterVec
	renders       *prometheus.CounterVec
	renderCache   *prometheus.CounterVec
	profilingLive prometheus.Gauge

	watcherPolls       prometheus.Counter
	watcherSwaps       prometheus.Counter
	watcherErrors      *prometheus.CounterVec
	bundleLoadDuration prometheus.Histogram
	watcherLastSuccess prometheus.Gauge
	watcherStale       prometheus.Gauge
}

func New() *ServerMetrics {
	m := &ServerMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route"}),
		respBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Response size by method and route",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		}, []string{"method", "route"}),
		errors5xx: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total 5xx responses by method and route",
		}, []string{"method", "route"}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_panic_total",
			Help: "Total recovered handler panics",
		}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"app", "component", "version", "commit", "commit_date", "build_id", "build_date", "vcs_dirty", "go_version"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Total requests rejected by the per-IP rate limiter",
		}),
		rateLimitEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_capacity_total",
			Help: "Total times the rate limiter evicted a client because it was full",
		}),
		contentSource: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "content_source_info",
			Help: "Current content source (label carries value, gauge is always 1)",
		}, []string{"source"}),
		contentLoadedTs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "content_loaded_timestamp_seconds",
			Help: "Unix time the active article bundle was loaded",
		}),
		contentBundle: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "content_bundle_info",
			Help: "Active article bundle (labels carry identity, value is always 1)",
		}, []string{"sha256", "version"}),
		contentArticles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "content_articles",
			Help: "Registered articles present in the active bundle",
		}),
		articleViews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "article_views_total",
			Help: "Article page and API reads by registered article id",
		}, []string{"article"}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "article_renders_total",
			Help: "Article render attempts by result",
		}, []string{"result"}),
		renderCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "article_render_cache_total",
			Help: "Render cache lookups by result (hit|miss)",
		}, []string{"result"}),
		profilingLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profiling_active",
			Help: "Whether continuous profiling is active (1) or disabled/failed (0)",
		}),
		watcherPolls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "content_watcher_polls_total",
			Help: "Total watcher poll cycles",
		}),
		watcherSwaps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "content_watcher_swaps_total",
			Help: "Total article bundles swapped in",
		}),
		watcherErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "content_watcher_errors_total",
			Help: "Total watcher errors by type (ssm|load|validation)",
		}, []string{"type"}),
		bundleLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "content_bundle_load_duration_seconds",
			Help:    "Time to download, verify, and extract an article bundle",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		watcherLastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "content_watcher_last_success_timestamp_seconds",
			Help: "Unix time of the last successful SSM poll",
		}),
		watcherStale: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "content_watcher_stale",
			Help: "Whether the content watcher is stale (1) or healthy (0)",
		}),
	}

	m.reg = prometheus.NewRegistry()
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.inflight, m.reqTotal, m.reqDur, m.respBytes, m.errors5xx, m.panics, m.buildInfo,
		m.rateLimited, m.rateLimitEvicted,
		m.contentSource, m.contentLoadedTs, m.contentBundle, m.contentArticles,
		m.articleViews, m.renders, m.renderCache, m.profilingLive,
		m.watcherPolls, m.watcherSwaps, m.watcherErrors, m.bundleLoadDuration,
		m.watcherLastSuccess, m.watcherStale,
	)
	m.handler = promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
	return m
}

func (m *ServerMetrics) Handler() http.Handler { return m.handler }

// Registry is exposed for tests.
func (m *ServerMetrics) Registry() *prometheus.Registry { return m.reg }

// SetBuildInfoFromVersion is called once at startup.
func (m *ServerMetrics) SetBuildInfoFromVersion(app, component string, vi *version.Info) {
	dirty := "unknown"
	if vi.VCSDirty != nil {
		dirty = strconv.FormatBool(*vi.VCSDirty)
	}
	m.buildInfo.With(prometheus.Labels{
		"app":         app,
		"component":   component,
		"version":     vi.Version,
		"commit":      vi.Commit,
		"commit_date": vi.CommitDate,
		"build_id":    vi.BuildId,
		"build_date":  vi.BuildDate,
		"go_version":  vi.GoVersion,
		"vcs_dirty":   dirty,
	}).Set(1)
}

func (m *ServerMetrics) IncHttpPanic()        { m.panics.Inc() }
func (m *ServerMetrics) IncRateLimitDenied()   { m.rateLimited.Inc() }
func (m *ServerMetrics) IncRateLimitCapacity() { m.rateLimitEvicted.Inc() }

func (m *ServerMetrics) SetContentSource(source string) {
	m.contentSource.Reset()
	m.contentSource.WithLabelValues(source).Set(1)
}

func (m *ServerMetrics) SetContentLoadedTimestamp(t time.Time) {
	m.contentLoadedTs.Set(float64(t.Unix()))
}

func (m *ServerMetrics) SetContentBundle(sha256, version string) {
	m.contentBundle.Reset()
	m.contentBundle.WithLabelValues(sha256, version).Set(1)
}

func (m *ServerMetrics) SetContentArticles(n int) { m.contentArticles.Set(float64(n)) }

// IncArticleView must only be called with registered ids.
func (m *ServerMetrics) IncArticleView(id string) { m.articleViews.WithLabelValues(id).Inc() }

func (m *ServerMetrics) IncArticleRender(result string) { m.renders.WithLabelValues(result).Inc() }

func (m *ServerMetrics) IncRenderCache(hit bool) {
	if hit {
		m.renderCache.WithLabelValues("hit").Inc()
		return
	}
	m.renderCache.WithLabelValues("miss").Inc()
}

func (m *ServerMetrics) SetProfilingActive(active bool) { m.profilingLive.Set(b2f(active)) }

func (m *ServerMetrics) IncWatcherPolls()               { m.watcherPolls.Inc() }
func (m *ServerMetrics) IncWatcherSwaps()               { m.watcherSwaps.Inc() }
func (m *ServerMetrics) IncWatcherError(errType string) { m.watcherErrors.WithLabelValues(errType).Inc() }
func (m *ServerMetrics) ObserveBundleLoadDuration(s float64) {
	m.bundleLoadDuration.Observe(s)
}
func (m *ServerMetrics) SetWatcherLastSuccess(unix float64) { m.watcherLastSuccess.Set(unix) }
func (m *ServerMetrics) SetWatcherStale(stale bool)         { m.watcherStale.Set(b2f(stale)) }

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
