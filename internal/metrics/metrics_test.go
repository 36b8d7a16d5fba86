package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/keithlinneman/viteguide-web/internal/version"
)

// family gathers and returns the named metric family, or nil.
func family(t *testing.T, m *ServerMetrics, name string) *dto.MetricFamily {
	t.Helper()
	mfs, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func labelValue(mt *dto.Metric, name string) string {
	for _, lp := range mt.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// counterFor returns the counter value of the series whose label equals value.
func counterFor(t *testing.T, m *ServerMetrics, name, label, value string) float64 {
	t.Helper()
	mf := family(t, m, name)
	if mf == nil {
		t.Fatalf("metric %s not gathered", name)
	}
	for _, mt := range mf.GetMetric() {
		if labelValue(mt, label) == value {
			return mt.GetCounter().GetValue()
		}
	}
	t.Fatalf("%s{%s=%q} not found", name, label, value)
	return 0
}

func TestHandler_Scrape(t *testing.T) {
	m := New()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, name := range []string{"http_inflight_requests", "http_panic_total", "content_articles", "go_goroutines"} {
		if !strings.Contains(body, name) {
			t.Errorf("%s missing from scrape", name)
		}
	}
}

func TestBuildInfo(t *testing.T) {
	m := New()
	dirty := true
	m.SetBuildInfoFromVersion("viteguide", "server", &version.Info{Version: "1.0.0", Commit: "abc", VCSDirty: &dirty})

	mf := family(t, m, "build_info")
	if mf == nil || len(mf.GetMetric()) != 1 {
		t.Fatal("build_info should have one series")
	}
	mt := mf.GetMetric()[0]
	if labelValue(mt, "version") != "1.0.0" || labelValue(mt, "vcs_dirty") != "true" {
		t.Fatalf("labels = %v", mt.GetLabel())
	}
}

func TestContentGaugesReset(t *testing.T) {
	m := New()
	m.SetContentSource("seed")
	m.SetContentSource("s3")
	m.SetContentBundle("aaa", "v1")
	m.SetContentBundle("bbb", "v2")
	m.SetContentArticles(44)
	m.SetContentLoadedTimestamp(time.Unix(1700000000, 0))

	if mf := family(t, m, "content_source_info"); len(mf.GetMetric()) != 1 || labelValue(mf.GetMetric()[0], "source") != "s3" {
		t.Fatalf("content_source_info should hold only the latest source")
	}
	if mf := family(t, m, "content_bundle_info"); len(mf.GetMetric()) != 1 || labelValue(mf.GetMetric()[0], "sha256") != "bbb" {
		t.Fatal("content_bundle_info should hold only the latest bundle")
	}
	if v := family(t, m, "content_articles").GetMetric()[0].GetGauge().GetValue(); v != 44 {
		t.Fatalf("content_articles = %v", v)
	}
}

func TestArticleCounters(t *testing.T) {
	m := New()
	m.IncArticleView("ssr")
	m.IncArticleView("ssr")
	m.IncArticleRender("ok")
	m.IncArticleRender("not_found")
	m.IncRenderCache(true)
	m.IncRenderCache(false)
	m.IncRenderCache(false)

	if v := counterFor(t, m, "article_views_total", "article", "ssr"); v != 2 {
		t.Fatalf("views = %v", v)
	}
	if v := counterFor(t, m, "article_renders_total", "result", "not_found"); v != 1 {
		t.Fatalf("renders{not_found} = %v", v)
	}
	if v := counterFor(t, m, "article_render_cache_total", "result", "miss"); v != 2 {
		t.Fatalf("cache misses = %v", v)
	}
}

func TestWatcherMetrics(t *testing.T) {
	m := New()
	m.IncWatcherPolls()
	m.IncWatcherSwaps()
	m.IncWatcherError("validation")
	m.ObserveBundleLoadDuration(0.3)
	m.SetWatcherStale(true)
	m.SetWatcherLastSuccess(1700000000)

	if v := counterFor(t, m, "content_watcher_errors_total", "type", "validation"); v != 1 {
		t.Fatalf("errors = %v", v)
	}
	if v := family(t, m, "content_watcher_stale").GetMetric()[0].GetGauge().GetValue(); v != 1 {
		t.Fatalf("stale = %v", v)
	}
	if c := family(t, m, "content_bundle_load_duration_seconds").GetMetric()[0].GetHistogram().GetSampleCount(); c != 1 {
		t.Fatalf("load samples = %d", c)
	}
}
