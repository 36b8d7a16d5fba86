package render

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/keithlinneman/viteguide-web/internal/article"
	"github.com/keithlinneman/viteguide-web/internal/content"
)

type recMetrics struct {
	mu      sync.Mutex
	results map[string]int
	hits    int
	misses  int
}

func newRecMetrics() *recMetrics { return &recMetrics{results: map[string]int{}} }

func (m *recMetrics) IncArticleRender(result string) {
	m.mu.Lock()
	m.results[result]++
	m.mu.Unlock()
}

func (m *recMetrics) IncRenderCache(hit bool) {
	m.mu.Lock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
	m.mu.Unlock()
}

func testSnapshot(hash string, files map[article.ID]string) *content.Snapshot {
	fsys := fstest.MapFS{}
	for id, body := range files {
		fsys[content.ArticlePath(id)] = &fstest.MapFile{Data: []byte(body)}
	}
	return &content.Snapshot{FS: fsys, Meta: content.Meta{Hash: hash}}
}

func TestRenderer_CachesByBundle(t *testing.T) {
	m := newRecMetrics()
	r, err := New(Options{CacheSize: 8, Metrics: m})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	v1 := testSnapshot("h1", map[article.ID]string{article.SSR: "# Old"})
	v2 := testSnapshot("h2", map[article.ID]string{article.SSR: "# New"})

	doc, err := r.Render(ctx, v1, article.SSR)
	if err != nil || doc.Title != "Old" {
		t.Fatalf("first render = %+v, %v", doc, err)
	}
	again, _ := r.Render(ctx, v1, article.SSR)
	if again != doc {
		t.Fatal("second render should come from cache")
	}
	if m.hits != 1 || m.misses != 1 {
		t.Fatalf("hits=%d misses=%d", m.hits, m.misses)
	}

	doc2, err := r.Render(ctx, v2, article.SSR)
	if err != nil || doc2.Title != "New" {
		t.Fatalf("new bundle must not reuse old HTML: %+v, %v", doc2, err)
	}
	if r.Len() != 2 {
		t.Fatalf("cache len = %d", r.Len())
	}
	r.Purge()
	if r.Len() != 0 {
		t.Fatal("Purge should empty the cache")
	}
}

func TestRenderer_Errors(t *testing.T) {
	m := newRecMetrics()
	r, _ := New(Options{Metrics: m})
	ctx := context.Background()
	snap := testSnapshot("h", map[article.ID]string{article.SSR: "# x"})

	if _, err := r.Render(ctx, snap, article.Sass); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing file: %v", err)
	}
	if _, err := r.Render(ctx, snap, article.ID("webpack")); !errors.Is(err, article.ErrUnknown) {
		t.Fatalf("unknown id: %v", err)
	}
	if _, err := r.Render(ctx, nil, article.SSR); !errors.Is(err, content.ErrNoContent) {
		t.Fatalf("nil snapshot: %v", err)
	}
	if m.results["not_found"] != 1 || m.results["unknown"] != 1 || m.results["error"] != 1 {
		t.Fatalf("results = %v", m.results)
	}
}

func TestRenderer_NoCacheWithoutDigest(t *testing.T) {
	r, _ := New(Options{})
	snap := testSnapshot("", map[article.ID]string{article.CSS: "# CSS"})
	if _, err := r.Render(context.Background(), snap, article.CSS); err != nil {
		t.Fatal(err)
	}
	if r.Len() != 0 {
		t.Fatal("snapshots without a digest must not be cached")
	}
}

func TestRenderer_CancelledContext(t *testing.T) {
	r, _ := New(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	snap := testSnapshot("h", map[article.ID]string{article.CSS: "# CSS"})
	if _, err := r.Render(ctx, snap, article.CSS); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestRenderer_Concurrent(t *testing.T) {
	r, _ := New(Options{CacheSize: 4})
	snap := testSnapshot("h", map[article.ID]string{article.Plugins: "# Plugins"})
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Render(context.Background(), snap, article.Plugins); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
}

func TestRenderer_Index(t *testing.T) {
	r, _ := New(Options{})
	snap := testSnapshot("h", map[article.ID]string{
		article.WhyVite:      "---\norder: 1\n---\n# Why",
		article.Introduction: "---\norder: 1\n---\n# Intro",
		article.SSR:          "# SSR",
		article.Preview:      "---\ndraft: true\n---\n# Draft",
		article.Sass:         "---\nbroken\n",
	})
	docs, err := r.Index(context.Background(), snap)
	if err != nil {
		t.Fatal(err)
	}
	var got []article.ID
	for _, d := range docs {
		got = append(got, d.ID)
	}
	want := []article.ID{article.SSR, article.Introduction, article.WhyVite}
	if len(got) != len(want) {
		t.Fatalf("index = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index = %v, want %v", got, want)
		}
	}

	if _, err := r.Index(context.Background(), nil); !errors.Is(err, content.ErrNoContent) {
		t.Fatalf("nil snapshot: %v", err)
	}
}
