package articlehttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/viteguide-web/internal/article"
	"github.com/keithlinneman/viteguide-web/internal/content"
	"github.com/keithlinneman/viteguide-web/internal/render"
)

type stubProvider struct {
	snap *content.Snapshot
	ok   bool
}

func (s stubProvider) Get() (*content.Snapshot, bool) { return s.snap, s.ok }

type stubRenderer struct {
	docs map[article.ID]*render.Document
	err  error
}

func (s stubRenderer) Render(_ context.Context, _ *content.Snapshot, id article.ID) (*render.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	if d, ok := s.docs[id]; ok {
		return d, nil
	}
	return nil, render.ErrNotFound
}

func testSnapshot() *content.Snapshot {
	return &content.Snapshot{
		FS: fstest.MapFS{
			"articles/ssr.md":     {Data: []byte("# SSR")},
			"articles/plugins.md": {Data: []byte("# Plugins")},
			"articles/webpack.md": {Data: []byte("# not registered")},
		},
		Meta: content.Meta{
			Version:       "2024.06.1",
			Hash:          "abc123",
			HashAlgorithm: "sha256",
			Source:        content.SourceS3,
			Signed:        true,
		},
		Manifest: &content.Manifest{
			Schema:  content.ManifestSchema,
			Version: "2024.06.1",
			Commit:  "deadbeef",
			BuiltAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		LoadedAt: time.Date(2024, 6, 2, 8, 30, 15, 0, time.UTC),
	}
}

func newRouter(p SnapshotProvider, r DocumentRenderer) http.Handler {
	router := chi.NewRouter()
	NewAPI(p, r, nil).RegisterRoutes(router)
	return router
}

func getJSON(t *testing.T, h http.Handler, path string, v any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("%s Content-Type = %q", path, ct)
	}
	if v != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
			t.Fatalf("%s decode: %v\n%s", path, err, rec.Body.String())
		}
	}
	return rec
}

func TestHandleList(t *testing.T) {
	h := newRouter(stubProvider{}, nil)
	var resp ListResponse
	rec := getJSON(t, h, "/api/articles", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp.Count != 44 || len(resp.Articles) != 44 {
		t.Fatalf("count = %d, len = %d", resp.Count, len(resp.Articles))
	}
	seen := map[article.ID]bool{}
	for _, a := range resp.Articles {
		if !a.ID.Valid() || a.Title == "" || a.URL != "/articles/"+string(a.ID) {
			t.Fatalf("bad entry %+v", a)
		}
		seen[a.ID] = true
	}
	if len(seen) != 44 {
		t.Fatalf("duplicates in list: %d distinct", len(seen))
	}
}

func TestHandleArticle_Unknown(t *testing.T) {
	h := newRouter(stubProvider{snap: testSnapshot(), ok: true}, stubRenderer{})
	for _, id := range []string{"webpack", "SSR", "ssr-"} {
		rec := getJSON(t, h, "/api/articles/"+id, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s status = %d", id, rec.Code)
		}
		if strings.TrimSpace(rec.Body.String()) != `{"error":"unknown article"}` {
			t.Fatalf("%s body = %s", id, rec.Body.String())
		}
	}
}

func TestHandleArticle_Available(t *testing.T) {
	r := stubRenderer{docs: map[article.ID]*render.Document{
		article.SSR: {
			ID: article.SSR, Title: "SSR Guide", Description: "server rendering", Order: 3,
			Headings: []render.Heading{{Level: 2, ID: "setup", Text: "Setup"}},
		},
	}}
	h := newRouter(stubProvider{snap: testSnapshot(), ok: true}, r)

	var resp ArticleResponse
	if rec := getJSON(t, h, "/api/articles/ssr", &resp); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !resp.Available || resp.Title != "SSR Guide" || resp.Order != 3 {
		t.Fatalf("resp = %+v", resp)
	}
	if len(resp.Headings) != 1 || resp.Headings[0].ID != "setup" {
		t.Fatalf("headings = %+v", resp.Headings)
	}
	if resp.Source != "/articles/ssr.md" {
		t.Fatalf("source = %q", resp.Source)
	}
}

func TestHandleArticle_NotInBundle(t *testing.T) {
	h := newRouter(stubProvider{snap: testSnapshot(), ok: true}, stubRenderer{})
	var resp ArticleResponse
	if rec := getJSON(t, h, "/api/articles/why-vite", &resp); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp.Available || resp.Title != "Why Vite?" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestHandleArticle_NoContent(t *testing.T) {
	h := newRouter(stubProvider{}, stubRenderer{})
	var resp ArticleResponse
	if rec := getJSON(t, h, "/api/articles/ssr", &resp); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp.Available {
		t.Fatal("nothing is available without content")
	}
}

func TestHandleArticle_RenderError(t *testing.T) {
	h := newRouter(stubProvider{snap: testSnapshot(), ok: true}, stubRenderer{err: errors.New("bad front matter")})
	if rec := getJSON(t, h, "/api/articles/ssr", nil); rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleContent(t *testing.T) {
	api := NewAPI(stubProvider{snap: testSnapshot(), ok: true}, nil, nil)
	api.now = func() time.Time { return time.Date(2024, 6, 3, 0, 0, 0, 500, time.UTC) }
	router := chi.NewRouter()
	api.RegisterRoutes(router)

	var resp ContentResponse
	if rec := getJSON(t, router, "/api/content", &resp); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp.Version != "2024.06.1" || resp.Commit != "deadbeef" || resp.Hash != "abc123" {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Source != content.SourceS3 || !resp.Signed {
		t.Fatalf("source/signed = %v/%v", resp.Source, resp.Signed)
	}
	if resp.ArticleCount != 2 || resp.RegistryCount != 44 {
		t.Fatalf("counts = %d/%d", resp.ArticleCount, resp.RegistryCount)
	}
	if resp.BuiltAt == nil || !resp.BuiltAt.Equal(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("built_at = %v", resp.BuiltAt)
	}
	if resp.ServerTime.Nanosecond() != 0 {
		t.Fatal("server time should be truncated to seconds")
	}
}

func TestHandleContent_NoContent(t *testing.T) {
	h := newRouter(stubProvider{}, nil)
	rec := getJSON(t, h, "/api/content", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"error":"no content loaded"}` {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestRoutes_AcceptHead(t *testing.T) {
	h := newRouter(stubProvider{snap: testSnapshot(), ok: true}, stubRenderer{})
	tests := []struct {
		path string
		want int
	}{
		{"/api/articles", http.StatusOK},
		{"/api/articles/webpack", http.StatusNotFound},
		{"/api/content", http.StatusOK},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("HEAD %s = %d, want %d", tt.path, rec.Code, tt.want)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/articles", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST status = %d", rec.Code)
	}
}
