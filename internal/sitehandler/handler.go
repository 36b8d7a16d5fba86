// Package sitehandler serves the public site: rendered article pages, the
// article index, and static files from the active content bundle.
package sitehandler

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/viteguide-web/internal/content"
	"github.com/keithlinneman/viteguide-web/internal/render"
)

type Handler struct {
	opts     Options
	router   chi.Router
	pageSalt string
}

func New(opts *Options) (*Handler, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	h := &Handler{opts: *opts, pageSalt: pageSalt(render.LayoutDigest(), opts.SiteName)}

	r := chi.NewRouter()
	getHead(r, "/articles", redirectTo("/articles/"))
	getHead(r, "/articles/", h.serveIndex)
	getHead(r, "/articles/{id}", h.serveArticle)
	getHead(r, "/articles/{id}/", h.redirectArticle)
	r.NotFound(h.serveStatic)
	r.MethodNotAllowed(methodNotAllowed)
	h.router = r
	return h, nil
}

// Routes exposes the router so callers can mount it.
func (h *Handler) Routes() chi.Router { return h.router }

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func getHead(r chi.Router, pattern string, fn http.HandlerFunc) {
	r.Get(pattern, fn)
	r.Head(pattern, fn)
}

func redirectTo(target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusPermanentRedirect)
	}
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Allow", "GET, HEAD")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusMethodNotAllowed)
}

// snapshot returns the active bundle or writes the maintenance page.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) (*content.Snapshot, bool) {
	snap, ok := h.opts.Content.Get()
	if !ok || snap == nil || snap.FS == nil {
		h.serveMaintenance(w, r)
		return nil, false
	}
	return snap, true
}

func (h *Handler) serveStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, r)
		return
	}
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	res, found := resolveStatic(r.URL.Path, snap.FS)
	switch {
	case !found && r.URL.Path == "/":
		// bundles without a landing page open on the article index
		http.Redirect(w, r, "/articles/", http.StatusFound)
	case !found:
		h.serveNotFound(w, r, snap.FS)
	case res.redirect != "":
		http.Redirect(w, r, res.redirect, http.StatusPermanentRedirect)
	default:
		if cc := cacheControlFor(res.file, &h.opts); cc != "" {
			w.Header().Set("Cache-Control", cc)
		}
		http.ServeFileFS(w, r, snap.FS, res.file)
	}
}

func (h *Handler) serveMaintenance(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Retry-After", "60")
	serveFileWithStatus(w, r, http.StatusServiceUnavailable, h.opts.FallbackFS, h.opts.MaintenanceFile)
}

// serveNotFound prefers the bundle's themed 404, then the embedded one, then
// plain text.
func (h *Handler) serveNotFound(w http.ResponseWriter, r *http.Request, siteFS fs.FS) {
	w.Header().Set("Cache-Control", "no-store")
	switch {
	case existsFile(siteFS, h.opts.Site404File):
		serveFileWithStatus(w, r, http.StatusNotFound, siteFS, h.opts.Site404File)
	case existsFile(h.opts.FallbackFS, h.opts.Fallback404File):
		serveFileWithStatus(w, r, http.StatusNotFound, h.opts.FallbackFS, h.opts.Fallback404File)
	default:
		http.Error(w, "404 page not found", http.StatusNotFound)
	}
}

// statusWriter replaces the first status http.ServeFileFS writes so a file
// can be served as a 404 or 503.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		code = w.status
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(w.status)
	}
	return w.ResponseWriter.Write(b)
}

func serveFileWithStatus(w http.ResponseWriter, r *http.Request, status int, fsys fs.FS, name string) {
	// conditional headers would turn an error page into a 304
	r2 := r.Clone(r.Context())
	r2.Header.Del("If-Modified-Since")
	r2.Header.Del("If-None-Match")
	r2.Header.Del("Range")
	http.ServeFileFS(&statusWriter{ResponseWriter: w, status: status}, r2, fsys, name)
}
