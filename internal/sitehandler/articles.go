package sitehandler

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/viteguide-web/internal/article"
	"github.com/keithlinneman/viteguide-web/internal/content"
	"github.com/keithlinneman/viteguide-web/internal/cryptoutil"
	"github.com/keithlinneman/viteguide-web/internal/log"
	"github.com/keithlinneman/viteguide-web/internal/render"
)

// rawSuffix selects the markdown source of an article.
const rawSuffix = ".md"

// etag is weak because compression changes the bytes on the wire. salt
// covers inputs outside the bundle, such as the page templates.
func etag(snap *content.Snapshot, salt, key string) string {
	if snap.Meta.Hash == "" {
		return ""
	}
	h := snap.Meta.Hash
	if len(h) > 16 {
		h = h[:16]
	}
	if salt != "" {
		h += "-" + salt
	}
	return `W/"` + h + "-" + key + `"`
}

// pageSalt identifies everything besides the bundle that shapes a rendered page.
func pageSalt(layout, siteName string) string {
	return cryptoutil.SHA256Hex([]byte(layout + "\x00" + siteName))[:12]
}

// notModified sets ETag and reports whether the client already has it.
func notModified(w http.ResponseWriter, r *http.Request, tag string) bool {
	if tag == "" {
		return false
	}
	w.Header().Set("ETag", tag)
	for _, c := range strings.Split(r.Header.Get("If-None-Match"), ",") {
		if strings.TrimSpace(c) == tag {
			w.WriteHeader(http.StatusNotModified)
			return true
		}
	}
	return false
}

func (h *Handler) redirectArticle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !article.IsValid(id) {
		if snap, ok := h.snapshot(w, r); ok {
			h.serveNotFound(w, r, snap.FS)
		}
		return
	}
	http.Redirect(w, r, render.ArticleURL(article.ID(id)), http.StatusPermanentRedirect)
}

func (h *Handler) serveArticle(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	raw := chi.URLParam(r, "id")
	asSource := strings.HasSuffix(raw, rawSuffix)
	id, err := article.Parse(strings.TrimSuffix(raw, rawSuffix))
	if err != nil {
		h.serveNotFound(w, r, snap.FS)
		return
	}

	if asSource {
		h.serveSource(w, r, snap, id)
		return
	}

	doc, err := h.opts.Renderer.Render(ctx, snap, id)
	switch {
	case errors.Is(err, render.ErrNotFound):
		h.serveNotFound(w, r, snap.FS)
		return
	case err != nil:
		log.FromContext(ctx).Error(ctx, err, "render article", "article", id)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", h.opts.HTMLCacheControl)
	if notModified(w, r, etag(snap, h.pageSalt, string(id))) {
		return
	}

	page := render.Page{SiteName: h.opts.SiteName, ContentVersion: contentVersion(snap), Doc: doc}
	// neighbours are best effort; the page still renders without a pager
	if docs, err := h.opts.Renderer.Index(ctx, snap); err == nil {
		page.Prev, page.Next = render.Neighbors(docs, id)
	}

	var buf bytes.Buffer
	if err := render.WriteArticle(&buf, page); err != nil {
		log.FromContext(ctx).Error(ctx, err, "execute article template", "article", id)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if h.opts.Views != nil {
		h.opts.Views.IncArticleView(string(id))
	}
	writeHTML(w, r, buf.Bytes())
}

func (h *Handler) serveSource(w http.ResponseWriter, r *http.Request, snap *content.Snapshot, id article.ID) {
	src, err := snap.ReadArticle(id)
	if err != nil {
		h.serveNotFound(w, r, snap.FS)
		return
	}
	w.Header().Set("Cache-Control", h.opts.HTMLCacheControl)
	if notModified(w, r, etag(snap, "", string(id)+rawSuffix)) {
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(src)
	}
}

func (h *Handler) serveIndex(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	w.Header().Set("Cache-Control", h.opts.HTMLCacheControl)
	if notModified(w, r, etag(snap, h.pageSalt, "index")) {
		return
	}
	docs, err := h.opts.Renderer.Index(ctx, snap)
	if err != nil {
		log.FromContext(ctx).Error(ctx, err, "render article index")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	page := render.Page{SiteName: h.opts.SiteName, ContentVersion: contentVersion(snap), Docs: docs}
	if err := render.WriteIndex(&buf, page); err != nil {
		log.FromContext(ctx).Error(ctx, err, "execute index template")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeHTML(w, r, buf.Bytes())
}

func contentVersion(snap *content.Snapshot) string {
	if snap.Manifest != nil && snap.Manifest.Version != "" {
		return snap.Manifest.Version
	}
	return snap.Meta.Version
}

func writeHTML(w http.ResponseWriter, r *http.Request, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(body)
	}
}
