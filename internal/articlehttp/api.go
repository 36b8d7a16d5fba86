// Package articlehttp serves the JSON article API: the registry, per-article
// metadata, and a summary of the active content bundle.
package articlehttp

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/viteguide-web/internal/article"
	"github.com/keithlinneman/viteguide-web/internal/content"
	"github.com/keithlinneman/viteguide-web/internal/log"
	"github.com/keithlinneman/viteguide-web/internal/render"
)

// SnapshotProvider is satisfied by *content.Manager.
type SnapshotProvider interface {
	Get() (*content.Snapshot, bool)
}

// DocumentRenderer is satisfied by *render.Renderer.
type DocumentRenderer interface {
	Render(ctx context.Context, snap *content.Snapshot, id article.ID) (*render.Document, error)
}

type API struct {
	content  SnapshotProvider
	renderer DocumentRenderer
	logger   log.Logger
	now      func() time.Time

	// the registry never changes, so the list body is built once
	list ListResponse
}

func NewAPI(content SnapshotProvider, renderer DocumentRenderer, logger log.Logger) *API {
	if logger == nil {
		logger = log.Nop()
	}
	ids := article.All()
	refs := make([]ArticleRef, len(ids))
	for i, id := range ids {
		refs[i] = ref(id)
	}
	return &API{
		content:  content,
		renderer: renderer,
		logger:   logger,
		now:      time.Now,
		list:     ListResponse{Articles: refs, Count: len(refs)},
	}
}

func ref(id article.ID) ArticleRef {
	return ArticleRef{ID: id, Title: article.Title(id), URL: render.ArticleURL(id)}
}

// RegisterRoutes attaches the API to r for GET and HEAD.
func (api *API) RegisterRoutes(r chi.Router) {
	for pattern, h := range map[string]http.HandlerFunc{
		"/api/articles":      api.HandleList,
		"/api/articles/{id}": api.HandleArticle,
		"/api/content":       api.HandleContent,
	} {
		r.Get(pattern, h)
		r.Head(pattern, h)
	}
}

// HandleList serves the registry. It does not need loaded content.
func (api *API) HandleList(w http.ResponseWriter, r *http.Request) {
	api.writeJSON(r.Context(), w, http.StatusOK, api.list)
}

// HandleArticle serves metadata for one article. Unknown identifiers are 404.
func (api *API) HandleArticle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := article.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Error: article.ErrUnknown.Error()})
		return
	}

	resp := ArticleResponse{ArticleRef: ref(id)}
	snap, ok := api.content.Get()
	if !ok || api.renderer == nil {
		api.writeJSON(ctx, w, http.StatusOK, resp)
		return
	}

	doc, err := api.renderer.Render(ctx, snap, id)
	switch {
	case errors.Is(err, render.ErrNotFound):
	case err != nil:
		api.logger.Warn(ctx, "render article metadata", "article", id, "err", err)
		api.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Error: "article could not be rendered"})
		return
	default:
		resp.Available = true
		resp.Title = doc.Title
		resp.Description = doc.Description
		resp.Order = doc.Order
		resp.Draft = doc.Draft
		resp.Tags = doc.Tags
		resp.Headings = doc.Headings
		resp.Source = resp.URL + ".md"
	}
	api.writeJSON(ctx, w, http.StatusOK, resp)
}

// HandleContent summarises the active bundle, or 503 without one.
func (api *API) HandleContent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap, ok := api.content.Get()
	if !ok {
		api.writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{Error: content.ErrNoContent.Error()})
		return
	}

	resp := ContentResponse{
		Version:       snap.Meta.Version,
		Hash:          snap.Meta.Hash,
		HashAlgorithm: snap.Meta.HashAlgorithm,
		Source:        snap.Meta.Source,
		Signed:        snap.Meta.Signed,
		LoadedAt:      snap.LoadedAt.UTC().Truncate(time.Second),
		VerifiedAt:    snap.Meta.VerifiedAt.UTC().Truncate(time.Second),
		ServerTime:    api.now().UTC().Truncate(time.Second),
		ArticleCount:  countArticles(snap.FS),
		RegistryCount: article.Len(),
	}
	if m := snap.Manifest; m != nil {
		if m.Version != "" {
			resp.Version = m.Version
		}
		resp.Commit = m.Commit
		if !m.BuiltAt.IsZero() {
			t := m.BuiltAt.UTC()
			resp.BuiltAt = &t
		}
	}

	api.logger.Debug(ctx, "served content summary", "version", resp.Version, "hash", resp.Hash)
	api.writeJSON(ctx, w, http.StatusOK, resp)
}

// countArticles counts registered articles with a file in fsys.
func countArticles(fsys fs.FS) int {
	if fsys == nil {
		return 0
	}
	n := 0
	for _, id := range article.All() {
		if info, err := fs.Stat(fsys, content.ArticlePath(id)); err == nil && !info.IsDir() {
			n++
		}
	}
	return n
}

func (api *API) writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		api.logger.Warn(ctx, "encode JSON response", "err", err)
	}
}
