package render

import (
	"cmp"
	"context"
	"errors"
	"io/fs"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/keithlinneman/viteguide-web/internal/article"
	"github.com/keithlinneman/viteguide-web/internal/content"
	"github.com/keithlinneman/viteguide-web/internal/log"
	"github.com/keithlinneman/viteguide-web/internal/xerrors"
)

// ErrNotFound means the article is registered but the bundle does not ship it.
var ErrNotFound = errors.New("article not in bundle")

const DefaultCacheSize = 256

// Metrics is implemented by *metrics.ServerMetrics.
type Metrics interface {
	IncArticleRender(result string)
	IncRenderCache(hit bool)
}

type Options struct {
	Logger    log.Logger
	CacheSize int
	Metrics   Metrics
}

type cacheKey struct {
	bundle string
	id     article.ID
}

// Renderer turns bundle markdown into Documents, caching by bundle digest so a
// swap never serves stale HTML.
type Renderer struct {
	logger  log.Logger
	cache   *lru.Cache[cacheKey, *Document]
	group   singleflight.Group
	metrics Metrics
}

func New(opts Options) (*Renderer, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, *Document](size)
	if err != nil {
		return nil, xerrors.Wrap(err, "create render cache")
	}
	l := opts.Logger
	if l == nil {
		l = log.Nop()
	}
	return &Renderer{logger: l, cache: cache, metrics: opts.Metrics}, nil
}

func (r *Renderer) count(result string) {
	if r.metrics != nil {
		r.metrics.IncArticleRender(result)
	}
}

// Render returns the Document for id in snap. Concurrent callers for the same
// key share one parse.
func (r *Renderer) Render(ctx context.Context, snap *content.Snapshot, id article.ID) (*Document, error) {
	if !id.Valid() {
		r.count("unknown")
		return nil, xerrors.Wrapf(article.ErrUnknown, "render %q", string(id))
	}
	if snap == nil || snap.FS == nil {
		r.count("error")
		return nil, content.ErrNoContent
	}

	// unpacked directories have no digest and are never cached
	key := cacheKey{bundle: snap.Meta.Hash, id: id}
	cacheable := key.bundle != ""
	if cacheable {
		if doc, ok := r.cache.Get(key); ok {
			r.hit(true)
			return doc, nil
		}
		r.hit(false)
	}

	v, err, _ := r.group.Do(key.bundle+"/"+string(id), func() (any, error) {
		return r.parse(ctx, snap, id)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			r.count("not_found")
		} else {
			r.count("error")
		}
		return nil, err
	}
	doc := v.(*Document)
	if cacheable {
		r.cache.Add(key, doc)
	}
	r.count("ok")
	return doc, nil
}

func (r *Renderer) hit(h bool) {
	if r.metrics != nil {
		r.metrics.IncRenderCache(h)
	}
}

func (r *Renderer) parse(ctx context.Context, snap *content.Snapshot, id article.ID) (*Document, error) {
	ctx, span := otel.Tracer("viteguide/render").Start(ctx, "render.article")
	defer span.End()
	span.SetAttributes(
		attribute.String("article.id", string(id)),
		attribute.String("bundle.hash", snap.Meta.Hash),
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, err := snap.ReadArticle(id)
	if errors.Is(err, fs.ErrNotExist) {
		span.SetStatus(codes.Error, "not found")
		return nil, xerrors.Wrapf(ErrNotFound, "%s", content.ArticlePath(id))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return nil, xerrors.Wrapf(err, "read %s", content.ArticlePath(id))
	}
	doc, err := Parse(id, src)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("article.bytes", len(src)), attribute.Int("article.headings", len(doc.Headings)))
	return doc, nil
}

// Index renders every registered article the bundle ships, drafts excluded,
// ordered by front matter order then identifier. Articles that fail to
// render are logged and skipped.
func (r *Renderer) Index(ctx context.Context, snap *content.Snapshot) ([]*Document, error) {
	if snap == nil || snap.FS == nil {
		return nil, content.ErrNoContent
	}
	docs := make([]*Document, 0, article.Len())
	for _, id := range article.All() {
		doc, err := r.Render(ctx, snap, id)
		switch {
		case errors.Is(err, ErrNotFound):
			continue
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			r.logger.Warn(ctx, "skipping article in index", "article", id, "err", err)
			continue
		}
		if !doc.Draft {
			docs = append(docs, doc)
		}
	}
	slices.SortStableFunc(docs, func(a, b *Document) int {
		return cmp.Or(cmp.Compare(a.Order, b.Order), cmp.Compare(a.ID, b.ID))
	})
	return docs, nil
}

// Purge empties the cache. Entries are keyed by digest, so this only frees memory.
func (r *Renderer) Purge() { r.cache.Purge() }

// Len returns the number of cached documents.
func (r *Renderer) Len() int { return r.cache.Len() }
