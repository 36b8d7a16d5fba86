package sitehandler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/keithlinneman/viteguide-web/internal/article"
	"github.com/keithlinneman/viteguide-web/internal/content"
	"github.com/keithlinneman/viteguide-web/internal/log"
	"github.com/keithlinneman/viteguide-web/internal/render"
)

var ErrInvalidOptions = errors.New("sitehandler: invalid options")

// SnapshotProvider is satisfied by *content.Manager.
type SnapshotProvider interface {
	Get() (*content.Snapshot, bool)
}

// ArticleRenderer is satisfied by *render.Renderer.
type ArticleRenderer interface {
	Render(ctx context.Context, snap *content.Snapshot, id article.ID) (*render.Document, error)
	Index(ctx context.Context, snap *content.Snapshot) ([]*render.Document, error)
}

// ViewCounter is satisfied by *metrics.ServerMetrics.
type ViewCounter interface {
	IncArticleView(id string)
}

type Options struct {
	Logger   log.Logger
	Content  SnapshotProvider
	Renderer ArticleRenderer
	Views    ViewCounter

	// SiteName titles every page.
	SiteName string

	// FallbackFS holds the maintenance page and a default 404 page.
	FallbackFS      fs.FS
	MaintenanceFile string // default "maintenance.html"
	Fallback404File string // default "404.html"
	// Site404File is looked up in the active bundle first.
	Site404File string // default "404.html"

	HTMLCacheControl  string // default "no-cache"
	AssetCacheControl string // default "public, max-age=31536000, immutable"
	OtherCacheControl string // default "public, max-age=3600"
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.SiteName == "" {
		o.SiteName = "Vite Guide"
	}
	if o.MaintenanceFile == "" {
		o.MaintenanceFile = "maintenance.html"
	}
	if o.Fallback404File == "" {
		o.Fallback404File = "404.html"
	}
	if o.Site404File == "" {
		o.Site404File = "404.html"
	}
	if o.HTMLCacheControl == "" {
		o.HTMLCacheControl = "no-cache"
	}
	if o.AssetCacheControl == "" {
		o.AssetCacheControl = "public, max-age=31536000, immutable"
	}
	if o.OtherCacheControl == "" {
		o.OtherCacheControl = "public, max-age=3600"
	}
}

func (o *Options) validate() error {
	if o.Content == nil {
		return fmt.Errorf("%w: Content is nil", ErrInvalidOptions)
	}
	if o.Renderer == nil {
		return fmt.Errorf("%w: Renderer is nil", ErrInvalidOptions)
	}
	if o.FallbackFS == nil {
		return fmt.Errorf("%w: FallbackFS is nil", ErrInvalidOptions)
	}
	// a mispackaged binary should fail at boot, not on the first outage
	if !existsFile(o.FallbackFS, o.MaintenanceFile) {
		return fmt.Errorf("%w: fallback FS has no %q", ErrInvalidOptions, o.MaintenanceFile)
	}
	return nil
}
