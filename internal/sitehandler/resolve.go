package sitehandler

import (
	"io/fs"
	"path"
	"strings"

	"github.com/keithlinneman/viteguide-web/internal/content"
	"github.com/keithlinneman/viteguide-web/internal/pathutil"
)

// resolution is the outcome of mapping a URL path onto the bundle.
type resolution struct {
	file     string // path inside the FS, set when found
	redirect string // canonical URL to redirect to instead
}

// hiddenStatic is bundle content never served as a static file; the article
// routes and /api/content expose it instead.
func hiddenStatic(name string) bool {
	return name == content.ManifestFile ||
		name == content.ArticleDir ||
		strings.HasPrefix(name, content.ArticleDir+"/")
}

// resolveStatic maps urlPath to a file in fsys. "/" and "dir/" serve
// index.html; "dir" redirects to "dir/" when dir/index.html exists.
// Ambiguous paths never resolve.
func resolveStatic(urlPath string, fsys fs.FS) (resolution, bool) {
	p := urlPath
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if !pathutil.SafeURLPath(p) {
		return resolution{}, false
	}

	name := strings.TrimPrefix(p, "/")
	dir := name == "" || strings.HasSuffix(name, "/")
	if dir {
		name += "index.html"
	}
	if hiddenStatic(strings.TrimSuffix(name, "/")) {
		return resolution{}, false
	}
	if existsFile(fsys, name) {
		return resolution{file: name}, true
	}
	if dir || path.Ext(name) != "" {
		return resolution{}, false
	}
	if existsFile(fsys, name+"/index.html") {
		return resolution{redirect: p + "/"}, true
	}
	return resolution{}, false
}

func existsFile(fsys fs.FS, name string) bool {
	if fsys == nil || !fs.ValidPath(name) {
		return false
	}
	info, err := fs.Stat(fsys, name)
	return err == nil && !info.IsDir()
}
