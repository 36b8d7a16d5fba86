package sitehandler

import (
	"path"
	"strings"
)

// cacheControlFor picks a Cache-Control value by extension. Extensionless
// names are pretty URLs and get the HTML policy.
func cacheControlFor(name string, o *Options) string {
	switch ext := strings.ToLower(path.Ext(name)); ext {
	case "", ".html":
		return o.HTMLCacheControl
	case ".css", ".js", ".mjs", ".map",
		".png", ".jpg", ".jpeg", ".webp", ".gif", ".svg", ".ico", ".avif",
		".woff", ".woff2", ".ttf":
		return o.AssetCacheControl
	default:
		return o.OtherCacheControl
	}
}
