package content

import (
	"io/fs"
	"time"

	"github.com/keithlinneman/viteguide-web/internal/article"
)

// ArticleDir is the bundle directory holding one <id>.md per article.
const ArticleDir = "articles"

// Snapshot is an immutable view of one extracted bundle.
type Snapshot struct {
	FS       fs.FS
	Meta     Meta
	Manifest *Manifest
	LoadedAt time.Time

	// ManifestErr is set when manifest.json exists but cannot be used.
	// Manifest is nil in that case.
	ManifestErr error
}

// ArticlePath returns the bundle path of id's markdown source.
func ArticlePath(id article.ID) string {
	return ArticleDir + "/" + string(id) + ".md"
}

// ReadArticle returns the raw markdown for id.
func (s *Snapshot) ReadArticle(id article.ID) ([]byte, error) {
	return fs.ReadFile(s.FS, ArticlePath(id))
}
