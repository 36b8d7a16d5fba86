package render

import (
	"embed"
	"html/template"
	"io"
	"sync"

	"github.com/keithlinneman/viteguide-web/internal/article"
	"github.com/keithlinneman/viteguide-web/internal/webassets"
	"github.com/keithlinneman/viteguide-web/internal/xerrors"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("").Funcs(template.FuncMap{
	"articleURL": ArticleURL,
}).ParseFS(templateFS, "templates/*.html"))

var layoutDigest = sync.OnceValue(func() string {
	d, err := webassets.Digest(templateFS)
	if err != nil {
		return ""
	}
	return d
})

// LayoutDigest is a sha256 over the compiled-in page templates. Cache
// validators for rendered pages must include it.
func LayoutDigest() string { return layoutDigest() }

// ArticleURL is the canonical site path for id.
func ArticleURL(id article.ID) string { return "/articles/" + string(id) }

// Page is the data passed to the HTML templates.
type Page struct {
	SiteName       string
	ContentVersion string
	Doc            *Document
	Docs           []*Document
	Prev, Next     *Document
}

// WriteArticle renders a single article page.
func WriteArticle(w io.Writer, p Page) error {
	if p.Doc == nil {
		return xerrors.New("article page without document")
	}
	return pages.ExecuteTemplate(w, "article.html", p)
}

// WriteIndex renders the article list.
func WriteIndex(w io.Writer, p Page) error {
	return pages.ExecuteTemplate(w, "index.html", p)
}

// Neighbors returns the documents either side of id in docs.
func Neighbors(docs []*Document, id article.ID) (prev, next *Document) {
	for i, d := range docs {
		if d.ID != id {
			continue
		}
		if i > 0 {
			prev = docs[i-1]
		}
		if i+1 < len(docs) {
			next = docs[i+1]
		}
		break
	}
	return prev, next
}
