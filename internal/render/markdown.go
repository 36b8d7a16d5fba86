package render

import (
	"bytes"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/keithlinneman/viteguide-web/internal/article"
	"github.com/keithlinneman/viteguide-web/internal/xerrors"
)

// Heading is one entry of an article's table of contents.
type Heading struct {
	Level int    `json:"level"`
	ID    string `json:"id"`
	Text  string `json:"text"`
}

// Document is a rendered article.
type Document struct {
	ID          article.ID    `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Order       int           `json:"order,omitempty"`
	Draft       bool          `json:"draft,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
	Headings    []Heading     `json:"headings,omitempty"`
	HTML        template.HTML `json:"-"`
}

// markdown has raw HTML rendering off, so bundle authors cannot inject markup.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// Parse renders one article's source. The title comes from front matter,
// then the first level-one heading, then the registry.
func Parse(id article.ID, src []byte) (*Document, error) {
	if !id.Valid() {
		return nil, xerrors.Wrapf(article.ErrUnknown, "parse %q", string(id))
	}
	fm, body, err := SplitFrontMatter(src)
	if err != nil {
		return nil, xerrors.Wrapf(err, "article %s", id)
	}

	root := markdown.Parser().Parse(text.NewReader(body))
	headings := collectHeadings(root, body)

	var out bytes.Buffer
	if err := markdown.Renderer().Render(&out, body, root); err != nil {
		return nil, xerrors.Wrapf(err, "render article %s", id)
	}

	doc := &Document{
		ID:          id,
		Title:       fm.Title,
		Description: fm.Description,
		Order:       fm.Order,
		Draft:       fm.Draft,
		Tags:        fm.Tags,
		Headings:    headings,
		HTML:        template.HTML(out.String()),
	}
	if doc.Title == "" {
		for _, h := range headings {
			if h.Level == 1 {
				doc.Title = h.Text
				break
			}
		}
	}
	if doc.Title == "" {
		doc.Title = article.Title(id)
	}
	return doc, nil
}

func collectHeadings(root ast.Node, src []byte) []Heading {
	var out []Heading
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		h, ok := n.(*ast.Heading)
		if !ok || !entering {
			return ast.WalkContinue, nil
		}
		var id string
		if v, ok := h.AttributeString("id"); ok {
			if b, ok := v.([]byte); ok {
				id = string(b)
			}
		}
		out = append(out, Heading{Level: h.Level, ID: id, Text: plainText(h, src)})
		return ast.WalkSkipChildren, nil
	})
	return out
}

// plainText concatenates the text segments under n.
func plainText(n ast.Node, src []byte) string {
	var b bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
