package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/keithlinneman/viteguide-web/internal/article"
)

func TestWriteArticle(t *testing.T) {
	doc, err := Parse(article.HotModuleReplacement, []byte("# HMR\n\n## API\n\n## Events\n\nBody text.\n"))
	if err != nil {
		t.Fatal(err)
	}
	prev := &Document{ID: article.GlobImport, Title: "Glob Import"}

	var buf bytes.Buffer
	err = WriteArticle(&buf, Page{SiteName: "Vite Guide", ContentVersion: "v9", Doc: doc, Prev: prev})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"<title>HMR | Vite Guide</title>",
		`data-article="hot-module-replacement"`,
		`data-content-version="v9"`,
		`<a href="#api">API</a>`,
		`href="/articles/glob-import"`,
		"Body text.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, `rel="next"`) {
		t.Error("no next link expected")
	}
}

func TestWriteArticle_NilDoc(t *testing.T) {
	if err := WriteArticle(&bytes.Buffer{}, Page{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestWriteIndex_EscapesText(t *testing.T) {
	docs := []*Document{{ID: article.CSS, Title: "CSS <b>", Description: "styles & more"}}
	var buf bytes.Buffer
	if err := WriteIndex(&buf, Page{SiteName: "Vite Guide", Docs: docs}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "CSS &lt;b&gt;") || !strings.Contains(out, "styles &amp; more") {
		t.Fatalf("titles should be escaped: %s", out)
	}
	if !strings.Contains(out, `href="/articles/css"`) {
		t.Fatalf("missing article link: %s", out)
	}
}

func TestNeighbors(t *testing.T) {
	docs := []*Document{{ID: article.Introduction}, {ID: article.WhyVite}, {ID: article.BasicSetup}}
	prev, next := Neighbors(docs, article.WhyVite)
	if prev.ID != article.Introduction || next.ID != article.BasicSetup {
		t.Fatalf("neighbors = %v, %v", prev, next)
	}
	prev, next = Neighbors(docs, article.Introduction)
	if prev != nil || next.ID != article.WhyVite {
		t.Fatal("first item has no prev")
	}
	prev, next = Neighbors(docs, article.SSR)
	if prev != nil || next != nil {
		t.Fatal("absent id has no neighbors")
	}
}
