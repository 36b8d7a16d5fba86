package content

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/keithlinneman/viteguide-web/internal/article"
)

// registryFS returns a MapFS holding every registered article.
func registryFS() fstest.MapFS {
	fsys := fstest.MapFS{}
	for _, id := range article.All() {
		fsys[ArticlePath(id)] = &fstest.MapFile{Data: []byte("# " + string(id))}
	}
	return fsys
}

func fullManifest() *Manifest {
	return &Manifest{Schema: ManifestSchema, Version: "v1", Articles: article.All()}
}

func TestCheckArticles_Complete(t *testing.T) {
	r, err := CheckArticles(registryFS(), fullManifest())
	if err != nil {
		t.Fatal(err)
	}
	if !r.OK() || r.Err() != nil {
		t.Fatalf("complete bundle should pass: %+v", r)
	}
	if len(r.Present) != article.Len() {
		t.Fatalf("present = %d, want %d", len(r.Present), article.Len())
	}
}

func TestCheckArticles_Problems(t *testing.T) {
	fsys := registryFS()
	delete(fsys, ArticlePath(article.ModuleFederation))
	fsys[ArticlePath(article.Sass)] = &fstest.MapFile{}
	fsys["articles/webpack.md"] = &fstest.MapFile{Data: []byte("nope")}
	fsys["articles/CSS.md"] = &fstest.MapFile{Data: []byte("nope")}
	fsys["articles/notes.txt"] = &fstest.MapFile{Data: []byte("ignored")}

	r, err := CheckArticles(fsys, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(r.Missing, []article.ID{article.ModuleFederation}) {
		t.Fatalf("missing = %v", r.Missing)
	}
	if !slices.Equal(r.Empty, []article.ID{article.Sass}) {
		t.Fatalf("empty = %v", r.Empty)
	}
	if !slices.Equal(r.Unknown, []string{"CSS", "webpack"}) {
		t.Fatalf("unknown = %v", r.Unknown)
	}
	if r.OK() {
		t.Fatal("report should not be OK")
	}

	err = r.Err()
	if !errors.Is(err, article.ErrUnknown) {
		t.Fatalf("Err should wrap article.ErrUnknown: %v", err)
	}
	for _, want := range []string{"module-federation", "sass", "webpack"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Err missing %q: %v", want, err)
		}
	}
}

func TestCheckArticles_NoArticleDir(t *testing.T) {
	r, err := CheckArticles(fstest.MapFS{"index.html": {Data: []byte("x")}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Missing) != article.Len() {
		t.Fatalf("all articles should be missing, got %d", len(r.Missing))
	}
}

func TestCheckArticles_Unlisted(t *testing.T) {
	m := fullManifest()
	m.Articles = slices.DeleteFunc(slices.Clone(m.Articles), func(id article.ID) bool { return id == article.Preview })

	r, err := CheckArticles(registryFS(), m)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(r.Unlisted, []article.ID{article.Preview}) {
		t.Fatalf("unlisted = %v", r.Unlisted)
	}
}

func TestValidateSnapshot(t *testing.T) {
	good := &Snapshot{FS: registryFS(), Manifest: fullManifest()}
	if err := ValidateSnapshot(good, DefaultValidationOptions()); err != nil {
		t.Fatalf("valid snapshot rejected: %v", err)
	}

	incomplete := registryFS()
	delete(incomplete, ArticlePath(article.SSR))

	tests := []struct {
		name string
		snap *Snapshot
		opts ValidationOptions
		want string
	}{
		{"nil", nil, DefaultValidationOptions(), "nil"},
		{"nil fs", &Snapshot{}, DefaultValidationOptions(), "nil filesystem"},
		{"no manifest", &Snapshot{FS: registryFS()}, DefaultValidationOptions(), ManifestFile},
		{"bad manifest", &Snapshot{FS: registryFS(), ManifestErr: errors.New("decode manifest.json: bad entry")}, ValidationOptions{}, "bad entry"},
		{"missing article", &Snapshot{FS: incomplete, Manifest: fullManifest()}, DefaultValidationOptions(), "ssr"},
		{"no index", good, ValidationOptions{RequireIndex: true}, "index.html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSnapshot(tt.snap, tt.opts)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestValidateSnapshot_ChecksDisabled(t *testing.T) {
	snap := &Snapshot{FS: fstest.MapFS{"articles/ssr.md": {Data: []byte("x")}}}
	if err := ValidateSnapshot(snap, ValidationOptions{}); err != nil {
		t.Fatalf("zero options should only require an FS: %v", err)
	}
}
