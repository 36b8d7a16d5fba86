package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/keithlinneman/viteguide-web/internal/article"
	"github.com/keithlinneman/viteguide-web/internal/content"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// writeContent lays out a content directory holding ids, with a manifest
// listing listed (nil skips the manifest).
func writeContent(t *testing.T, ids []article.ID, listed []article.ID) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, content.ArticleDir), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, id := range ids {
		p := filepath.Join(dir, filepath.FromSlash(content.ArticlePath(id)))
		if err := os.WriteFile(p, []byte("# "+article.Title(id)+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if listed != nil {
		b, err := json.Marshal(content.Manifest{Schema: content.ManifestSchema, Version: "test", Articles: listed})
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, content.ManifestFile), b, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestList(t *testing.T) {
	out, err := run(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != article.Len() {
		t.Fatalf("got %d lines, want %d", len(lines), article.Len())
	}
	if lines[0] != string(article.All()[0]) {
		t.Fatalf("first line = %q", lines[0])
	}
}

func TestList_Titles(t *testing.T) {
	out, err := run(t, "list", "--titles")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, article.Title(article.WhyVite)) {
		t.Fatalf("titles missing from output:\n%s", out)
	}
}

func TestList_RejectsArgs(t *testing.T) {
	if _, err := run(t, "list", "extra"); err == nil {
		t.Fatal("expected error for positional args")
	}
}

func TestValidate(t *testing.T) {
	out, err := run(t, "validate", "ssr", "why-vite")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "ssr\tok") || !strings.Contains(out, "why-vite\tok") {
		t.Fatalf("output = %q", out)
	}
}

func TestValidate_Unknown(t *testing.T) {
	out, err := run(t, "validate", "ssr", "webpack", "SSR")
	if !errors.Is(err, article.ErrUnknown) {
		t.Fatalf("err = %v, want ErrUnknown", err)
	}
	if !strings.Contains(err.Error(), "webpack, SSR") {
		t.Fatalf("err should list bad ids: %v", err)
	}
	if !strings.Contains(out, "webpack\tunknown") {
		t.Fatalf("output = %q", out)
	}
}

func TestValidate_Quiet(t *testing.T) {
	out, err := run(t, "validate", "-q", "ssr")
	if err != nil || out != "" {
		t.Fatalf("quiet validate = %q, %v", out, err)
	}
}

func TestVerify_Complete(t *testing.T) {
	dir := writeContent(t, article.All(), article.All())
	out, err := run(t, "verify", dir)
	if err != nil {
		t.Fatalf("verify: %v\n%s", err, out)
	}
	if !strings.HasSuffix(strings.TrimSpace(out), "ok") {
		t.Fatalf("output = %q", out)
	}
}

func TestVerify_Missing(t *testing.T) {
	ids := article.All()
	dir := writeContent(t, ids[1:], ids)
	out, err := run(t, "verify", dir)
	if !errors.Is(err, errDrift) {
		t.Fatalf("err = %v, want errDrift", err)
	}
	if !strings.Contains(out, "missing (1): "+string(ids[0])) {
		t.Fatalf("output = %q", out)
	}
}

func TestVerify_UnknownFile(t *testing.T) {
	dir := writeContent(t, article.All(), article.All())
	if err := os.WriteFile(filepath.Join(dir, content.ArticleDir, "webpack.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "verify", dir)
	if !errors.Is(err, errDrift) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(out, "unknown (1): webpack") {
		t.Fatalf("output = %q", out)
	}
}

func TestVerify_UnknownManifestEntry(t *testing.T) {
	dir := writeContent(t, article.All(), nil)
	manifest := []byte(`{"schema":1,"version":"test","articles":["ssr","webpack"]}`)
	if err := os.WriteFile(filepath.Join(dir, content.ManifestFile), manifest, 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "verify", dir)
	if !errors.Is(err, errDrift) {
		t.Fatalf("err = %v, want errDrift\n%s", err, out)
	}
	if !strings.Contains(out, "manifest: ") || !strings.Contains(out, `"webpack"`) {
		t.Fatalf("output = %q", out)
	}

	out, _ = run(t, "verify", "--json", dir)
	var res verifyResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if res.OK || res.Manifest || !strings.Contains(res.ManifestError, "unknown article") {
		t.Fatalf("result = %+v", res)
	}
}

func TestVerify_JSON(t *testing.T) {
	ids := article.All()
	dir := writeContent(t, ids, ids[:len(ids)-1])
	out, err := run(t, "verify", "--json", dir)
	if !errors.Is(err, errDrift) {
		t.Fatalf("err = %v", err)
	}
	var res verifyResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if res.OK || !res.Manifest || res.Version != "test" {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Report.Unlisted) != 1 || res.Report.Unlisted[0] != ids[len(ids)-1] {
		t.Fatalf("unlisted = %v", res.Report.Unlisted)
	}
}

func TestVerify_RequireManifest(t *testing.T) {
	dir := writeContent(t, article.All(), nil)
	if _, err := run(t, "verify", dir); err != nil {
		t.Fatalf("verify without manifest: %v", err)
	}
	if _, err := run(t, "verify", "--require-manifest", dir); !errors.Is(err, errDrift) {
		t.Fatalf("err = %v, want errDrift", err)
	}
}

func TestVerify_MissingPath(t *testing.T) {
	if _, err := run(t, "verify", filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error")
	}
}
