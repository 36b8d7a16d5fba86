package content

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"testing"
	"time"

	"github.com/keithlinneman/viteguide-web/internal/article"
)

type tarEntry struct {
	name     string
	body     string
	typeflag byte
}

func makeTarGz(t *testing.T, entries []tarEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	for _, e := range entries {
		tf := e.typeflag
		if tf == 0 {
			tf = tar.TypeReg
		}
		hdr := &tar.Header{Name: e.name, Mode: 0o644, Typeflag: tf, ModTime: time.Unix(1700000000, 0)}
		switch tf {
		case tar.TypeReg:
			hdr.Size = int64(len(e.body))
		case tar.TypeSymlink:
			hdr.Linkname = e.body
		case tar.TypeDir:
			hdr.Mode = 0o755
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write header %s: %v", e.name, err)
		}
		if tf == tar.TypeReg {
			if _, err := tw.Write([]byte(e.body)); err != nil {
				t.Fatalf("write %s: %v", e.name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func manifestJSON(t *testing.T, version string, ids []article.ID) string {
	t.Helper()
	b, err := json.Marshal(Manifest{Schema: ManifestSchema, Version: version, Articles: ids})
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

// fullBundle returns entries for a bundle shipping every registered article.
func fullBundle(t *testing.T, version string) []tarEntry {
	t.Helper()
	entries := []tarEntry{
		{name: "articles/", typeflag: tar.TypeDir},
		{name: ManifestFile, body: manifestJSON(t, version, article.All())},
	}
	for _, id := range article.All() {
		entries = append(entries, tarEntry{name: ArticlePath(id), body: "# " + article.Title(id) + "\n"})
	}
	return entries
}

// without drops the entry for path.
func without(entries []tarEntry, path string) []tarEntry {
	out := make([]tarEntry, 0, len(entries))
	for _, e := range entries {
		if e.name != path {
			out = append(out, e)
		}
	}
	return out
}
