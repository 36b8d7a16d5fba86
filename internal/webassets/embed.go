// Package webassets embeds the pages served when no bundle is usable and a
// seed article bundle the server can start from before S3 answers.
package webassets

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
)

// fallback/ and seed/ must each hold at least one file for go:embed
//
//go:embed fallback seed
var embedded embed.FS

// SeedManifest is the file that marks seed/ as a usable bundle.
const SeedManifest = "manifest.json"

func FallbackFS() fs.FS {
	sub, err := fs.Sub(embedded, "fallback")
	if err != nil {
		panic(fmt.Errorf("webassets: fallback subfs: %w", err))
	}
	return sub
}

// SeedFS returns the embedded seed bundle, or false when the binary was
// built without one.
func SeedFS() (fs.FS, bool) {
	sub, err := fs.Sub(embedded, "seed")
	if err != nil {
		return nil, false
	}
	if _, err := fs.Stat(sub, SeedManifest); err != nil {
		return nil, false
	}
	return sub, true
}

// Digest is a sha256 over every file path and body in fsys, walked in
// lexical order. It stands in for the archive hash of bundles that never
// were archives, so render caching still has a stable key.
func Digest(fsys fs.FS) (string, error) {
	h := sha256.New()
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		b, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		fmt.Fprintf(h, "%s\x00%d\x00", p, len(b))
		h.Write(b)
		return nil
	})
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
