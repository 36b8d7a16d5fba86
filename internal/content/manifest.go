package content

import (
	"encoding/json"
	"io/fs"
	"time"

	"github.com/keithlinneman/viteguide-web/internal/article"
	"github.com/keithlinneman/viteguide-web/internal/xerrors"
)

// ManifestFile is the bundle-root path of the manifest.
const ManifestFile = "manifest.json"

// ManifestSchema is the only schema version this build understands.
const ManifestSchema = 1

// Manifest is written by the docs build into every bundle.
type Manifest struct {
	Schema  int       `json:"schema"`
	Version string    `json:"version"`
	Commit  string    `json:"commit,omitempty"`
	BuiltAt time.Time `json:"built_at,omitempty"`

	// Articles lists the identifiers the bundle claims to ship.
	// Decoding fails on any identifier outside the registry.
	Articles []article.ID `json:"articles"`
}

// LoadManifest reads and decodes manifest.json from fsys.
func LoadManifest(fsys fs.FS) (*Manifest, error) {
	data, err := fs.ReadFile(fsys, ManifestFile)
	if err != nil {
		return nil, xerrors.Wrapf(err, "read %s", ManifestFile)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, xerrors.Wrapf(err, "decode %s", ManifestFile)
	}
	if m.Schema != ManifestSchema {
		return nil, xerrors.Newf("%s: unsupported schema %d (want %d)", ManifestFile, m.Schema, ManifestSchema)
	}
	return &m, nil
}

// Lists reports whether the manifest names id.
func (m *Manifest) Lists(id article.ID) bool {
	if m == nil {
		return false
	}
	for _, a := range m.Articles {
		if a == id {
			return true
		}
	}
	return false
}
