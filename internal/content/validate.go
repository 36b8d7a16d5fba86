package content

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/keithlinneman/viteguide-web/internal/article"
	"github.com/keithlinneman/viteguide-web/internal/xerrors"
)

// Report is the result of comparing a bundle's articles/ directory with the registry.
type Report struct {
	Present []article.ID `json:"present"`
	Missing []article.ID `json:"missing"`
	Empty   []article.ID `json:"empty"`

	// Unknown holds file stems under articles/ that are not registered.
	Unknown []string `json:"unknown"`

	// Unlisted holds registered articles present on disk but absent from manifest.json.
	Unlisted []article.ID `json:"unlisted,omitempty"`
}

// OK reports whether every registered article is present, non-empty, and nothing extra shipped.
func (r Report) OK() bool {
	return len(r.Missing) == 0 && len(r.Empty) == 0 && len(r.Unknown) == 0 && len(r.Unlisted) == 0
}

// Err folds the report into one error, or nil when OK.
func (r Report) Err() error {
	var errs []error
	if len(r.Missing) > 0 {
		errs = append(errs, fmt.Errorf("missing articles: %s", joinIDs(r.Missing)))
	}
	if len(r.Empty) > 0 {
		errs = append(errs, fmt.Errorf("empty articles: %s", joinIDs(r.Empty)))
	}
	if len(r.Unknown) > 0 {
		errs = append(errs, fmt.Errorf("%w: %s", article.ErrUnknown, strings.Join(r.Unknown, ", ")))
	}
	if len(r.Unlisted) > 0 {
		errs = append(errs, fmt.Errorf("articles not listed in %s: %s", ManifestFile, joinIDs(r.Unlisted)))
	}
	return errors.Join(errs...)
}

func joinIDs(ids []article.ID) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = string(id)
	}
	return strings.Join(s, ", ")
}

// CheckArticles walks articles/ in fsys and reports it against the registry.
// m may be nil, which skips the manifest cross-check.
func CheckArticles(fsys fs.FS, m *Manifest) (Report, error) {
	var r Report
	seen := make(map[article.ID]bool, article.Len())

	entries, err := fs.ReadDir(fsys, ArticleDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return r, xerrors.Wrapf(err, "read %s/", ArticleDir)
	}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".md" {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), ".md")
		id, err := article.Parse(stem)
		if err != nil {
			r.Unknown = append(r.Unknown, stem)
			continue
		}
		seen[id] = true
		info, err := e.Info()
		if err != nil {
			return r, xerrors.Wrapf(err, "stat %s", ArticlePath(id))
		}
		if info.Size() == 0 {
			r.Empty = append(r.Empty, id)
			continue
		}
		r.Present = append(r.Present, id)
	}

	for _, id := range article.All() {
		if !seen[id] {
			r.Missing = append(r.Missing, id)
		}
		if m != nil && seen[id] && !m.Lists(id) {
			r.Unlisted = append(r.Unlisted, id)
		}
	}
	slices.Sort(r.Unknown)
	return r, nil
}

// ValidationOptions selects the checks ValidateSnapshot runs.
type ValidationOptions struct {
	// RequireManifest rejects bundles without a parseable manifest.json.
	RequireManifest bool

	// RequireAllArticles rejects bundles whose articles/ does not match the registry exactly.
	RequireAllArticles bool

	// RequireIndex rejects bundles without a non-empty index.html.
	RequireIndex bool
}

func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{RequireManifest: true, RequireAllArticles: true}
}

// ValidateSnapshot decides whether snap may replace the active content.
func ValidateSnapshot(snap *Snapshot, opts ValidationOptions) error {
	if snap == nil {
		return xerrors.New("validate: snapshot is nil")
	}
	if snap.FS == nil {
		return xerrors.New("validate: snapshot has nil filesystem")
	}
	if snap.ManifestErr != nil {
		return xerrors.Wrap(snap.ManifestErr, "validate")
	}
	if opts.RequireIndex {
		if err := checkNonEmpty(snap.FS, "index.html"); err != nil {
			return err
		}
	}
	if opts.RequireManifest && snap.Manifest == nil {
		if _, err := LoadManifest(snap.FS); err != nil {
			return xerrors.Wrap(err, "validate")
		}
		return xerrors.Newf("validate: %s not attached to snapshot", ManifestFile)
	}
	if opts.RequireAllArticles {
		r, err := CheckArticles(snap.FS, snap.Manifest)
		if err != nil {
			return xerrors.Wrap(err, "validate")
		}
		if err := r.Err(); err != nil {
			return xerrors.Wrap(err, "validate")
		}
	}
	return nil
}

func checkNonEmpty(fsys fs.FS, name string) error {
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return xerrors.Wrapf(err, "validate: %s not found", name)
	}
	if info.Size() == 0 {
		return xerrors.Newf("validate: %s is empty", name)
	}
	return nil
}
