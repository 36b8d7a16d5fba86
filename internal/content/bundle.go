package content

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"os"
	"testing/fstest"
	"time"

	"github.com/keithlinneman/viteguide-web/internal/cryptoutil"
	"github.com/keithlinneman/viteguide-web/internal/pathutil"
	"github.com/keithlinneman/viteguide-web/internal/xerrors"
)

const (
	maxBundleSize   int64 = 50 << 20
	maxSingleFile   int64 = 4 << 20
	maxTotalExtract int64 = 100 << 20
)

// readWithHash reads at most maxSize bytes from r and returns them with their hex SHA-256.
func readWithHash(r io.Reader, maxSize int64) ([]byte, string, error) {
	h := sha256.New()
	data, err := io.ReadAll(io.TeeReader(io.LimitReader(r, maxSize+1), h))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > maxSize {
		return nil, "", xerrors.Newf("bundle exceeds max size of %d bytes", maxSize)
	}
	return data, hex.EncodeToString(h.Sum(nil)), nil
}

// extractTarGzToMem expands a gzipped tarball into a MapFS.
// Only regular files and directories are accepted.
func extractTarGzToMem(data []byte) (fs.FS, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, xerrors.Wrap(err, "open gzip")
	}
	defer gr.Close()

	mfs := make(fstest.MapFS)
	tr := tar.NewReader(gr)
	var total int64

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, xerrors.Wrap(err, "read tar header")
		}

		name, err := pathutil.ArchiveName(hdr.Name)
		if err != nil {
			return nil, err
		}
		if name == "" {
			continue
		}

		switch hdr.Typeflag {
		case tar.TypeDir, tar.TypeXGlobalHeader:
			continue
		case tar.TypeReg:
		default:
			return nil, xerrors.Newf("unsupported entry type %q for %s", hdr.Typeflag, name)
		}

		if hdr.Size > maxSingleFile {
			return nil, xerrors.Newf("%s exceeds max file size (%d > %d)", name, hdr.Size, maxSingleFile)
		}
		body, err := io.ReadAll(io.LimitReader(tr, maxSingleFile+1))
		if err != nil {
			return nil, xerrors.Wrapf(err, "read %s", name)
		}
		if int64(len(body)) > maxSingleFile {
			return nil, xerrors.Newf("%s exceeds max file size after read", name)
		}
		if total += int64(len(body)); total > maxTotalExtract {
			return nil, xerrors.Newf("extracted size exceeds %d bytes", maxTotalExtract)
		}
		if _, dup := mfs[name]; dup {
			return nil, xerrors.Newf("duplicate entry in archive: %s", name)
		}

		mfs[name] = &fstest.MapFile{
			Data:    body,
			Mode:    hdr.FileInfo().Mode().Perm(),
			ModTime: hdr.ModTime,
		}
	}
	return mfs, nil
}

// OpenBundle extracts an in-memory bundle and loads its manifest if present.
// hash is filled in from the data.
func OpenBundle(data []byte, src Source) (*Snapshot, error) {
	if int64(len(data)) > maxBundleSize {
		return nil, xerrors.Newf("bundle exceeds max size of %d bytes", maxBundleSize)
	}
	fsys, err := extractTarGzToMem(data)
	if err != nil {
		return nil, xerrors.Wrap(err, "extract bundle")
	}
	return newSnapshot(fsys, cryptoutil.SHA256Hex(data), src), nil
}

// OpenBundleFile reads a .tar.gz from disk. Used by the articlecheck CLI.
func OpenBundleFile(name string) (*Snapshot, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, xerrors.Wrapf(err, "open %s", name)
	}
	defer f.Close()

	data, _, err := readWithHash(f, maxBundleSize)
	if err != nil {
		return nil, xerrors.Wrapf(err, "read %s", name)
	}
	return OpenBundle(data, SourceFile)
}

// OpenDir wraps an unpacked bundle directory.
func OpenDir(dir string) (*Snapshot, error) {
	st, err := os.Stat(dir)
	if err != nil {
		return nil, xerrors.Wrapf(err, "stat %s", dir)
	}
	if !st.IsDir() {
		return nil, xerrors.Newf("%s is not a directory", dir)
	}
	return newSnapshot(os.DirFS(dir), "", SourceFile), nil
}

// OpenFS wraps an already materialised bundle such as the embedded seed.
// hash may be empty, which disables digest-keyed caching downstream.
func OpenFS(fsys fs.FS, hash string, src Source) (*Snapshot, error) {
	if fsys == nil {
		return nil, xerrors.New("open bundle: nil filesystem")
	}
	return newSnapshot(fsys, hash, src), nil
}

// newSnapshot attaches the manifest when one parses. A missing manifest
// leaves both Manifest and ManifestErr nil; a bad one sets ManifestErr.
// ValidateSnapshot reports either.
func newSnapshot(fsys fs.FS, hash string, src Source) *Snapshot {
	snap := &Snapshot{
		FS: fsys,
		Meta: Meta{
			Hash:          hash,
			HashAlgorithm: "sha256",
			Source:        src,
			VerifiedAt:    time.Now().UTC(),
		},
	}
	if hash == "" {
		snap.Meta.HashAlgorithm = ""
	}
	m, err := LoadManifest(fsys)
	switch {
	case err == nil:
		snap.Manifest = m
		snap.Meta.Version = m.Version
	case !errors.Is(err, fs.ErrNotExist):
		snap.ManifestErr = err
	}
	return snap
}
