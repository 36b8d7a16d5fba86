// Package pathutil holds the path checks shared by bundle extraction and
// static file serving.
package pathutil

import (
	"errors"
	"path"
	"strconv"
	"strings"
)

// ErrUnsafePath is wrapped by every ArchiveName rejection.
var ErrUnsafePath = errors.New("unsafe path")

// HasDotSegments reports whether any slash-separated segment is "." or "..".
func HasDotSegments(p string) bool {
	for seg := range strings.SplitSeq(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

// SafeURLPath reports whether an absolute request path maps onto exactly one
// bundle file: no NUL, no backslash, no dot segments and no empty segments.
func SafeURLPath(p string) bool {
	if !strings.HasPrefix(p, "/") {
		return false
	}
	return !strings.ContainsAny(p, "\x00\\") &&
		!strings.Contains(p, "//") &&
		!HasDotSegments(p)
}

// ArchiveName normalizes a tar entry name to a slash path relative to the
// bundle root. The root itself ("", ".", "./") yields "".
func ArchiveName(name string) (string, error) {
	name = strings.TrimPrefix(name, "./")
	if name == "" || name == "." {
		return "", nil
	}
	if path.IsAbs(name) || strings.ContainsAny(name, "\x00\\") {
		return "", &PathError{Name: name, Reason: "illegal path"}
	}
	// check before Clean, which would fold "a/../b" into "b"
	if HasDotSegments(strings.TrimSuffix(name, "/")) {
		return "", &PathError{Name: name, Reason: "path traversal"}
	}
	return path.Clean(name), nil
}

// PathError names the offending entry.
type PathError struct {
	Name   string
	Reason string
}

func (e *PathError) Error() string { return e.Reason + " in archive: " + strconv.Quote(e.Name) }
func (e *PathError) Unwrap() error { return ErrUnsafePath }
