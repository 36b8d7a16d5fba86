package render

import (
	"bytes"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/keithlinneman/viteguide-web/internal/xerrors"
)

// FrontMatter is the optional header of an article, YAML between "---"
// fences or TOML between "+++" fences.
type FrontMatter struct {
	Title       string   `yaml:"title" toml:"title"`
	Description string   `yaml:"description" toml:"description"`
	Order       int      `yaml:"order" toml:"order"`
	Draft       bool     `yaml:"draft" toml:"draft"`
	Tags        []string `yaml:"tags" toml:"tags"`
}

var (
	yamlFence = []byte("---")
	tomlFence = []byte("+++")
)

// SplitFrontMatter separates the front matter from the markdown body.
// A document without an opening fence on its first line has no front matter.
func SplitFrontMatter(src []byte) (FrontMatter, []byte, error) {
	var fm FrontMatter
	src = bytes.TrimPrefix(src, []byte("\ufeff"))

	var fence []byte
	switch {
	case hasFenceLine(src, yamlFence):
		fence = yamlFence
	case hasFenceLine(src, tomlFence):
		fence = tomlFence
	default:
		return fm, src, nil
	}

	rest := src[bytes.IndexByte(src, '\n')+1:]
	header, body, ok := cutAtFence(rest, fence)
	if !ok {
		return fm, nil, xerrors.Newf("front matter opened with %q is never closed", fence)
	}

	var err error
	if bytes.Equal(fence, yamlFence) {
		err = yaml.Unmarshal(header, &fm)
	} else {
		err = toml.Unmarshal(header, &fm)
	}
	if err != nil {
		return fm, nil, xerrors.Wrap(err, "decode front matter")
	}
	return fm, body, nil
}

// hasFenceLine reports whether src starts with fence alone on its line.
func hasFenceLine(src, fence []byte) bool {
	line, _, found := bytes.Cut(src, []byte("\n"))
	return found && bytes.Equal(bytes.TrimRight(line, " \t\r"), fence)
}

// cutAtFence splits src at the first line equal to fence.
func cutAtFence(src, fence []byte) (before, after []byte, ok bool) {
	for off := 0; off <= len(src); {
		end := bytes.IndexByte(src[off:], '\n')
		var line []byte
		next := len(src)
		if end < 0 {
			line = src[off:]
		} else {
			line = src[off : off+end]
			next = off + end + 1
		}
		if bytes.Equal(bytes.TrimRight(line, " \t\r"), fence) {
			return src[:off], src[next:], true
		}
		if end < 0 {
			break
		}
		off = next
	}
	return nil, nil, false
}
