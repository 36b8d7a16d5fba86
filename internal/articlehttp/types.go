package articlehttp

import (
	"time"

	"github.com/keithlinneman/viteguide-web/internal/article"
	"github.com/keithlinneman/viteguide-web/internal/content"
	"github.com/keithlinneman/viteguide-web/internal/render"
)

// ArticleRef is one registry entry.
type ArticleRef struct {
	ID    article.ID `json:"id"`
	Title string     `json:"title"`
	URL   string     `json:"url"`
}

// ListResponse is the full registry, independent of loaded content.
type ListResponse struct {
	Articles []ArticleRef `json:"articles"`
	Count    int          `json:"count"`
}

// ArticleResponse describes one article and whether the active bundle ships it.
type ArticleResponse struct {
	ArticleRef
	Available   bool             `json:"available"`
	Description string           `json:"description,omitempty"`
	Order       int              `json:"order,omitempty"`
	Draft       bool             `json:"draft,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
	Headings    []render.Heading `json:"headings,omitempty"`
	// Source is the markdown URL, set when Available.
	Source string `json:"source,omitempty"`
}

// ContentResponse summarises the active bundle.
type ContentResponse struct {
	Version       string         `json:"version"`
	Hash          string         `json:"hash,omitempty"`
	HashAlgorithm string         `json:"hash_algorithm,omitempty"`
	Commit        string         `json:"commit,omitempty"`
	BuiltAt       *time.Time     `json:"built_at,omitempty"`
	Source        content.Source `json:"source"`
	Signed        bool           `json:"signed"`
	LoadedAt      time.Time      `json:"loaded_at"`
	VerifiedAt    time.Time      `json:"verified_at"`
	ServerTime    time.Time      `json:"server_time"`
	ArticleCount  int            `json:"article_count"`
	RegistryCount int            `json:"registry_count"`
}

type errorResponse struct {
	Error string `json:"error"`
}
