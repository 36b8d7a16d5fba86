package content

import "time"

// Source records where the active snapshot came from.
type Source string

const (
	SourceUnknown Source = "unknown"
	SourceSeed    Source = "seed"
	SourceS3      Source = "s3"
	SourceFile    Source = "file"
)

// Meta describes how a bundle was obtained and verified.
type Meta struct {
	Version       string    `json:"version,omitempty"`
	Hash          string    `json:"hash,omitempty"`
	HashAlgorithm string    `json:"hash_algorithm,omitempty"`
	VerifiedAt    time.Time `json:"verified_at,omitempty"`
	Source        Source    `json:"source,omitempty"`
	Signed        bool      `json:"signed"`
	SigningKey    string    `json:"signing_key,omitempty"`
}
