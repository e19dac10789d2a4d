package store

import "errors"

// ErrRunNotFound is returned when no run matches a lookup.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded generation.
type Run struct {
	ID         string `json:"id"`
	Seq        int64  `json:"seq"`
	Module     string `json:"module"`
	SpecHash   string `json:"spec_hash"`
	ConfigHash string `json:"config_hash"`
	Config     string `json:"config"` // canonical JSON
	Generator  string `json:"generator"`
	IRVersion  string `json:"ir_version"`
	Handlers   int    `json:"handlers"`
	NextKey    int    `json:"next_key"`

	Artifacts []ArtifactRecord `json:"artifacts"`
}

// ArtifactRecord is the logged form of one artifact. Content is not stored.
type ArtifactRecord struct {
	Path   string `json:"path"`
	Kind   string `json:"kind"`
	SHA256 string `json:"sha256"`
	Size   int    `json:"size"`
}

// Hashes maps each artifact path to its hash.
func (r Run) Hashes() map[string]string {
	out := make(map[string]string, len(r.Artifacts))
	for _, a := range r.Artifacts {
		out[a.Path] = a.SHA256
	}
	return out
}
