package generator

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Artifact is one generated file with its content hash.
type Artifact struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	SHA256  string `json:"sha256"`
	Size    int    `json:"size"`
	Content []byte `json:"-"`
}

// Result is the outcome of one generation. Artifacts are sorted by path.
type Result struct {
	Module     string     `json:"module"`
	SpecHash   string     `json:"spec_hash"`   // fingerprint of the resolved spec
	ConfigHash string     `json:"config_hash"`
	Generator  string     `json:"generator"`
	Handlers   int        `json:"handlers"`
	NextKey    int        `json:"next_key"`
	Artifacts  []Artifact `json:"artifacts"`
}

// Artifact returns the artifact at path.
func (r *Result) Artifact(path string) (*Artifact, bool) {
	for i := range r.Artifacts {
		if r.Artifacts[i].Path == path {
			return &r.Artifacts[i], true
		}
	}
	return nil, false
}

// Hashes maps each artifact path to its hash.
func (r *Result) Hashes() map[string]string {
	out := make(map[string]string, len(r.Artifacts))
	for _, a := range r.Artifacts {
		out[a.Path] = a.SHA256
	}
	return out
}

// Equal reports whether two results produced the same artifacts.
func (r *Result) Equal(other *Result) bool {
	if len(r.Artifacts) != len(other.Artifacts) {
		return false
	}
	for i := range r.Artifacts {
		a, b := r.Artifacts[i], other.Artifacts[i]
		if a.Path != b.Path || a.SHA256 != b.SHA256 {
			return false
		}
	}
	return true
}

// WriteDir writes every artifact under dir, creating it if needed. Each
// file is written to a temporary name and renamed into place.
func (r *Result) WriteDir(dir string, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &GenError{Code: ErrCodeWrite, Entity: dir, Message: err.Error(), Err: err}
	}
	for _, a := range r.Artifacts {
		path := filepath.Join(dir, a.Path)
		if err := writeFile(path, a.Content); err != nil {
			return &GenError{Code: ErrCodeWrite, Entity: a.Path, Message: err.Error(), Err: err}
		}
		log.Info("artifact written", "path", path, "size", a.Size)
	}
	return nil
}

func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
