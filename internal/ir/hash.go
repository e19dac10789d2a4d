package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix allows the
// algorithm to change without colliding with old hashes.
const (
	DomainSpec     = "bindgen/spec/v1"
	DomainArtifact = "bindgen/artifact/v1"
	DomainConfig   = "bindgen/config/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint is the content hash of a spec's canonical JSON form. Two
// specs with the same fingerprint generate the same artifacts under the
// same configuration.
func Fingerprint(spec *Spec) (string, error) {
	canonical, err := MarshalCanonical(spec)
	if err != nil {
		return "", fmt.Errorf("Fingerprint: %w", err)
	}
	return hashWithDomain(DomainSpec, canonical), nil
}

// ConfigHash hashes any json-taggable configuration value.
func ConfigHash(cfg any) (string, error) {
	canonical, err := MarshalCanonical(cfg)
	if err != nil {
		return "", fmt.Errorf("ConfigHash: %w", err)
	}
	return hashWithDomain(DomainConfig, canonical), nil
}

// ArtifactHash hashes generated file contents together with the path.
func ArtifactHash(path string, content []byte) string {
	data := make([]byte, 0, len(path)+1+len(content))
	data = append(data, path...)
	data = append(data, 0x00)
	data = append(data, content...)
	return hashWithDomain(DomainArtifact, data)
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests.
func MustFingerprint(spec *Spec) string {
	h, err := Fingerprint(spec)
	if err != nil {
		panic(err)
	}
	return h
}
