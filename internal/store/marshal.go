package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/bindgen/internal/config"
	"github.com/roach88/bindgen/internal/ir"
)

// marshalConfig converts a configuration to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON so equal configurations store equal text.
func marshalConfig(cfg config.Config) (string, error) {
	data, err := ir.MarshalCanonical(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(data), nil
}

// unmarshalConfig parses stored configuration TEXT. The output directory is
// not part of the stored form and comes back empty.
func unmarshalConfig(data string) (config.Config, error) {
	var cfg config.Config
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return config.Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
