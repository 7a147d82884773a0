package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a tuning document from disk, layering it over the defaults.
// Fields the document omits keep their default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read tuning config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML tuning document.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse tuning config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate tuning config: %w", err)
	}
	return cfg, nil
}
