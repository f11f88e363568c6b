package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// parsers maps a file extension to its decoder. Both YAML spellings are
// accepted; JSON is supported because serialized plans and the tooling
// around them already speak it.
var parsers = map[string]func([]byte) (Config, error){
	".yaml": FromYAML,
	".yml":  FromYAML,
	".json": FromJSON,
}

// FromFile loads compiler options from a file, choosing the decoder by
// extension (case-insensitive).
func FromFile(path string) (Config, error) {
	parse, ok := parsers[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return Config{}, fmt.Errorf("config: no decoder for file %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return parse(data)
}

// FromYAML decodes a YAML document into a Config. An empty or null
// document yields an empty config.
func FromYAML(data []byte) (Config, error) {
	m := map[string]any{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("config: decode yaml: %w", err)
	}
	return New(m), nil
}

// FromJSON decodes a JSON object into a Config.
func FromJSON(data []byte) (Config, error) {
	m := map[string]any{}
	if err := json.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("config: decode json: %w", err)
	}
	return New(m), nil
}
