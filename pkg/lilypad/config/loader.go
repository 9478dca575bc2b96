package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FromFile loads a Definition, choosing the format by extension:
// .yaml, .yml or .json. The result is not validated.
func FromFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return nil, fmt.Errorf("unsupported definition file extension: %s", ext)
	}
}

// FromYAML parses a YAML Definition.
func FromYAML(data []byte) (*Definition, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return fromMap(m)
}

// FromJSON parses a JSON Definition.
func FromJSON(data []byte) (*Definition, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return fromMap(m)
}

func fromMap(m map[string]any) (*Definition, error) {
	def := &Definition{}
	if m == nil {
		return def, nil
	}
	if err := decode(m, def); err != nil {
		return nil, fmt.Errorf("decode definition: %w", err)
	}
	return def, nil
}
