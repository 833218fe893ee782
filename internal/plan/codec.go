package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format identifies a plan serialization.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "yaml", "yml", "":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	case "toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported plan format %q, must be: yaml, json, or toml", s)
	}
}

// FormatForPath picks the format from a file extension.
func FormatForPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Encode serializes the plan.
func Encode(p Plan, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(p)
	case FormatJSON:
		return json.MarshalIndent(p, "", "  ")
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(p); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported plan format %q", format)
	}
}

// Decode parses and validates a plan.
func Decode(data []byte, format Format) (Plan, error) {
	var p Plan
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &p)
	case FormatJSON:
		err = json.Unmarshal(data, &p)
	case FormatTOML:
		err = toml.Unmarshal(data, &p)
	default:
		return Plan{}, fmt.Errorf("unsupported plan format %q", format)
	}
	if err != nil {
		return Plan{}, fmt.Errorf("parsing %s plan: %w", format, err)
	}
	if err := p.Validate(); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// Load reads a plan file, choosing the codec by extension.
func Load(path string) (Plan, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return Plan{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("reading plan file: %w", err)
	}
	return Decode(data, format)
}

// Save validates and writes a plan file, creating parent directories if needed.
func Save(path string, p Plan) error {
	if err := p.Validate(); err != nil {
		return err
	}
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}
	data, err := Encode(p, format)
	if err != nil {
		return fmt.Errorf("encoding plan: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating plan dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing plan file: %w", err)
	}
	return nil
}
