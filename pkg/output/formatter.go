// Package output renders command results as JSON, YAML or TOML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is an output format name
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ParseFormat validates a format name
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case FormatJSON, FormatYAML, FormatTOML:
		return Format(name), nil
	case "":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported format: %s", name)
}

// Formatter writes values in one format. Values are rendered through their
// JSON field names in every format, so yaml and toml output match the API.
type Formatter struct {
	format Format
}

// NewFormatter creates a Formatter for format
func NewFormatter(format Format) *Formatter {
	return &Formatter{format: format}
}

// Format writes v to writer
func (f *Formatter) Format(v interface{}, writer io.Writer) error {
	switch f.format {
	case FormatYAML:
		return f.FormatYAML(v, writer)
	case FormatTOML:
		return f.FormatTOML(v, writer)
	case FormatJSON, "":
		return f.FormatJSON(v, writer)
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

// FormatJSON formats as indented JSON
func (f *Formatter) FormatJSON(v interface{}, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to format as JSON: %w", err)
	}
	return nil
}

// FormatYAML formats as YAML
func (f *Formatter) FormatYAML(v interface{}, writer io.Writer) error {
	generic, err := normalize(v)
	if err != nil {
		return err
	}

	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)

	if err := encoder.Encode(generic); err != nil {
		return fmt.Errorf("failed to format as YAML: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to close YAML encoder: %w", err)
	}
	return nil
}

// FormatTOML formats as TOML. TOML documents are tables, so a list is
// written under an "items" key.
func (f *Formatter) FormatTOML(v interface{}, writer io.Writer) error {
	generic, err := normalize(v)
	if err != nil {
		return err
	}
	if _, ok := generic.(map[string]interface{}); !ok {
		generic = map[string]interface{}{"items": generic}
	}

	if err := toml.NewEncoder(writer).Encode(generic); err != nil {
		return fmt.Errorf("failed to format as TOML: %w", err)
	}
	return nil
}

// normalize converts v into maps, slices and scalars keyed by JSON names
func normalize(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}

	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}
	return integers(generic), nil
}

// integers turns whole float64 values back into int64 so they print without a fraction
func integers(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, item := range t {
			t[k] = integers(item)
		}
		return t
	case []interface{}:
		for i, item := range t {
			t[i] = integers(item)
		}
		return t
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return int64(t)
		}
		return t
	}
	return v
}
