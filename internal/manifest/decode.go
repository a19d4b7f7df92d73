package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Decode parses a manifest. Files ending in .yaml or .yml are read as YAML,
// everything else as JSON. A null document decodes to an empty list.
func Decode(name string, b []byte) ([]Category, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return decodeYAML(b)
	default:
		return decodeJSON(b)
	}
}

func decodeJSON(b []byte) ([]Category, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	var cats []Category
	if err := dec.Decode(&cats); err != nil {
		return nil, err
	}
	// Ensure there is no trailing non-whitespace content.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("unexpected trailing JSON content")
		}
		return nil, fmt.Errorf("unexpected trailing JSON content: %w", err)
	}
	if cats == nil {
		cats = []Category{}
	}
	return cats, nil
}

func decodeYAML(b []byte) ([]Category, error) {
	var cats []Category
	if err := yaml.Unmarshal(b, &cats); err != nil {
		return nil, err
	}
	if cats == nil {
		cats = []Category{}
	}
	return cats, nil
}
