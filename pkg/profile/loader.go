package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads, validates and normalizes a profiles file.
//
// The format is chosen by extension (.yaml/.yml or .json). Other extensions
// are tried as YAML first, then JSON.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("profiles file not found: %s", path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("permission denied reading profiles file: %s", path)
		}
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}
	return LoadFromBytes(data, path)
}

// LoadFromReader reads a profiles file from r. path is used for format
// detection and messages only.
func LoadFromReader(r io.Reader, path string) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}
	return LoadFromBytes(data, path)
}

// LoadFromBytes validates raw data against the schema, decodes it and
// applies defaults.
func LoadFromBytes(data []byte, path string) (*File, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errors.New("profiles file is empty")
	}

	jsonData, err := toJSON(data, path)
	if err != nil {
		return nil, err
	}
	if err := ValidateRaw(jsonData); err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(jsonData, &f); err != nil {
		return nil, fmt.Errorf("invalid profiles: %w", err)
	}
	f.ApplyDefaults()
	if err := f.check(); err != nil {
		return nil, err
	}
	return &f, nil
}

func toJSON(data []byte, path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		var raw any
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid JSON in profiles file: %w", err)
		}
		return data, nil
	case ".yaml", ".yml":
		return yamlToJSON(data)
	default:
		jsonData, err := yamlToJSON(data)
		if err == nil {
			return jsonData, nil
		}
		var raw any
		if jsonErr := json.Unmarshal(data, &raw); jsonErr == nil {
			return data, nil
		}
		return nil, fmt.Errorf("failed to parse profiles file (tried YAML and JSON): %w", err)
	}
}

func yamlToJSON(data []byte) ([]byte, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid YAML in profiles file: %w", err)
	}
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to convert profiles file to JSON: %w", err)
	}
	return jsonData, nil
}
