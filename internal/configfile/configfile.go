// Package configfile decodes the YAML/JSON side files that list destinations
// and notifiers.
package configfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type decoder struct {
	name string
	ext  string
	fn   func([]byte, any) error
}

var decoders = []decoder{
	{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
	{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
	{name: "json", ext: ".json", fn: json.Unmarshal},
}

// Decode reads path, expands ${VAR} references from the environment and
// decodes the result into out. The file extension picks the decoder; a file
// without a known extension is tried as YAML, then JSON.
func Decode(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("config file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	expanded := []byte(os.ExpandEnv(string(raw)))

	ext := strings.ToLower(filepath.Ext(path))
	known := false
	for _, d := range decoders {
		if ext == d.ext {
			known = true
			break
		}
	}

	var lastErr error
	for _, d := range decoders {
		if known && ext != d.ext {
			continue
		}
		if err := d.fn(expanded, out); err != nil {
			lastErr = fmt.Errorf("decode %s as %s: %w", filepath.Base(path), d.name, err)
			continue
		}
		return nil
	}
	return fmt.Errorf("format not recognized (expected YAML or JSON): %w", lastErr)
}
