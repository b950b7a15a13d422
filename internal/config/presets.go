package config

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/ginjaninja78/ledger-reconciler/pkg/errors"
)

//go:embed presets/*.yaml
var presetFS embed.FS

// PresetNames returns the names of the built-in schemas, sorted.
func PresetNames() []string {
	entries, err := presetFS.ReadDir("presets")
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, strings.TrimSuffix(entry.Name(), path.Ext(entry.Name())))
	}
	sort.Strings(names)
	return names
}

// Preset returns the raw bytes of a built-in schema.
func Preset(name string) ([]byte, error) {
	data, err := presetFS.ReadFile(path.Join("presets", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("preset %q (available: %s): %w",
			name, strings.Join(PresetNames(), ", "), errors.ErrNotFound)
	}
	return data, nil
}

// LoadPreset parses a built-in schema.
func LoadPreset(name string) (*Schema, error) {
	data, err := Preset(name)
	if err != nil {
		return nil, err
	}
	return ParseSchema(data)
}
