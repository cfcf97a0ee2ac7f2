package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mechanica/engine/internal/settings"
)

// mechanicEntry mirrors one catalog entry in the engine's YAML format.
type mechanicEntry struct {
	Name              string         `yaml:"name"`
	Impl              string         `yaml:"impl"`
	Category          string         `yaml:"category"`
	Properties        map[string]any `yaml:"properties"`
	Overrides         map[string]any `yaml:"overrides"`
	MechanicOverrides map[string]any `yaml:"mechanic_overrides"`
	IncompatibleWith  []string       `yaml:"incompatible_with"`
}

type mechanicListFile struct {
	Mechanics []mechanicEntry `yaml:"mechanics"`
}

// LoadFile loads a YAML catalog file.
func LoadFile(path string) (*Catalog, error) {
	descriptors, err := LoadDescriptors(path)
	if err != nil {
		return nil, err
	}
	return New(descriptors), nil
}

// LoadDescriptors parses a YAML catalog file into descriptors, for initial
// load and for in-place reload.
func LoadDescriptors(path string) ([]Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mechanic_list: %w", err)
	}
	var f mechanicListFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse mechanic_list: %w", err)
	}

	descriptors := make([]Descriptor, 0, len(f.Mechanics))
	for _, e := range f.Mechanics {
		if e.Name == "" {
			return nil, fmt.Errorf("mechanic entry with empty name")
		}
		d := Descriptor{
			Name:             e.Name,
			ImplementationID: e.Impl,
			Category:         e.Category,
			IncompatibleWith: e.IncompatibleWith,
		}
		if d.Properties, err = toValues(e.Name, "properties", e.Properties); err != nil {
			return nil, err
		}
		if d.Overrides, err = toValues(e.Name, "overrides", e.Overrides); err != nil {
			return nil, err
		}
		if d.ModifierOverrides, err = toValues(e.Name, "mechanic_overrides", e.MechanicOverrides); err != nil {
			return nil, err
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}

func toValues(name, array string, raw map[string]any) (map[string]settings.Value, error) {
	out := make(map[string]settings.Value, len(raw))
	for k, v := range raw {
		val, ok := settings.FromAny(v)
		if !ok {
			return nil, fmt.Errorf("mechanic %s: %s key %q has unsupported value type %T", name, array, k, v)
		}
		out[k] = val
	}
	return out, nil
}
