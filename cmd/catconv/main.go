// catconv converts an external JSON mechanic list into the engine's YAML
// catalog format.
//
// Usage:
//
//	go run ./cmd/catconv -in mechanic_list.json -out data/yaml/mechanic_list.yaml
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// External JSON input schema
// ---------------------------------------------------------------------------

type kvJSON struct {
	Key   string `json:"Key"`
	Value any    `json:"Value"`
}

type mechanicJSON struct {
	MechanicName      string   `json:"MechanicName"`
	MechanicPath      string   `json:"MechanicPath"`
	Category          string   `json:"Category"`
	Properties        []kvJSON `json:"Properties"`
	Overrides         []kvJSON `json:"Overrides"`
	MechanicOverrides []kvJSON `json:"MechanicOverrides"`
	IncompatibleWith  []string `json:"IncompatibleWith"`
}

// ---------------------------------------------------------------------------
// YAML output structs
// ---------------------------------------------------------------------------

type mechanicListYAML struct {
	Mechanics []mechanicEntryYAML `yaml:"mechanics"`
}

type mechanicEntryYAML struct {
	Name              string         `yaml:"name"`
	Impl              string         `yaml:"impl"`
	Category          string         `yaml:"category,omitempty"`
	Properties        map[string]any `yaml:"properties,omitempty"`
	Overrides         map[string]any `yaml:"overrides,omitempty"`
	MechanicOverrides map[string]any `yaml:"mechanic_overrides,omitempty"`
	IncompatibleWith  []string       `yaml:"incompatible_with,omitempty"`
}

func main() {
	inPath := flag.String("in", "mechanic_list.json", "input JSON mechanic list")
	outPath := flag.String("out", "data/yaml/mechanic_list.yaml", "output YAML catalog")
	flag.Parse()

	if err := convert(*inPath, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "catconv: %v\n", err)
		os.Exit(1)
	}
}

func convert(inPath, outPath string) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", inPath, err)
	}

	var mechanics []mechanicJSON
	if err := json.Unmarshal(data, &mechanics); err != nil {
		return fmt.Errorf("parse %s: %w", inPath, err)
	}

	out := mechanicListYAML{Mechanics: make([]mechanicEntryYAML, 0, len(mechanics))}
	seen := make(map[string]struct{}, len(mechanics))
	for _, m := range mechanics {
		if m.MechanicName == "" {
			return fmt.Errorf("entry with empty MechanicName")
		}
		if _, dup := seen[m.MechanicName]; dup {
			return fmt.Errorf("duplicate MechanicName %q", m.MechanicName)
		}
		seen[m.MechanicName] = struct{}{}

		out.Mechanics = append(out.Mechanics, mechanicEntryYAML{
			Name:              m.MechanicName,
			Impl:              m.MechanicPath,
			Category:          m.Category,
			Properties:        kvToMap(m.Properties),
			Overrides:         kvToMap(m.Overrides),
			MechanicOverrides: kvToMap(m.MechanicOverrides),
			IncompatibleWith:  m.IncompatibleWith,
		})
	}

	yamlData, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(outPath, yamlData, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	fmt.Printf("wrote %d mechanics to %s\n", len(out.Mechanics), outPath)
	return nil
}

// kvToMap flattens the external Key/Value pair array. Later duplicates of a
// key overwrite earlier ones, matching catalog merge semantics.
func kvToMap(pairs []kvJSON) map[string]any {
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		out[p.Key] = p.Value
	}
	return out
}
