// Package capabilities loads the section capability map from YAML.
//
// File format:
//
//	admin_role: admin
//	sections: [dashboard, reparaciones, historial, clientes, whatsapp, pedidos, configuracion]
//	employees:
//	  "Ana Silva": [dashboard, reparaciones, clientes]
//
// Omitted admin_role and sections fall back to the built-in defaults.
package capabilities

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fixlytaller/fixly-session/internal/core/domain"
)

type file struct {
	AdminRole string              `yaml:"admin_role"`
	Sections  []string            `yaml:"sections"`
	Employees map[string][]string `yaml:"employees"`
}

// Load reads path. An empty path or a missing file yields the built-in map.
func Load(path string) (*domain.CapabilityMap, error) {
	if path == "" {
		return domain.DefaultCapabilityMap(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.DefaultCapabilityMap(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading capability map: %w", err)
	}
	return Parse(data)
}

// Parse decodes a capability map document. Unknown fields are rejected, and
// every employee section must belong to the section universe.
func Parse(data []byte) (*domain.CapabilityMap, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing capability map: %w", err)
	}

	all := domain.AllSections
	if len(f.Sections) > 0 {
		all = toSections(f.Sections)
	}
	known := make(map[domain.Section]bool, len(all))
	for _, s := range all {
		known[s] = true
	}

	entries := make(map[string][]domain.Section, len(f.Employees))
	for name, sections := range f.Employees {
		for _, s := range sections {
			if !known[domain.Section(s)] {
				return nil, fmt.Errorf("capability map: %q grants unknown section %q", name, s)
			}
		}
		entries[name] = toSections(sections)
	}

	return domain.NewCapabilityMap(f.AdminRole, all, entries), nil
}

func toSections(in []string) []domain.Section {
	out := make([]domain.Section, len(in))
	for i, s := range in {
		out[i] = domain.Section(s)
	}
	return out
}
