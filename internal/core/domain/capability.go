package domain

import "sort"

// Section identifies a UI section a principal may open.
type Section string

const (
	SectionDashboard     Section = "dashboard"
	SectionReparaciones  Section = "reparaciones"
	SectionHistorial     Section = "historial"
	SectionClientes      Section = "clientes"
	SectionWhatsapp      Section = "whatsapp"
	SectionPedidos       Section = "pedidos"
	SectionConfiguracion Section = "configuracion"
)

// AllSections lists every section in menu order.
var AllSections = []Section{
	SectionDashboard,
	SectionReparaciones,
	SectionHistorial,
	SectionClientes,
	SectionWhatsapp,
	SectionPedidos,
	SectionConfiguracion,
}

// Action is a UI-declared control bound to the section it opens.
type Action struct {
	ID      string
	Section Section
}

// CapabilityMap maps a principal display name (or role) to its allowed sections.
// It is read-only after construction.
type CapabilityMap struct {
	adminRole string
	all       []Section
	entries   map[string]map[Section]struct{}
	ordered   map[string][]Section
}

// NewCapabilityMap builds a lookup table from entries. An empty adminRole
// defaults to RoleAdmin and a nil all defaults to AllSections.
func NewCapabilityMap(adminRole string, all []Section, entries map[string][]Section) *CapabilityMap {
	if adminRole == "" {
		adminRole = RoleAdmin
	}
	if all == nil {
		all = AllSections
	}

	m := &CapabilityMap{
		adminRole: adminRole,
		all:       append([]Section(nil), all...),
		entries:   make(map[string]map[Section]struct{}, len(entries)),
		ordered:   make(map[string][]Section, len(entries)),
	}
	for name, sections := range entries {
		set := make(map[Section]struct{}, len(sections))
		list := make([]Section, 0, len(sections))
		for _, s := range sections {
			if _, dup := set[s]; dup {
				continue
			}
			set[s] = struct{}{}
			list = append(list, s)
		}
		m.entries[name] = set
		m.ordered[name] = list
	}
	return m
}

// DefaultCapabilityMap returns the built-in employee map.
func DefaultCapabilityMap() *CapabilityMap {
	return NewCapabilityMap(RoleAdmin, AllSections, map[string][]Section{
		"Juan Pérez":   {SectionDashboard, SectionReparaciones, SectionHistorial},
		"Ana Silva":    {SectionDashboard, SectionReparaciones, SectionClientes},
		"Carlos López": {SectionDashboard, SectionReparaciones, SectionHistorial, SectionPedidos},
		"María García": {SectionDashboard, SectionWhatsapp, SectionClientes},
	})
}

// AdminRole returns the role granted the universal set.
func (m *CapabilityMap) AdminRole() string { return m.adminRole }

// All returns a copy of the universal section set.
func (m *CapabilityMap) All() []Section {
	return append([]Section(nil), m.all...)
}

// Lookup returns the sections configured for key and whether key is present.
func (m *CapabilityMap) Lookup(key string) ([]Section, bool) {
	list, ok := m.ordered[key]
	if !ok {
		return nil, false
	}
	return append([]Section(nil), list...), true
}

// Has reports whether key is present and grants section.
func (m *CapabilityMap) Has(key string, section Section) bool {
	set, ok := m.entries[key]
	if !ok {
		return false
	}
	_, granted := set[section]
	return granted
}

// Names returns the configured keys, sorted.
func (m *CapabilityMap) Names() []string {
	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
