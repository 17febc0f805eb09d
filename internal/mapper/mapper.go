package mapper

import (
	"fmt"
	"sort"

	"github.com/Materials-Consortia/optimade-go/internal/clause"
)

// ProviderField describes one provider-namespaced custom field as declared
// in configuration. Name carries no prefix; the full logical name is
// _<prefix>_<name>.
type ProviderField struct {
	Name        string
	Type        string
	Unit        string
	Description string
}

// Config is the static per-entry-type configuration handed to New. It is
// produced by an external loader (internal/config); the mapper itself never
// reads files or environment variables.
type Config struct {
	// EntryType names the resource collection, e.g. "structures".
	EntryType string

	// Quantities maps each logical field name to its declared type name
	// (string, int, float, bool, timestamp, list_string, list_int,
	// list_float).
	Quantities map[string]string

	// Aliases maps logical field names to physical backend names. Fields
	// absent from the table map to themselves.
	Aliases map[string]string

	// LengthAliases maps a logical list field to the logical name of its
	// maintained length sibling (e.g. elements -> nelements).
	LengthAliases map[string]string

	// ProviderPrefix is the database-specific namespace prefix, without
	// underscores (e.g. "exmpl").
	ProviderPrefix string

	// ProviderFields declares the custom fields under ProviderPrefix.
	ProviderFields []ProviderField

	// TextFields lists logical string fields stored analyzed in the
	// search-engine backend; exact matches on them must address the
	// non-analyzed sub-field variant.
	TextFields []string

	// Correlated lists zip groups: sets of list properties whose elements
	// correspond positionally and may be addressed jointly by set
	// operators.
	Correlated [][]string
}

// ParseKind converts a configured type name into a clause.Kind.
func ParseKind(name string) (clause.Kind, error) {
	switch name {
	case "string":
		return clause.KindString, nil
	case "int":
		return clause.KindInt, nil
	case "float":
		return clause.KindFloat, nil
	case "bool":
		return clause.KindBool, nil
	case "timestamp":
		return clause.KindTimestamp, nil
	case "list_string":
		return clause.KindListString, nil
	case "list_int":
		return clause.KindListInt, nil
	case "list_float":
		return clause.KindListFloat, nil
	default:
		return clause.KindUnknown, fmt.Errorf("unknown quantity type %q", name)
	}
}

// Mapper resolves logical property names for one entry type. Immutable
// after New returns; safe for concurrent use.
type Mapper struct {
	entryType  string
	quantities map[string]clause.Property // logical name -> resolved descriptor
	aliasOf    map[string]string          // physical field -> logical name
	zipGroups  map[string]struct{}        // canonical group key -> present
}

// New builds a Mapper from cfg, validating every cross-reference. All
// tables are copied; the caller may mutate cfg afterwards without affecting
// the returned Mapper.
func New(cfg Config) (*Mapper, error) {
	if cfg.EntryType == "" {
		return nil, fmt.Errorf("mapper: entry type is required")
	}

	m := &Mapper{
		entryType:  cfg.EntryType,
		quantities: make(map[string]clause.Property, len(cfg.Quantities)+len(cfg.ProviderFields)),
		aliasOf:    make(map[string]string, len(cfg.Quantities)+len(cfg.ProviderFields)),
		zipGroups:  make(map[string]struct{}, len(cfg.Correlated)),
	}

	text := make(map[string]struct{}, len(cfg.TextFields))
	for _, f := range cfg.TextFields {
		text[f] = struct{}{}
	}

	resolve := func(logical string) string {
		if physical, ok := cfg.Aliases[logical]; ok {
			return physical
		}
		return logical
	}

	add := func(logical, typeName string) error {
		kind, err := ParseKind(typeName)
		if err != nil {
			return fmt.Errorf("mapper: %s.%s: %w", cfg.EntryType, logical, err)
		}
		_, isText := text[logical]
		if isText && kind != clause.KindString && kind != clause.KindListString {
			return fmt.Errorf("mapper: %s.%s: text fields must be string-typed, got %s", cfg.EntryType, logical, kind)
		}
		physical := resolve(logical)
		m.quantities[logical] = clause.Property{
			Name:  logical,
			Field: physical,
			Kind:  kind,
			Text:  isText,
		}
		m.aliasOf[physical] = logical
		return nil
	}

	for logical, typeName := range cfg.Quantities {
		if err := add(logical, typeName); err != nil {
			return nil, err
		}
	}
	for _, pf := range cfg.ProviderFields {
		if cfg.ProviderPrefix == "" {
			return nil, fmt.Errorf("mapper: %s: provider fields declared without a provider prefix", cfg.EntryType)
		}
		logical := "_" + cfg.ProviderPrefix + "_" + pf.Name
		if err := add(logical, pf.Type); err != nil {
			return nil, err
		}
	}

	// Length aliases are attached after all quantities exist so both sides
	// can be checked.
	for listField, lengthField := range cfg.LengthAliases {
		q, ok := m.quantities[listField]
		if !ok {
			return nil, fmt.Errorf("mapper: %s: length alias for undeclared quantity %q", cfg.EntryType, listField)
		}
		if !q.Kind.IsList() {
			return nil, fmt.Errorf("mapper: %s: length alias on non-list quantity %q (%s)", cfg.EntryType, listField, q.Kind)
		}
		lq, ok := m.quantities[lengthField]
		if !ok {
			return nil, fmt.Errorf("mapper: %s: length alias %q -> %q names an undeclared quantity", cfg.EntryType, listField, lengthField)
		}
		if lq.Kind != clause.KindInt {
			return nil, fmt.Errorf("mapper: %s: length field %q must be int, got %s", cfg.EntryType, lengthField, lq.Kind)
		}
		q.LengthField = lq.Field
		m.quantities[listField] = q
	}

	for _, group := range cfg.Correlated {
		if len(group) < 2 {
			return nil, fmt.Errorf("mapper: %s: zip group needs at least two properties, got %v", cfg.EntryType, group)
		}
		for _, name := range group {
			q, ok := m.quantities[name]
			if !ok {
				return nil, fmt.Errorf("mapper: %s: zip group references undeclared quantity %q", cfg.EntryType, name)
			}
			if !q.Kind.IsList() {
				return nil, fmt.Errorf("mapper: %s: zip group member %q is not list-typed (%s)", cfg.EntryType, name, q.Kind)
			}
		}
		m.zipGroups[zipKey(group)] = struct{}{}
	}

	return m, nil
}

// zipKey builds an order-insensitive lookup key for a zip group.
func zipKey(names []string) string {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)
	key := ""
	for i, n := range sorted {
		if i > 0 {
			key += ":"
		}
		key += n
	}
	return key
}

// EntryType returns the entry type this mapper was built for.
func (m *Mapper) EntryType() string {
	return m.entryType
}

// Resolve returns the resolved descriptor for a logical property name.
// The boolean is false for names absent from both the schema and the
// provider-field namespace.
func (m *Mapper) Resolve(logical string) (clause.Property, bool) {
	q, ok := m.quantities[logical]
	return q, ok
}

// AliasOf is the inverse of Resolve: it maps a physical field name back to
// its logical name.
func (m *Mapper) AliasOf(physical string) (string, bool) {
	logical, ok := m.aliasOf[physical]
	return logical, ok
}

// LengthAlias returns the resolved descriptor of the length sibling
// configured for a logical list field, if any.
func (m *Mapper) LengthAlias(logical string) (clause.Property, bool) {
	q, ok := m.quantities[logical]
	if !ok || q.LengthField == "" {
		return clause.Property{}, false
	}
	lengthLogical, ok := m.aliasOf[q.LengthField]
	if !ok {
		return clause.Property{}, false
	}
	return m.quantities[lengthLogical], true
}

// Correlated reports whether the given logical names form a declared zip
// group. Order does not matter; positional correspondence is a property of
// the data, not of the spelling order in the filter.
func (m *Mapper) Correlated(names []string) bool {
	_, ok := m.zipGroups[zipKey(names)]
	return ok
}

// Quantities returns every resolved quantity descriptor, sorted by logical
// name for deterministic iteration.
func (m *Mapper) Quantities() []clause.Property {
	names := make([]string, 0, len(m.quantities))
	for n := range m.quantities {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]clause.Property, 0, len(names))
	for _, n := range names {
		out = append(out, m.quantities[n])
	}
	return out
}

// Registry holds one Mapper per entry type. Like the mappers it contains,
// a Registry is immutable after construction.
type Registry struct {
	mappers map[string]*Mapper
}

// NewRegistry builds mappers for every config. Entry types must be unique.
func NewRegistry(cfgs ...Config) (*Registry, error) {
	r := &Registry{mappers: make(map[string]*Mapper, len(cfgs))}
	for _, cfg := range cfgs {
		if _, dup := r.mappers[cfg.EntryType]; dup {
			return nil, fmt.Errorf("mapper: duplicate entry type %q", cfg.EntryType)
		}
		m, err := New(cfg)
		if err != nil {
			return nil, err
		}
		r.mappers[cfg.EntryType] = m
	}
	return r, nil
}

// For returns the mapper for an entry type.
func (r *Registry) For(entryType string) (*Mapper, bool) {
	m, ok := r.mappers[entryType]
	return m, ok
}

// EntryTypes returns the registered entry types, sorted.
func (r *Registry) EntryTypes() []string {
	types := make([]string, 0, len(r.mappers))
	for t := range r.mappers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
