package core

import (
	"fmt"
	"sort"
	"sync"
)

// RuleFunc adds schema-specific errors and warnings to an outcome. Rules run
// after the generic field checks.
type RuleFunc func(rec CandidateRecord, out *ValidationOutcome)

// Schema describes one importable entity: its target fields, how source
// headers map onto them, and how records are validated and deduplicated.
type Schema struct {
	Key   string // URL-safe identifier, e.g. "contacts"
	Label string // Display name
	Table string // Storage table name

	// Version identifies the alias table, so a mapping suggestion can be
	// traced to the dictionary that produced it.
	Version string

	// Fields in alias priority order. The first field whose alias matches a
	// header wins, so more specific fields must come first.
	Fields []FieldSpec

	// NaturalKey is the field used to detect records that already exist.
	// Empty disables deduplication.
	NaturalKey string

	// Classification lists enum fields a Classifier may fill in when the
	// source file leaves them blank.
	Classification []string

	Rules []RuleFunc
}

// Field returns the spec for a field name.
func (s *Schema) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// FieldNames returns field names in declaration order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

var (
	registry   = make(map[string]*Schema)
	registryMu sync.RWMutex
)

// Register adds a schema to the registry.
// Panics if a schema with the same key is already registered.
func Register(s *Schema) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[s.Key]; exists {
		panic(fmt.Sprintf("schema already registered: %s", s.Key))
	}
	if s.Table == "" {
		s.Table = s.Key
	}

	registry[s.Key] = s
}

// Get returns a schema by key.
// Returns false if not found.
func Get(key string) (*Schema, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	s, ok := registry[key]
	return s, ok
}

// Lookup is Get with ErrUnknownSchema for missing keys.
func Lookup(key string) (*Schema, error) {
	s, ok := Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSchema, key)
	}
	return s, nil
}

// All returns all registered schemas sorted by key.
func All() []*Schema {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]*Schema, 0, len(registry))
	for _, s := range registry {
		result = append(result, s)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})

	return result
}

// SchemaCount returns the number of registered schemas.
func SchemaCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered schemas.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]*Schema)
}
