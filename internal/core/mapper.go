package core

// mapper.go suggests and checks the mapping from source headers to schema
// fields.
//
// A header is matched by lower-casing it and testing, field by field in schema
// order, whether any alias is a substring. Declaration order is therefore the
// tie-break: "nome da empresa" maps to company because company is declared
// before full_name in the contacts schema.

import (
	"fmt"
	"sort"
	"strings"
)

// Ignore is the mapping target for columns that are not imported.
const Ignore = "ignore"

// ColumnMapping maps each source header to a field name or Ignore.
type ColumnMapping map[string]string

// AutoMap suggests a mapping for every header. Headers that match no alias map
// to Ignore. Two headers may suggest the same field; see Conflicts.
func AutoMap(headers []string, s *Schema) ColumnMapping {
	m := make(ColumnMapping, len(headers))
	for _, h := range headers {
		if field, ok := MatchField(h, s); ok {
			m[h] = field
		} else {
			m[h] = Ignore
		}
	}
	return m
}

// MatchField returns the first field in schema order with an alias that is a
// substring of the lower-cased header.
func MatchField(header string, s *Schema) (string, bool) {
	h := strings.ToLower(strings.TrimSpace(header))
	if h == "" {
		return "", false
	}
	for _, f := range s.Fields {
		for _, alias := range f.Aliases {
			if strings.Contains(h, alias) {
				return f.Name, true
			}
		}
	}
	return "", false
}

// Target returns the field a header maps to, or Ignore.
func (m ColumnMapping) Target(header string) string {
	t, ok := m[header]
	if !ok || t == "" {
		return Ignore
	}
	return t
}

// Set points a header at a field, or at Ignore.
func (m ColumnMapping) Set(header, field string) {
	if field == "" {
		field = Ignore
	}
	m[header] = field
}

// Clone returns an independent copy.
func (m ColumnMapping) Clone() ColumnMapping {
	out := make(ColumnMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Mapped returns the number of headers that target a field.
func (m ColumnMapping) Mapped() int {
	n := 0
	for _, t := range m {
		if t != Ignore && t != "" {
			n++
		}
	}
	return n
}

// Conflicts lists fields targeted by more than one header, with the headers
// in source order. When projecting, the last of them wins.
func (m ColumnMapping) Conflicts(headers []string) map[string][]string {
	byField := make(map[string][]string)
	for _, h := range headers {
		if t := m.Target(h); t != Ignore {
			byField[t] = append(byField[t], h)
		}
	}
	for field, hs := range byField {
		if len(hs) < 2 {
			delete(byField, field)
		}
	}
	return byField
}

// ConflictWarnings renders Conflicts as sorted human-readable messages.
func (m ColumnMapping) ConflictWarnings(headers []string) []string {
	conflicts := m.Conflicts(headers)
	out := make([]string, 0, len(conflicts))
	for field, hs := range conflicts {
		out = append(out, fmt.Sprintf("%s: columns %s all map here; %q is used",
			field, strings.Join(hs, ", "), hs[len(hs)-1]))
	}
	sort.Strings(out)
	return out
}

// ValidateMapping checks that every key is a header of the table, every
// target is a field of s or Ignore, and at least one header is mapped.
func ValidateMapping(m ColumnMapping, headers []string, s *Schema) error {
	known := make(map[string]bool, len(headers))
	for _, h := range headers {
		known[h] = true
	}

	var problems []string
	for h, t := range m {
		if !known[h] {
			problems = append(problems, fmt.Sprintf("unknown column %q", h))
			continue
		}
		if t == Ignore || t == "" {
			continue
		}
		if _, ok := s.Field(t); !ok {
			problems = append(problems, fmt.Sprintf("%s -> %s", h, t))
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("%w: %s", ErrUnknownField, strings.Join(problems, ", "))
	}
	if m.Mapped() == 0 {
		return ErrNothingMapped
	}
	return nil
}
