package core

import "strings"

// Project converts one raw row into a CandidateRecord. Headers are visited in
// source order; blank cells and ignored or unknown targets are skipped, and
// when two headers target the same field the later one wins.
func Project(row map[string]string, headers []string, m ColumnMapping, s *Schema) CandidateRecord {
	rec := make(CandidateRecord)
	for _, h := range headers {
		target := m.Target(h)
		if target == Ignore {
			continue
		}
		spec, ok := s.Field(target)
		if !ok {
			continue
		}
		raw := CleanCell(row[h])
		if raw == "" {
			continue
		}
		if v, ok := coerce(raw, spec); ok {
			rec[target] = v
		}
	}
	return rec
}

// ProjectAll projects every row of a table.
func ProjectAll(t RawTable, m ColumnMapping, s *Schema) []CandidateRecord {
	out := make([]CandidateRecord, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = Project(row, t.Headers, m, s)
	}
	return out
}

// Preview projects at most n rows for display.
func Preview(t RawTable, m ColumnMapping, s *Schema, n int) []CandidateRecord {
	rows := t.Rows
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	out := make([]CandidateRecord, len(rows))
	for i, row := range rows {
		out[i] = Project(row, t.Headers, m, s)
	}
	return out
}

// NormalizeKey is the comparison form of a natural key: trimmed and
// lower-cased.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
