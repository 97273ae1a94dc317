package core

// convert.go coerces source cells into field values.
//
// These functions handle the messy reality of CRM exports and portal feeds:
//   - Currency symbols and European thousand separators in prices
//   - Area units such as "120 m2"
//   - Portuguese typology codes ("T2", "V3") on fields flagged Typology
//   - Multi-value cells split by comma, semicolon or pipe
//   - Enum values spelled in Portuguese or English
//   - Excel formula prefixes (="value")

import (
	"math"
	"strconv"
	"strings"
)

// numberStripper removes currency symbols, unit suffixes and spaces,
// including the non-breaking spaces spreadsheets use as thousand separators.
var numberStripper = strings.NewReplacer(
	"\u20ac", "", // Euro
	"$", "",
	"\u00a3", "", // Pound
	"EUR", "",
	"m\u00b2", "",
	"m2", "",
	" ", "",
	"\u00a0", "",
	"\u202f", "",
)

// CoerceNumber parses a number written the European way: "." groups
// thousands and "," is the decimal mark, so "120.000,50" is 120000.5.
// Returns false when nothing numeric remains.
func CoerceNumber(raw string) (float64, bool) {
	s := numberStripper.Replace(strings.TrimSpace(raw))
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// typology reads "T2" or "V3" as 2 or 3.
func typology(s string) (float64, bool) {
	if len(s) < 2 || !strings.ContainsRune("TtVv", rune(s[0])) {
		return 0, false
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || n < 0 {
		return 0, false
	}
	return float64(n), true
}

// SplitList splits a multi-value cell on commas, semicolons and pipes,
// trimming items and dropping empty ones.
func SplitList(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NormalizeEnum maps a source value onto one of spec.EnumValues, matching
// case-insensitively and through EnumAliases. Unknown values are returned
// trimmed so the validator can report them.
func NormalizeEnum(raw string, spec FieldSpec) string {
	v := strings.TrimSpace(raw)
	lower := strings.ToLower(v)
	for _, ev := range spec.EnumValues {
		if strings.EqualFold(ev, v) {
			return ev
		}
	}
	if mapped, ok := spec.EnumAliases[lower]; ok {
		return mapped
	}
	return v
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}

	return strings.TrimSpace(s)
}

// coerce converts one non-empty cell according to the field type. The bool
// result is false when nothing should be stored (an empty list).
func coerce(raw string, spec FieldSpec) (Value, bool) {
	switch spec.Type {
	case FieldNumber:
		f, ok := CoerceNumber(raw)
		if !ok && spec.Typology {
			f, ok = typology(strings.TrimSpace(raw))
		}
		if !ok {
			return Value{Kind: KindNumber, Raw: raw, Unparsed: true}, true
		}
		v := NumberValue(f)
		v.Raw = raw
		return v, true
	case FieldList:
		items := SplitList(raw)
		if len(items) == 0 {
			return Value{}, false
		}
		return ListValue(items...), true
	case FieldEnum:
		v := TextValue(NormalizeEnum(raw, spec))
		v.Raw = raw
		return v, true
	default:
		return TextValue(raw), true
	}
}
