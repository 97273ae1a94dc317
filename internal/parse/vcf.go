package parse

import "strings"

// vcfColumns is the subset of vCard properties imported, in column order.
var vcfColumns = []string{"FN", "N", "EMAIL", "TEL", "ORG", "TITLE", "ADR", "NOTE"}

// ParseVCF parses one or more vCards. Each card becomes one row; only the
// first occurrence of a property is kept and property parameters are ignored.
// A card without FN takes its display name from N.
func ParseVCF(text string) Table {
	b := newTableBuilder()

	var card map[string]string
	for _, line := range unfoldVCF(text) {
		name, value, ok := splitVCFProperty(line)
		if !ok {
			continue
		}

		switch name {
		case "BEGIN":
			if strings.EqualFold(value, "VCARD") {
				card = make(map[string]string, len(vcfColumns))
			}
			continue
		case "END":
			if card != nil && strings.EqualFold(value, "VCARD") {
				if card["FN"] == "" && card["N"] != "" {
					card["FN"] = card["N"]
				}
				if !emptyRow(card) {
					b.addRow(card, vcfColumns)
				}
				card = nil
			}
			continue
		}

		if card == nil || !isVCFColumn(name) {
			continue
		}
		if _, exists := card[name]; exists {
			continue
		}
		card[name] = vcfValue(name, value)
	}

	return b.table()
}

// unfoldVCF joins continuation lines (those starting with a space or tab)
// onto the previous line.
func unfoldVCF(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && len(lines) > 0 {
			lines[len(lines)-1] += line[1:]
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// splitVCFProperty returns the upper-cased property name (group prefix and
// parameters removed) and the raw value.
func splitVCFProperty(line string) (string, string, bool) {
	colon := strings.Index(line, ":")
	if colon < 0 {
		return "", "", false
	}
	name := line[:colon]
	if semi := strings.Index(name, ";"); semi >= 0 {
		name = name[:semi]
	}
	if dot := strings.LastIndex(name, "."); dot >= 0 {
		name = name[dot+1:]
	}
	return strings.ToUpper(strings.TrimSpace(name)), strings.TrimSpace(line[colon+1:]), true
}

func isVCFColumn(name string) bool {
	for _, c := range vcfColumns {
		if c == name {
			return true
		}
	}
	return false
}

func vcfValue(name, value string) string {
	switch name {
	case "N":
		// family;given;additional;prefix;suffix
		parts := splitStructured(value)
		for len(parts) < 5 {
			parts = append(parts, "")
		}
		return joinNonEmpty(" ", parts[3], parts[1], parts[2], parts[0], parts[4])
	case "ADR":
		// pobox;extended;street;locality;region;postal code;country
		return joinNonEmpty(", ", splitStructured(value)...)
	case "ORG":
		return joinNonEmpty(" ", splitStructured(value)...)
	default:
		return unescapeVCF(value)
	}
}

// splitStructured splits on semicolons that are not escaped.
func splitStructured(value string) []string {
	var parts []string
	var cur strings.Builder
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c == '\\' && i+1 < len(value) {
			cur.WriteByte(c)
			cur.WriteByte(value[i+1])
			i++
			continue
		}
		if c == ';' {
			parts = append(parts, unescapeVCF(cur.String()))
			cur.Reset()
			continue
		}
		cur.WriteByte(c)
	}
	return append(parts, unescapeVCF(cur.String()))
}

var vcfUnescaper = strings.NewReplacer(`\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`)

func unescapeVCF(s string) string {
	return strings.TrimSpace(vcfUnescaper.Replace(s))
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func emptyRow(row map[string]string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
