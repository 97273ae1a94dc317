package parse

import (
	"fmt"
	"strings"
)

// DetectDelimiter chooses the delimiter for a whole file from its first line:
// semicolon if present, otherwise tab, otherwise comma.
func DetectDelimiter(firstLine string) string {
	switch {
	case strings.Contains(firstLine, ";"):
		return ";"
	case strings.Contains(firstLine, "\t"):
		return "\t"
	default:
		return ","
	}
}

// ParseCSV parses delimited text into a Table.
//
// This is deliberately not RFC 4180: a delimiter inside a quoted field still
// splits the field. Rows shorter than the header are padded with empty cells
// and extra cells are dropped.
func ParseCSV(text string) Table {
	lines := nonBlankLines(text)
	if len(lines) == 0 {
		return Table{Headers: []string{}, Rows: []map[string]string{}}
	}

	delim := DetectDelimiter(lines[0])
	headers := uniqueHeaders(splitLine(lines[0], delim))

	rows := make([]map[string]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		cells := splitLine(line, delim)
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(cells) {
				row[h] = cells[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}

	return Table{Headers: headers, Rows: rows}
}

func nonBlankLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func splitLine(line, delim string) []string {
	parts := strings.Split(line, delim)
	for i, p := range parts {
		parts[i] = cleanField(p)
	}
	return parts
}

// cleanField trims whitespace and removes one surrounding pair of double
// quotes. A lone leading or trailing quote is kept.
func cleanField(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = s[1 : len(s)-1]
	}
	return s
}

// uniqueHeaders names blank headers by position and suffixes repeats so that
// every row key is distinct. A suffixed name that is already taken is bumped
// until it is free.
func uniqueHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	taken := make(map[string]bool, len(raw))
	for i, h := range raw {
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		name := h
		for n := 2; taken[name]; n++ {
			name = fmt.Sprintf("%s_%d", h, n)
		}
		taken[name] = true
		headers[i] = name
	}
	return headers
}
