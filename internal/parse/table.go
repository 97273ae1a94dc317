// Package parse turns uploaded files into a header list and row records.
//
// Every supported format produces the same [Table] shape so the rest of the
// import pipeline never needs to know where the data came from:
//
//   - CSV: delimiter chosen once from the first line (";" then tab then ",")
//   - VCF: one row per vCard, columns FN, N, EMAIL, TEL, ORG, TITLE, ADR, NOTE
//   - XML: the repeating record element is found by name and flattened
//   - JSON: an array of objects or an envelope such as {"properties": [...]}
//
// Parsers never fail on empty input. They return an empty Table and leave it
// to the caller to report "nothing to import".
package parse

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrUnsupportedFormat is returned when a file's format cannot be handled.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Table is the raw result of parsing a file. Headers are unique and in source
// order. Each row maps every header to its (possibly empty) cell.
type Table struct {
	Headers []string            `json:"headers"`
	Rows    []map[string]string `json:"rows"`
}

// Empty reports whether the table has nothing to import.
func (t Table) Empty() bool {
	return len(t.Headers) == 0 || len(t.Rows) == 0
}

// Format identifies an input file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatVCF  Format = "vcf"
	FormatXML  Format = "xml"
	FormatJSON Format = "json"
)

// Detect picks a format from the file extension, falling back to sniffing
// the first non-space byte of the content.
func Detect(fileName string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv", ".txt", ".tsv":
		return FormatCSV
	case ".vcf", ".vcard":
		return FormatVCF
	case ".xml":
		return FormatXML
	case ".json":
		return FormatJSON
	}

	trimmed := bytes.TrimSpace(stripBOM(data))
	switch {
	case len(trimmed) == 0:
		return FormatCSV
	case trimmed[0] == '<':
		return FormatXML
	case trimmed[0] == '[' || trimmed[0] == '{':
		return FormatJSON
	case bytes.HasPrefix(bytes.ToUpper(trimmed), []byte("BEGIN:VCARD")):
		return FormatVCF
	default:
		return FormatCSV
	}
}

// Parse sanitizes data and dispatches to the parser for format.
func Parse(format Format, data []byte) (Table, error) {
	data = sanitizeUTF8(stripBOM(data))

	switch format {
	case FormatCSV:
		return ParseCSV(string(data)), nil
	case FormatVCF:
		return ParseVCF(string(data)), nil
	case FormatXML:
		return ParseXML(data)
	case FormatJSON:
		return ParseJSON(data)
	default:
		return Table{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// tableBuilder accumulates rows whose keys are only known while reading
// (VCF, XML, JSON). Header order is first-seen order.
type tableBuilder struct {
	headers []string
	seen    map[string]bool
	rows    []map[string]string
}

func newTableBuilder() *tableBuilder {
	return &tableBuilder{seen: make(map[string]bool)}
}

func (b *tableBuilder) addRow(row map[string]string, order []string) {
	for _, key := range order {
		if !b.seen[key] {
			b.seen[key] = true
			b.headers = append(b.headers, key)
		}
	}
	b.rows = append(b.rows, row)
}

// table fills every row with all headers so rows are rectangular.
func (b *tableBuilder) table() Table {
	if len(b.rows) == 0 {
		return Table{Headers: []string{}, Rows: []map[string]string{}}
	}
	for _, row := range b.rows {
		for _, h := range b.headers {
			if _, ok := row[h]; !ok {
				row[h] = ""
			}
		}
	}
	return Table{Headers: b.headers, Rows: b.rows}
}

func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
}

func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('\uFFFD')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
