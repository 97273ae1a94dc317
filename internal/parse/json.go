package parse

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// envelopeKeys are object keys that may hold the record array.
var envelopeKeys = []string{"properties", "imoveis", "contacts", "leads", "items", "records", "data", "results"}

// ParseJSON accepts a top-level array of objects or an object wrapping the
// array under one of the envelope keys. Scalar arrays are joined with "|" and
// nested objects are flattened one level as "parent.child".
func ParseJSON(data []byte) (Table, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return newTableBuilder().table(), nil
	}
	if !gjson.ValidBytes(data) {
		return Table{}, errors.New("invalid json: malformed document")
	}

	doc := gjson.ParseBytes(data)
	records, err := recordArray(doc)
	if err != nil {
		return Table{}, err
	}

	b := newTableBuilder()
	for _, rec := range records.Array() {
		if !rec.IsObject() {
			continue
		}
		row, order := flattenJSON(rec)
		if !emptyRow(row) {
			b.addRow(row, order)
		}
	}
	return b.table(), nil
}

func recordArray(doc gjson.Result) (gjson.Result, error) {
	if doc.IsArray() {
		return doc, nil
	}
	if doc.IsObject() {
		for _, key := range envelopeKeys {
			if r := doc.Get(key); r.IsArray() {
				return r, nil
			}
		}
	}
	return gjson.Result{}, fmt.Errorf("invalid json: expected an array of objects or one of %v", envelopeKeys)
}

// flattenJSON turns one record into a row. A column name produced twice in
// the same record (a literal "a.b" key next to {"a": {"b": ...}}, or a
// repeated key) gets a "_2", "_3" suffix as repeated CSV headers do.
func flattenJSON(rec gjson.Result) (map[string]string, []string) {
	row := make(map[string]string)
	var order []string
	set := func(key, value string) {
		name := key
		for n := 2; ; n++ {
			if _, taken := row[name]; !taken {
				break
			}
			name = fmt.Sprintf("%s_%d", key, n)
		}
		order = append(order, name)
		row[name] = strings.TrimSpace(value)
	}

	rec.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		switch {
		case value.IsArray():
			items := value.Array()
			values := make([]string, 0, len(items))
			for _, item := range items {
				values = append(values, scalarJSON(item))
			}
			set(name, joinNonEmpty("|", values...))
		case value.IsObject():
			value.ForEach(func(sub, v gjson.Result) bool {
				set(name+"."+sub.String(), scalarJSON(v))
				return true
			})
		default:
			set(name, scalarJSON(value))
		}
		return true
	})

	return row, order
}

// scalarJSON renders a value as cell text. Objects inside arrays (for example
// [{"url": "..."}]) contribute their first string member.
func scalarJSON(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		return ""
	case gjson.Number:
		return v.Raw
	case gjson.JSON:
		if v.IsObject() {
			var first string
			v.ForEach(func(_, member gjson.Result) bool {
				if member.Type == gjson.String {
					first = member.String()
					return false
				}
				return true
			})
			return first
		}
		return v.Raw
	default:
		return v.String()
	}
}
