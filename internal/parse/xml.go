package parse

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// recordElements are element names (lower case) that mark one record in
// portal feeds and CRM exports. Checked in order against a breadth-first walk.
var recordElements = []string{
	"imovel", "imóvel", "property", "listing", "anuncio", "anúncio", "ad",
	"offer", "contact", "contacto", "lead", "item", "record", "row", "entry",
}

type xmlNode struct {
	name     string
	attrs    []xml.Attr
	text     strings.Builder
	children []*xmlNode
}

// ParseXML flattens the repeating record elements of an XML document into a
// Table. Leaf children become columns; a child holding only leaves (such as
// <images><image>a</image><image>b</image></images>) becomes one column with
// the values joined by "|".
func ParseXML(data []byte) (Table, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return newTableBuilder().table(), nil
	}

	root, err := decodeXML(data)
	if err != nil {
		return Table{}, fmt.Errorf("invalid xml: %w", err)
	}

	b := newTableBuilder()
	for _, rec := range findRecords(root) {
		row, order := flattenRecord(rec)
		if len(row) > 0 && !emptyRow(row) {
			b.addRow(row, order)
		}
	}
	return b.table(), nil
}

func decodeXML(data []byte) (*xmlNode, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false

	var root *xmlNode
	var stack []*xmlNode
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &xmlNode{name: strings.ToLower(t.Name.Local), attrs: t.Attr}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			} else if root == nil {
				root = n
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}

	if root == nil {
		return nil, errors.New("no root element")
	}
	return root, nil
}

// findRecords returns the siblings sharing the first record-like element name
// found breadth-first. Without a known name, the root's children are used
// when they all share one name.
func findRecords(root *xmlNode) []*xmlNode {
	queue := []*xmlNode{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, name := range recordElements {
			if recs := childrenNamed(n, name); len(recs) > 0 {
				return recs
			}
		}
		queue = append(queue, n.children...)
	}

	if len(root.children) > 0 {
		first := root.children[0].name
		if recs := childrenNamed(root, first); len(recs) == len(root.children) {
			return recs
		}
	}
	return nil
}

func childrenNamed(n *xmlNode, name string) []*xmlNode {
	var out []*xmlNode
	for _, c := range n.children {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

func flattenRecord(rec *xmlNode) (map[string]string, []string) {
	row := make(map[string]string)
	var order []string
	set := func(key, value string) {
		value = strings.TrimSpace(value)
		if existing, ok := row[key]; ok {
			if value != "" {
				row[key] = joinNonEmpty("|", existing, value)
			}
			return
		}
		row[key] = value
		order = append(order, key)
	}

	for _, a := range rec.attrs {
		set(strings.ToLower(a.Name.Local), a.Value)
	}

	for _, c := range rec.children {
		switch {
		case len(c.children) == 0:
			set(c.name, leafValue(c))
		case allLeaves(c):
			values := make([]string, 0, len(c.children))
			for _, g := range c.children {
				values = append(values, leafValue(g))
			}
			set(c.name, joinNonEmpty("|", values...))
		default:
			for _, g := range c.children {
				set(c.name+"."+g.name, leafValue(g))
			}
		}
	}

	return row, order
}

// leafValue is the element text, or its first attribute for empty elements
// such as <image url="..."/>.
func leafValue(n *xmlNode) string {
	if text := strings.TrimSpace(n.text.String()); text != "" {
		return text
	}
	if len(n.attrs) > 0 {
		return strings.TrimSpace(n.attrs[0].Value)
	}
	return ""
}

func allLeaves(n *xmlNode) bool {
	for _, c := range n.children {
		if len(c.children) > 0 {
			return false
		}
	}
	return true
}
