// Package schemas registers the importable CRM entities with the core
// registry. Import this package to ensure all schemas are registered.
package schemas

import (
	"unicode"
	"unicode/utf8"
)

// AliasVersion identifies the alias tables below. Bump it when an alias is
// added, removed or reordered, since order decides ties.
const AliasVersion = "2024.2"

func init() {
	registerContacts()
	registerProperties()
}

// runeLen counts characters, not bytes, so accented names are measured
// correctly.
func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
