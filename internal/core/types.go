package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/crmimport/internal/parse"
)

var (
	// ErrEmptyFile is returned when a parsed file has no header or no rows.
	ErrEmptyFile = errors.New("empty file: nothing to import")

	// ErrUnknownSchema is returned for a schema key that is not registered.
	ErrUnknownSchema = errors.New("unknown schema")

	// ErrRunNotFound is returned when a run id is unknown or expired.
	ErrRunNotFound = errors.New("import run not found")

	// ErrUnreadableFile wraps parser failures.
	ErrUnreadableFile = errors.New("unreadable file")

	// ErrFileTooLarge is returned when an upload exceeds the configured size.
	ErrFileTooLarge = errors.New("file too large")

	// ErrUnknownField is returned when a mapping targets a field the schema lacks.
	ErrUnknownField = errors.New("mapping targets unknown field")

	// ErrNothingMapped is returned when every column is ignored.
	ErrNothingMapped = errors.New("no column is mapped to a field")

	// ErrNothingToImport reports a finished import that created nothing
	// because every record was rejected or already stored.
	ErrNothingToImport = errors.New("nothing to import")
)

// RawTable is the parser output: unique headers in source order plus one
// header->cell map per data row.
type RawTable = parse.Table

// FieldType represents how a source cell is coerced into a target field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEnum
	FieldNumber
	FieldList
	FieldEmail
)

// String returns the lower-case name used in API responses.
func (t FieldType) String() string {
	switch t {
	case FieldText:
		return "text"
	case FieldEnum:
		return "enum"
	case FieldNumber:
		return "number"
	case FieldList:
		return "list"
	case FieldEmail:
		return "email"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the type by name.
func (t FieldType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// FieldSpec describes one target field of a schema.
type FieldSpec struct {
	Name        string            // Target field name, e.g. "full_name"
	Label       string            // Display name
	Type        FieldType         // Coercion applied by the projector
	Required    bool              // Missing value is a blocking error
	Aliases     []string          // Lower-case substrings matched against source headers
	EnumValues  []string          // Allowed values for FieldEnum
	EnumAliases map[string]string // Lower-case source value -> enum value
	Typology    bool              // FieldNumber also reads "T2"/"V3" as a room count
}

// ValueKind tells which member of a Value is meaningful.
type ValueKind int

const (
	KindText ValueKind = iota
	KindNumber
	KindList
)

// Value is one coerced cell of a CandidateRecord.
//
// A number that could not be parsed is kept as Number 0 with Unparsed set and
// the source text in Raw, so validation can tell it apart from a real zero.
type Value struct {
	Kind     ValueKind
	Text     string
	Number   float64
	List     []string
	Raw      string
	Unparsed bool
}

// TextValue builds a text value.
func TextValue(s string) Value { return Value{Kind: KindText, Text: s, Raw: s} }

// NumberValue builds a numeric value.
func NumberValue(f float64) Value {
	return Value{Kind: KindNumber, Number: f, Raw: strconv.FormatFloat(f, 'f', -1, 64)}
}

// ListValue builds a multi-value field.
func ListValue(items ...string) Value {
	return Value{Kind: KindList, List: items, Raw: strings.Join(items, ", ")}
}

// Interface returns the plain Go value: string, float64 or []string.
func (v Value) Interface() any {
	switch v.Kind {
	case KindNumber:
		return v.Number
	case KindList:
		return v.List
	default:
		return v.Text
	}
}

// String renders the value for display.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		if v.Unparsed {
			return v.Raw
		}
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindList:
		return strings.Join(v.List, ", ")
	default:
		return v.Text
	}
}

// MarshalJSON encodes the value as a JSON string, number or array.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// CandidateRecord maps target field names to coerced values. Fields that were
// unmapped or blank in the source row are absent.
type CandidateRecord map[string]Value

// Has reports whether field is present with a usable value. Unparsed numbers
// count as present.
func (r CandidateRecord) Has(field string) bool {
	v, ok := r[field]
	if !ok {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return true
	case KindList:
		return len(v.List) > 0
	default:
		return strings.TrimSpace(v.Text) != ""
	}
}

// Text returns the text of a field, or "" when absent.
func (r CandidateRecord) Text(field string) string {
	if v, ok := r[field]; ok {
		return v.String()
	}
	return ""
}

// Number returns a parsed number and whether it is usable.
func (r CandidateRecord) Number(field string) (float64, bool) {
	v, ok := r[field]
	if !ok || v.Kind != KindNumber || v.Unparsed {
		return 0, false
	}
	return v.Number, true
}

// Clone returns a shallow copy safe to add fields to.
func (r CandidateRecord) Clone() CandidateRecord {
	out := make(CandidateRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Fields returns the record as plain values, the shape handed to storage.
func (r CandidateRecord) Fields() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v.Interface()
	}
	return out
}

// ValidationError represents a single problem with one field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationOutcome is the validator's verdict on one record. Errors block
// the import of the record; warnings are advisory.
type ValidationOutcome struct {
	Row      int             `json:"row"` // 1-based data row
	Record   CandidateRecord `json:"record"`
	Errors   []string        `json:"errors"`
	Warnings []string        `json:"warnings"`
}

// IsValid is true iff there are no errors.
func (o ValidationOutcome) IsValid() bool {
	return len(o.Errors) == 0
}

// AddError records a blocking problem.
func (o *ValidationOutcome) AddError(field, format string, args ...any) {
	o.Errors = append(o.Errors, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}.Error())
}

// AddWarning records an advisory problem.
func (o *ValidationOutcome) AddWarning(field, format string, args ...any) {
	o.Warnings = append(o.Warnings, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}.Error())
}

// MarshalJSON adds the derived isValid flag.
func (o ValidationOutcome) MarshalJSON() ([]byte, error) {
	type plain ValidationOutcome
	return json.Marshal(struct {
		plain
		IsValid bool `json:"isValid"`
	}{plain(o), o.IsValid()})
}

// Record is an already persisted entity as returned by Store.List.
type Record map[string]any

// CreatedRecord is one record persisted by a bulk create.
type CreatedRecord struct {
	ID        string         `json:"id"`
	Fields    map[string]any `json:"fields"`
	CreatedAt time.Time      `json:"createdAt"`
}
