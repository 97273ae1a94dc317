package core

// validation.go checks candidate records before they are committed.
//
// Validation happens at two levels:
//  1. Field checks driven by FieldSpec: required values, unparseable numbers,
//     enum membership and email syntax
//  2. Schema rules (RuleFunc) for business constraints such as a minimum
//     title length or a plausible rent
//
// Errors make a record invalid; warnings are reported but do not block the
// import. Every record gets an outcome, so the preview can show all problems
// at once.

import (
	"fmt"
	"net/mail"
	"strings"
)

// Report is the validation result for a whole file.
type Report struct {
	Outcomes []ValidationOutcome `json:"outcomes"`
	Valid    int                 `json:"valid"`
	Invalid  int                 `json:"invalid"`
	Warnings int                 `json:"warnings"` // records with at least one warning
}

// ValidRecords returns the records without errors, in source order.
func (r Report) ValidRecords() []CandidateRecord {
	out := make([]CandidateRecord, 0, r.Valid)
	for _, o := range r.Outcomes {
		if o.IsValid() {
			out = append(out, o.Record)
		}
	}
	return out
}

// Validate checks one record against the schema.
func Validate(rec CandidateRecord, s *Schema) ValidationOutcome {
	out := ValidationOutcome{
		Record:   rec,
		Errors:   []string{},
		Warnings: []string{},
	}

	for _, spec := range s.Fields {
		v, present := rec[spec.Name]

		if present && v.Unparsed {
			out.AddError(spec.Name, "unparseable value %q", v.Raw)
			continue
		}
		if !rec.Has(spec.Name) {
			if spec.Required {
				out.AddError(spec.Name, "required field is empty")
			}
			continue
		}
		if err := ValidateValue(v, spec); err != nil {
			out.AddError(spec.Name, "%s", err.Error())
		}
	}

	for _, rule := range s.Rules {
		rule(rec, &out)
	}
	return out
}

// ValidateAll validates records in order. Row numbers are 1-based.
func ValidateAll(records []CandidateRecord, s *Schema) Report {
	rep := Report{Outcomes: make([]ValidationOutcome, len(records))}
	for i, rec := range records {
		o := Validate(rec, s)
		o.Row = i + 1
		rep.Outcomes[i] = o
		if o.IsValid() {
			rep.Valid++
		} else {
			rep.Invalid++
		}
		if len(o.Warnings) > 0 {
			rep.Warnings++
		}
	}
	return rep
}

// ValidateValue validates a present value against its field specification.
func ValidateValue(v Value, spec FieldSpec) error {
	switch spec.Type {
	case FieldEnum:
		if len(spec.EnumValues) == 0 {
			return nil
		}
		for _, ev := range spec.EnumValues {
			if ev == v.Text {
				return nil
			}
		}
		return fmt.Errorf("invalid value %q (allowed: %s)", v.Text, strings.Join(spec.EnumValues, ", "))
	case FieldEmail:
		if !ValidEmail(v.Text) {
			return fmt.Errorf("invalid email address %q", v.Text)
		}
	}
	return nil
}

// ValidEmail reports whether s is a bare address such as ana@example.pt.
func ValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	return at > 0 && strings.Contains(s[at+1:], ".")
}
