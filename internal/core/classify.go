package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Suggestion holds inferred field values, keyed by field name. An empty
// suggestion means the classifier had no opinion.
type Suggestion struct {
	Fields map[string]string
}

// Empty reports whether the suggestion carries no values.
func (s Suggestion) Empty() bool {
	for _, v := range s.Fields {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Classifier infers classification fields (such as property type) from a
// record's free text. Implementations may call external services and may fail;
// a failure never rejects the record on its own.
type Classifier interface {
	Classify(ctx context.Context, s *Schema, text string) (Suggestion, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, s *Schema, text string) (Suggestion, error)

// Classify calls f.
func (f ClassifierFunc) Classify(ctx context.Context, s *Schema, text string) (Suggestion, error) {
	return f(ctx, s, text)
}

// NoopClassifier never suggests anything.
type NoopClassifier struct{}

// Classify returns an empty suggestion.
func (NoopClassifier) Classify(context.Context, *Schema, string) (Suggestion, error) {
	return Suggestion{}, nil
}

// EnrichStats counts what Enrich did.
type EnrichStats struct {
	Requested int `json:"requested"` // records sent to the classifier
	Filled    int `json:"filled"`    // records that gained at least one field
	Failed    int `json:"failed"`    // classifier errors, swallowed
}

// NeedsClassification reports whether any classification field is unset.
func NeedsClassification(rec CandidateRecord, s *Schema) bool {
	for _, f := range s.Classification {
		if !rec.Has(f) {
			return true
		}
	}
	return false
}

// ClassificationText joins the record's text fields, one "field: value" per
// line, as the classifier prompt.
func ClassificationText(rec CandidateRecord, s *Schema) string {
	var b strings.Builder
	for _, f := range s.Fields {
		if f.Type != FieldText || !rec.Has(f.Name) {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", f.Name, rec.Text(f.Name))
	}
	return strings.TrimSpace(b.String())
}

// Enrich asks c to fill unset classification fields. Calls run concurrently,
// at most limit at a time (limit <= 0 means no limit), and are awaited
// together. Output order matches input order. A suggested value is applied
// only when the field is unset and, for enum fields, normalizes to an allowed
// value. Classifier errors are logged and leave the record unchanged.
func Enrich(ctx context.Context, records []CandidateRecord, s *Schema, c Classifier, limit int) ([]CandidateRecord, EnrichStats) {
	out := make([]CandidateRecord, len(records))
	copy(out, records)

	if c == nil || len(s.Classification) == 0 {
		return out, EnrichStats{}
	}
	if _, noop := c.(NoopClassifier); noop {
		return out, EnrichStats{}
	}

	var requested, filled, failed atomic.Int64
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, rec := range records {
		if !NeedsClassification(rec, s) {
			continue
		}
		text := ClassificationText(rec, s)
		if text == "" {
			continue
		}

		i, rec := i, rec
		g.Go(func() error {
			requested.Add(1)
			sugg, err := c.Classify(ctx, s, text)
			if err != nil {
				failed.Add(1)
				slog.Debug("classification failed", "schema", s.Key, "row", i+1, "error", err)
				return nil
			}
			if next, changed := applySuggestion(rec, sugg, s); changed {
				out[i] = next
				filled.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return out, EnrichStats{
		Requested: int(requested.Load()),
		Filled:    int(filled.Load()),
		Failed:    int(failed.Load()),
	}
}

func applySuggestion(rec CandidateRecord, sugg Suggestion, s *Schema) (CandidateRecord, bool) {
	if sugg.Empty() {
		return rec, false
	}

	next := rec.Clone()
	changed := false
	for _, name := range s.Classification {
		if rec.Has(name) {
			continue
		}
		raw := strings.TrimSpace(sugg.Fields[name])
		if raw == "" {
			continue
		}
		spec, ok := s.Field(name)
		if !ok {
			continue
		}
		if spec.Type == FieldEnum {
			raw = NormalizeEnum(raw, spec)
			if ValidateValue(TextValue(raw), spec) != nil {
				continue
			}
		}
		next[name] = TextValue(raw)
		changed = true
	}
	return next, changed
}
