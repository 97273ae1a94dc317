package core

// templates.go keeps saved column mappings. A template remembers the headers
// of the file it was built from; a new upload whose headers cover enough of
// them starts from the template's choices instead of the alias guesses.

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/crmimport/internal/logging"
)

// TemplateMatchThreshold is the minimum share of a template's headers an
// upload must carry for the template to match.
const TemplateMatchThreshold = 0.7

var (
	ErrTemplateNotFound     = errors.New("mapping template not found")
	ErrTemplateExists       = errors.New("mapping template already exists")
	ErrTemplateName         = errors.New("mapping template name is required")
	ErrTemplatesUnsupported = errors.New("mapping templates are not supported by this store")
)

// MappingTemplate is a named ColumnMapping saved for one schema.
type MappingTemplate struct {
	ID        string        `json:"id"`
	Schema    string        `json:"schema"`
	Name      string        `json:"name"`
	Mapping   ColumnMapping `json:"mapping"`
	Headers   []string      `json:"headers"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// TemplateMatch is a template scored against an upload's headers.
type TemplateMatch struct {
	Template MappingTemplate `json:"template"`
	Score    float64         `json:"score"`
}

// TemplateRef names the template a run's mapping was seeded from.
type TemplateRef struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// TemplateStore persists mapping templates. A Store may implement it.
//
// Names are unique per schema: CreateTemplate and UpdateTemplate return
// ErrTemplateExists on a clash. Unknown ids give ErrTemplateNotFound.
type TemplateStore interface {
	CreateTemplate(ctx context.Context, t MappingTemplate) error
	UpdateTemplate(ctx context.Context, t MappingTemplate) error
	GetTemplate(ctx context.Context, id string) (MappingTemplate, error)
	ListTemplates(ctx context.Context, schema string) ([]MappingTemplate, error)
	DeleteTemplate(ctx context.Context, id string) error
}

func templateKey(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}

// MatchTemplateHeaders returns the share of templateHeaders found in
// headers, ignoring case and padding.
func MatchTemplateHeaders(headers, templateHeaders []string) float64 {
	if len(templateHeaders) == 0 {
		return 0
	}
	have := make(map[string]bool, len(headers))
	for _, h := range headers {
		have[templateKey(h)] = true
	}
	matched := 0
	for _, h := range templateHeaders {
		if have[templateKey(h)] {
			matched++
		}
	}
	return float64(matched) / float64(len(templateHeaders))
}

// ApplyTemplate overlays t on base for every header t knows. Other headers
// keep base's choice, and targets s no longer has are skipped.
func ApplyTemplate(base ColumnMapping, headers []string, t MappingTemplate, s *Schema) ColumnMapping {
	saved := make(map[string]string, len(t.Mapping))
	for h, f := range t.Mapping {
		saved[templateKey(h)] = f
	}

	out := base.Clone()
	for _, h := range headers {
		f, ok := saved[templateKey(h)]
		if !ok {
			continue
		}
		if f != Ignore {
			if _, known := s.Field(f); !known {
				continue
			}
		}
		out[h] = f
	}
	return out
}

// buildTemplate checks a template's name and mapping against sc. With no
// headers given, the mapping's own keys are used.
func buildTemplate(sc *Schema, name string, m ColumnMapping, headers []string) (MappingTemplate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return MappingTemplate{}, ErrTemplateName
	}

	mapping := make(ColumnMapping, len(m))
	for h, f := range m {
		mapping.Set(h, f)
	}
	if len(headers) == 0 {
		for h := range mapping {
			headers = append(headers, h)
		}
		sort.Strings(headers)
	}
	if err := ValidateMapping(mapping, headers, sc); err != nil {
		return MappingTemplate{}, err
	}

	return MappingTemplate{
		Schema:  sc.Key,
		Name:    name,
		Mapping: mapping,
		Headers: append([]string(nil), headers...),
	}, nil
}

// CreateTemplate saves a mapping under name for schemaKey.
func (s *Service) CreateTemplate(ctx context.Context, schemaKey, name string, m ColumnMapping, headers []string) (MappingTemplate, error) {
	sc, err := Lookup(schemaKey)
	if err != nil {
		return MappingTemplate{}, err
	}
	if s.templates == nil {
		return MappingTemplate{}, ErrTemplatesUnsupported
	}
	t, err := buildTemplate(sc, name, m, headers)
	if err != nil {
		return MappingTemplate{}, err
	}

	now := s.now()
	t.ID = uuid.New().String()
	t.CreatedAt, t.UpdatedAt = now, now
	if err := s.templates.CreateTemplate(ctx, t); err != nil {
		return MappingTemplate{}, err
	}
	logging.FromContext(ctx).Info("mapping template saved", "template", t.Name, "schema", t.Schema, "columns", len(t.Mapping))
	return t, nil
}

// SaveRunTemplate saves the current mapping of a run as a template.
func (s *Service) SaveRunTemplate(ctx context.Context, runID, name string) (MappingTemplate, error) {
	var (
		schemaKey string
		mapping   ColumnMapping
		headers   []string
	)
	err := s.withRun(runID, func(ar *activeRun, sc *Schema) error {
		schemaKey = sc.Key
		mapping = ar.run.Mapping.Clone()
		headers = append([]string(nil), ar.run.Table.Headers...)
		return nil
	})
	if err != nil {
		return MappingTemplate{}, err
	}
	return s.CreateTemplate(ctx, schemaKey, name, mapping, headers)
}

// GetTemplate returns one template.
func (s *Service) GetTemplate(ctx context.Context, id string) (MappingTemplate, error) {
	if s.templates == nil {
		return MappingTemplate{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return s.templates.GetTemplate(ctx, id)
}

// ListTemplates returns the templates of a schema ordered by name.
func (s *Service) ListTemplates(ctx context.Context, schemaKey string) ([]MappingTemplate, error) {
	if _, err := Lookup(schemaKey); err != nil {
		return nil, err
	}
	if s.templates == nil {
		return []MappingTemplate{}, nil
	}
	return s.templates.ListTemplates(ctx, schemaKey)
}

// UpdateTemplate replaces a template's name, mapping and headers.
func (s *Service) UpdateTemplate(ctx context.Context, id, name string, m ColumnMapping, headers []string) (MappingTemplate, error) {
	existing, err := s.GetTemplate(ctx, id)
	if err != nil {
		return MappingTemplate{}, err
	}
	sc, err := Lookup(existing.Schema)
	if err != nil {
		return MappingTemplate{}, err
	}
	t, err := buildTemplate(sc, name, m, headers)
	if err != nil {
		return MappingTemplate{}, err
	}

	t.ID = existing.ID
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = s.now()
	if err := s.templates.UpdateTemplate(ctx, t); err != nil {
		return MappingTemplate{}, err
	}
	return t, nil
}

// DeleteTemplate removes a template.
func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	if s.templates == nil {
		return fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return s.templates.DeleteTemplate(ctx, id)
}

// MatchTemplates scores every template of schemaKey against headers and
// returns those at or above TemplateMatchThreshold, best first.
func (s *Service) MatchTemplates(ctx context.Context, schemaKey string, headers []string) ([]TemplateMatch, error) {
	templates, err := s.ListTemplates(ctx, schemaKey)
	if err != nil {
		return nil, err
	}

	matches := make([]TemplateMatch, 0)
	for _, t := range templates {
		if score := MatchTemplateHeaders(headers, t.Headers); score >= TemplateMatchThreshold {
			matches = append(matches, TemplateMatch{Template: t, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches, nil
}

// seedMapping returns the auto mapping of headers, overlaid with the best
// matching template when there is one. Template lookup failures fall back
// to the auto mapping.
func (s *Service) seedMapping(ctx context.Context, sc *Schema, headers []string) (ColumnMapping, *TemplateRef) {
	mapping := AutoMap(headers, sc)
	if s.templates == nil {
		return mapping, nil
	}

	matches, err := s.MatchTemplates(ctx, sc.Key, headers)
	if err != nil {
		logging.FromContext(ctx).Warn("template lookup failed", "schema", sc.Key, "error", err)
		return mapping, nil
	}
	if len(matches) == 0 {
		return mapping, nil
	}

	best := matches[0]
	return ApplyTemplate(mapping, headers, best.Template, sc),
		&TemplateRef{ID: best.Template.ID, Name: best.Template.Name, Score: best.Score}
}
