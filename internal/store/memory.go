// Package store provides core.Store implementations: PostgreSQL for the
// running service and an in-memory store for tests and dry runs.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/crmimport/internal/core"
)

// Memory keeps records per schema table in process memory. It also keeps
// the audit trail and mapping templates.
type Memory struct {
	mu        sync.RWMutex
	tables    map[string][]core.Record
	audit     []core.AuditEntry
	templates map[string]core.MappingTemplate
	failErr   error
	now       func() time.Time
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		tables:    make(map[string][]core.Record),
		templates: make(map[string]core.MappingTemplate),
		now:       time.Now,
	}
}

// Seed adds existing records to a table without going through CreateMany.
func (m *Memory) Seed(table string, records ...core.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.tables[table] = append(m.tables[table], copyRecord(r))
	}
}

// FailCreates makes every CreateMany fail with err until called with nil.
func (m *Memory) FailCreates(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

// Records returns a copy of a table's records in insertion order.
func (m *Memory) Records(table string) []core.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.Record, len(m.tables[table]))
	for i, r := range m.tables[table] {
		out[i] = copyRecord(r)
	}
	return out
}

// List returns copies of all records of the schema's table.
func (m *Memory) List(ctx context.Context, s *core.Schema) ([]core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.Records(s.Table), nil
}

// CreateMany stores all records or, on failure, none of them.
func (m *Memory) CreateMany(ctx context.Context, s *core.Schema, records []core.CandidateRecord) ([]core.CreatedRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failErr != nil {
		return nil, m.failErr
	}

	now := m.now()
	created := make([]core.CreatedRecord, len(records))
	rows := make([]core.Record, len(records))
	for i, rec := range records {
		id := uuid.New().String()
		fields := rec.Fields()
		created[i] = core.CreatedRecord{ID: id, Fields: fields, CreatedAt: now}

		row := copyRecord(fields)
		row["id"] = id
		row["created_at"] = now
		rows[i] = row
	}
	m.tables[s.Table] = append(m.tables[s.Table], rows...)
	return created, nil
}

// LogAudit appends an entry to the audit trail.
func (m *Memory) LogAudit(ctx context.Context, e core.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = m.now()
	}
	m.audit = append(m.audit, e)
	return nil
}

// ListAudit returns matching entries, newest first.
func (m *Memory) ListAudit(ctx context.Context, f core.AuditFilter) ([]core.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.AuditEntry, 0)
	for i := len(m.audit) - 1; i >= 0; i-- {
		e := m.audit[i]
		if f.Schema != "" && e.Schema != f.Schema {
			continue
		}
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// CreateTemplate stores a new template.
func (m *Memory) CreateTemplate(ctx context.Context, t core.MappingTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.templateNameTaken(t) {
		return fmt.Errorf("%w: %s", core.ErrTemplateExists, t.Name)
	}
	m.templates[t.ID] = copyTemplate(t)
	return nil
}

// UpdateTemplate replaces a stored template.
func (m *Memory) UpdateTemplate(ctx context.Context, t core.MappingTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[t.ID]; !ok {
		return fmt.Errorf("%w: %s", core.ErrTemplateNotFound, t.ID)
	}
	if m.templateNameTaken(t) {
		return fmt.Errorf("%w: %s", core.ErrTemplateExists, t.Name)
	}
	m.templates[t.ID] = copyTemplate(t)
	return nil
}

// GetTemplate returns a copy of one template.
func (m *Memory) GetTemplate(ctx context.Context, id string) (core.MappingTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[id]
	if !ok {
		return core.MappingTemplate{}, fmt.Errorf("%w: %s", core.ErrTemplateNotFound, id)
	}
	return copyTemplate(t), nil
}

// ListTemplates returns the templates of a schema ordered by name.
func (m *Memory) ListTemplates(ctx context.Context, schema string) ([]core.MappingTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.MappingTemplate, 0)
	for _, t := range m.templates {
		if t.Schema == schema {
			out = append(out, copyTemplate(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeleteTemplate removes a template.
func (m *Memory) DeleteTemplate(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[id]; !ok {
		return fmt.Errorf("%w: %s", core.ErrTemplateNotFound, id)
	}
	delete(m.templates, id)
	return nil
}

// templateNameTaken reports whether another template of t's schema has its
// name. Callers hold m.mu.
func (m *Memory) templateNameTaken(t core.MappingTemplate) bool {
	for id, other := range m.templates {
		if id != t.ID && other.Schema == t.Schema && other.Name == t.Name {
			return true
		}
	}
	return false
}

func copyTemplate(t core.MappingTemplate) core.MappingTemplate {
	t.Mapping = t.Mapping.Clone()
	t.Headers = append([]string(nil), t.Headers...)
	return t
}

func copyRecord(r core.Record) core.Record {
	out := make(core.Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
