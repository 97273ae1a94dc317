package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/crmimport/internal/core"
)

// TemplateTable is the table holding saved mapping templates.
const TemplateTable = "import_mapping_templates"

const uniqueViolation = "23505"

// CreateTemplate inserts a template.
func (p *Postgres) CreateTemplate(ctx context.Context, t core.MappingTemplate) error {
	id, err := templateID(t.ID)
	if err != nil {
		return err
	}
	mapping, headers, err := encodeTemplate(t)
	if err != nil {
		return err
	}

	_, err = p.pool.Exec(ctx, insertTemplateSQL, id, t.Schema, t.Name, mapping, headers,
		pgtype.Timestamptz{Time: t.CreatedAt, Valid: true},
		pgtype.Timestamptz{Time: t.UpdatedAt, Valid: true},
	)
	if err != nil {
		return templateWriteError(t, err)
	}
	return nil
}

// UpdateTemplate replaces the name, mapping and headers of a template.
func (p *Postgres) UpdateTemplate(ctx context.Context, t core.MappingTemplate) error {
	id, err := templateID(t.ID)
	if err != nil {
		return err
	}
	mapping, headers, err := encodeTemplate(t)
	if err != nil {
		return err
	}

	tag, err := p.pool.Exec(ctx, updateTemplateSQL, id, t.Name, mapping, headers,
		pgtype.Timestamptz{Time: t.UpdatedAt, Valid: true},
	)
	if err != nil {
		return templateWriteError(t, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", core.ErrTemplateNotFound, t.ID)
	}
	return nil
}

// GetTemplate loads one template by id.
func (p *Postgres) GetTemplate(ctx context.Context, id string) (core.MappingTemplate, error) {
	pgID, err := templateID(id)
	if err != nil {
		return core.MappingTemplate{}, err
	}

	t, err := scanTemplate(p.pool.QueryRow(ctx, selectTemplateSQL+" WHERE id = $1", pgID))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.MappingTemplate{}, fmt.Errorf("%w: %s", core.ErrTemplateNotFound, id)
	}
	return t, err
}

// ListTemplates returns the templates of a schema ordered by name.
func (p *Postgres) ListTemplates(ctx context.Context, schema string) ([]core.MappingTemplate, error) {
	rows, err := p.pool.Query(ctx, selectTemplateSQL+" WHERE schema_key = $1 ORDER BY name", schema)
	if err != nil {
		return nil, fmt.Errorf("query mapping templates: %w", err)
	}
	defer rows.Close()

	out := make([]core.MappingTemplate, 0)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTemplate removes a template.
func (p *Postgres) DeleteTemplate(ctx context.Context, id string) error {
	pgID, err := templateID(id)
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx, "DELETE FROM import_mapping_templates WHERE id = $1", pgID)
	if err != nil {
		return fmt.Errorf("delete mapping template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", core.ErrTemplateNotFound, id)
	}
	return nil
}

// templateID parses id; a malformed id cannot name a stored template.
func templateID(id string) (pgtype.UUID, error) {
	var out pgtype.UUID
	if err := out.Scan(id); err != nil {
		return out, fmt.Errorf("%w: %s", core.ErrTemplateNotFound, id)
	}
	return out, nil
}

func encodeTemplate(t core.MappingTemplate) (mapping, headers []byte, err error) {
	if mapping, err = json.Marshal(t.Mapping); err != nil {
		return nil, nil, fmt.Errorf("encode template mapping: %w", err)
	}
	if headers, err = json.Marshal(t.Headers); err != nil {
		return nil, nil, fmt.Errorf("encode template headers: %w", err)
	}
	return mapping, headers, nil
}

func templateWriteError(t core.MappingTemplate, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", core.ErrTemplateExists, t.Name)
	}
	return fmt.Errorf("save mapping template: %w", err)
}

func scanTemplate(row pgx.Row) (core.MappingTemplate, error) {
	var (
		id                   pgtype.UUID
		schema, name         string
		mapping, headers     []byte
		createdAt, updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &schema, &name, &mapping, &headers, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.MappingTemplate{}, err
		}
		return core.MappingTemplate{}, fmt.Errorf("scan mapping template: %w", err)
	}

	t := core.MappingTemplate{
		ID:        uuid.UUID(id.Bytes).String(),
		Schema:    schema,
		Name:      name,
		CreatedAt: createdAt.Time,
		UpdatedAt: updatedAt.Time,
	}
	if err := json.Unmarshal(mapping, &t.Mapping); err != nil {
		return core.MappingTemplate{}, fmt.Errorf("decode template mapping: %w", err)
	}
	if err := json.Unmarshal(headers, &t.Headers); err != nil {
		return core.MappingTemplate{}, fmt.Errorf("decode template headers: %w", err)
	}
	return t, nil
}

const templateDDL = `CREATE TABLE IF NOT EXISTS import_mapping_templates (
	id          uuid PRIMARY KEY,
	schema_key  text NOT NULL,
	name        text NOT NULL,
	mapping     jsonb NOT NULL,
	headers     jsonb NOT NULL,
	created_at  timestamptz NOT NULL DEFAULT now(),
	updated_at  timestamptz NOT NULL DEFAULT now(),
	UNIQUE (schema_key, name)
)`

const insertTemplateSQL = `INSERT INTO import_mapping_templates
	(id, schema_key, name, mapping, headers, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

const updateTemplateSQL = `UPDATE import_mapping_templates
SET name = $2, mapping = $3, headers = $4, updated_at = $5
WHERE id = $1`

const selectTemplateSQL = `SELECT id, schema_key, name, mapping, headers, created_at, updated_at
FROM import_mapping_templates`
