package store

// postgres.go stores each schema in its own table:
//
//	id uuid PRIMARY KEY, one column per field, created_at timestamptz
//
// Numbers are double precision, lists are text[] and everything else is
// text. Field names are used as column names.

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/crmimport/internal/config"
	"github.com/JonMunkholm/crmimport/internal/core"
)

// AuditTable is the table holding the import audit trail.
const AuditTable = "import_audit"

// Postgres is a core.Store, core.AuditLog and core.TemplateStore backed by a
// pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgres wraps an open pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, now: time.Now}
}

// Connect opens a pool sized by cfg and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the tables of schemas, the audit table and the
// template table if they do not exist. All statements run in one transaction.
func (p *Postgres) EnsureSchema(ctx context.Context, schemas []*core.Schema) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmts := []string{auditDDL, templateDDL}
	for _, s := range schemas {
		stmts = append(stmts, tableDDL(s)...)
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// List returns the id and natural key of every stored record.
func (p *Postgres) List(ctx context.Context, s *core.Schema) ([]core.Record, error) {
	cols := []string{"id"}
	query := "SELECT id FROM " + ident(s.Table)
	if s.NaturalKey != "" {
		cols = append(cols, s.NaturalKey)
		query = fmt.Sprintf("SELECT id, %s FROM %s WHERE %s IS NOT NULL",
			ident(s.NaturalKey), ident(s.Table), ident(s.NaturalKey))
	}

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.Table, err)
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.Table, err)
		}
		rec := make(core.Record, len(cols))
		for i, c := range cols {
			rec[c] = plainValue(values[i])
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CreateMany copies all records into the schema table inside a single
// transaction. Either every record is stored or none is.
func (p *Postgres) CreateMany(ctx context.Context, s *core.Schema, records []core.CandidateRecord) ([]core.CreatedRecord, error) {
	if len(records) == 0 {
		return []core.CreatedRecord{}, nil
	}

	now := p.now().UTC()
	cols := insertColumns(s)
	rows := make([][]any, len(records))
	created := make([]core.CreatedRecord, len(records))

	for i, rec := range records {
		id := uuid.New()
		row := make([]any, 0, len(cols))
		row = append(row, pgtype.UUID{Bytes: id, Valid: true})
		for _, f := range s.Fields {
			row = append(row, columnValue(rec, f))
		}
		row = append(row, now)

		rows[i] = row
		created[i] = core.CreatedRecord{ID: id.String(), Fields: rec.Fields(), CreatedAt: now}
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	n, err := tx.CopyFrom(ctx, pgx.Identifier{s.Table}, cols, pgx.CopyFromRows(rows))
	if err != nil {
		return nil, fmt.Errorf("copy into %s: %w", s.Table, err)
	}
	if int(n) != len(rows) {
		return nil, fmt.Errorf("copy into %s: wrote %d of %d rows", s.Table, n, len(rows))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit %s: %w", s.Table, err)
	}
	return created, nil
}

// LogAudit inserts one audit entry.
func (p *Postgres) LogAudit(ctx context.Context, e core.AuditEntry) error {
	var id pgtype.UUID
	if err := id.Scan(e.ID); err != nil {
		id = pgtype.UUID{Bytes: uuid.New(), Valid: true}
	}
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = p.now()
	}

	_, err := p.pool.Exec(ctx, insertAuditSQL,
		id,
		string(e.Action),
		string(e.Severity),
		e.Schema,
		toPgText(e.RunID),
		toPgText(e.FileName),
		toPgText(e.IPAddress),
		toPgText(e.UserAgent),
		e.Imported,
		e.Rejected,
		e.Duplicates,
		toPgText(e.Message),
		pgtype.Timestamptz{Time: createdAt, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListAudit returns matching audit entries, newest first.
func (p *Postgres) ListAudit(ctx context.Context, f core.AuditFilter) ([]core.AuditEntry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = core.DefaultAuditLimit
	}

	rows, err := p.pool.Query(ctx, selectAuditSQL, f.Schema, string(f.Action), limit)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	entries := make([]core.AuditEntry, 0)
	for rows.Next() {
		var (
			id                                  pgtype.UUID
			action, severity, schema            string
			runID, fileName, ip, userAgent, msg pgtype.Text
			imported, rejected, duplicates      int32
			createdAt                           pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &action, &severity, &schema, &runID, &fileName, &ip, &userAgent,
			&imported, &rejected, &duplicates, &msg, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, core.AuditEntry{
			ID:         uuid.UUID(id.Bytes).String(),
			Action:     core.AuditAction(action),
			Severity:   core.AuditSeverity(severity),
			Schema:     schema,
			RunID:      runID.String,
			FileName:   fileName.String,
			IPAddress:  ip.String,
			UserAgent:  userAgent.String,
			Imported:   int(imported),
			Rejected:   int(rejected),
			Duplicates: int(duplicates),
			Message:    msg.String,
			CreatedAt:  createdAt.Time,
		})
	}
	return entries, rows.Err()
}

const auditDDL = `CREATE TABLE IF NOT EXISTS import_audit (
	id          uuid PRIMARY KEY,
	action      text NOT NULL,
	severity    text NOT NULL,
	schema_key  text NOT NULL,
	run_id      text,
	file_name   text,
	ip_address  text,
	user_agent  text,
	imported    integer NOT NULL DEFAULT 0,
	rejected    integer NOT NULL DEFAULT 0,
	duplicates  integer NOT NULL DEFAULT 0,
	message     text,
	created_at  timestamptz NOT NULL DEFAULT now()
)`

const insertAuditSQL = `INSERT INTO import_audit
	(id, action, severity, schema_key, run_id, file_name, ip_address, user_agent,
	 imported, rejected, duplicates, message, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

const selectAuditSQL = `SELECT id, action, severity, schema_key, run_id, file_name, ip_address, user_agent,
	imported, rejected, duplicates, message, created_at
FROM import_audit
WHERE ($1 = '' OR schema_key = $1) AND ($2 = '' OR action = $2)
ORDER BY created_at DESC
LIMIT $3`

// tableDDL returns the statements creating a schema's table and, when it
// has a natural key, a case-insensitive index on it.
func tableDDL(s *core.Schema) []string {
	cols := []string{"id uuid PRIMARY KEY"}
	for _, f := range s.Fields {
		cols = append(cols, ident(f.Name)+" "+columnType(f.Type))
	}
	cols = append(cols, "created_at timestamptz NOT NULL DEFAULT now()")

	stmts := []string{fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", ident(s.Table), strings.Join(cols, ",\n\t"))}
	if s.NaturalKey != "" {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (lower(%s))",
			ident(s.Table+"_"+s.NaturalKey+"_idx"), ident(s.Table), ident(s.NaturalKey)))
	}
	return stmts
}

func columnType(t core.FieldType) string {
	switch t {
	case core.FieldNumber:
		return "double precision"
	case core.FieldList:
		return "text[]"
	default:
		return "text"
	}
}

// insertColumns lists the COPY columns: id, the fields in order, created_at.
func insertColumns(s *core.Schema) []string {
	cols := make([]string, 0, len(s.Fields)+2)
	cols = append(cols, "id")
	cols = append(cols, s.FieldNames()...)
	return append(cols, "created_at")
}

// columnValue converts a field of rec for COPY. Absent fields and
// unparsed numbers are NULL.
func columnValue(rec core.CandidateRecord, f core.FieldSpec) any {
	v, ok := rec[f.Name]
	if !ok {
		return nil
	}
	switch f.Type {
	case core.FieldNumber:
		if v.Kind != core.KindNumber || v.Unparsed {
			return nil
		}
		return v.Number
	case core.FieldList:
		if len(v.List) == 0 {
			return nil
		}
		return v.List
	default:
		return v.Text
	}
}

// plainValue turns driver values into the types core.Record carries.
func plainValue(v any) any {
	switch x := v.(type) {
	case [16]byte:
		return uuid.UUID(x).String()
	case pgtype.UUID:
		if !x.Valid {
			return nil
		}
		return uuid.UUID(x.Bytes).String()
	default:
		return v
	}
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// toPgText converts a string to pgtype.Text. Empty strings become NULL.
func toPgText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

