package core

import (
	"time"

	"github.com/JonMunkholm/crmimport/internal/parse"
)

// RunView is the client-facing snapshot of a run. It carries the preview
// and reports but not the full parsed table.
type RunView struct {
	ID        string        `json:"id"`
	Schema    string        `json:"schema"`
	Version   string        `json:"aliasVersion"`
	State     State         `json:"state"`
	FileName  string        `json:"fileName"`
	Format    parse.Format  `json:"format"`
	Headers   []string      `json:"headers"`
	RowCount  int           `json:"rowCount"`
	Mapping   ColumnMapping `json:"mapping"`
	Template  *TemplateRef  `json:"template,omitempty"`
	Conflicts []string      `json:"conflicts,omitempty"`
	Preview   []PreviewRow  `json:"preview,omitempty"`
	Enrich    *EnrichStats  `json:"enrich,omitempty"`
	Report    *Report       `json:"report,omitempty"`
	Dedup     *DedupSummary `json:"dedup,omitempty"`
	Commit    *CommitResult `json:"commit,omitempty"`
	Summary   *Summary      `json:"summary,omitempty"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// PreviewRow pairs a projected record with the problems validation would
// report for it.
type PreviewRow struct {
	Row      int             `json:"row"`
	Record   CandidateRecord `json:"record"`
	Errors   []string        `json:"errors"`
	Warnings []string        `json:"warnings"`
}

// DedupSummary is DedupResult without the records.
type DedupSummary struct {
	ToCreate       int `json:"toCreate"`
	DuplicateCount int `json:"duplicateCount"`
	InFileCount    int `json:"inFileCount"`
}

// NewRunView builds the snapshot of r.
func NewRunView(r Run, sc *Schema) RunView {
	v := RunView{
		ID:        r.ID,
		Schema:    r.SchemaKey,
		Version:   sc.Version,
		State:     r.State,
		FileName:  r.FileName,
		Format:    r.Format,
		Headers:   r.Table.Headers,
		RowCount:  len(r.Table.Rows),
		Mapping:   r.Mapping,
		Template:  r.Template,
		Report:    r.Report,
		Commit:    r.Result,
		Summary:   r.Summary,
		Error:     r.Err,
		CreatedAt: r.CreatedAt,
	}
	if r.Mapping != nil {
		v.Conflicts = r.Mapping.ConflictWarnings(r.Table.Headers)
	}
	for i, rec := range r.Preview {
		o := Validate(rec, sc)
		v.Preview = append(v.Preview, PreviewRow{Row: i + 1, Record: rec, Errors: o.Errors, Warnings: o.Warnings})
	}
	if r.Report != nil {
		stats := r.Enrich
		v.Enrich = &stats
	}
	if r.Dedup != nil {
		v.Dedup = &DedupSummary{
			ToCreate:       len(r.Dedup.ToCreate),
			DuplicateCount: r.Dedup.DuplicateCount,
			InFileCount:    r.Dedup.InFileCount,
		}
	}
	return v
}
