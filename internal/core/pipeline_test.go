package core

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func newTestPipeline(store Store) *Pipeline {
	return &Pipeline{Schema: peopleSchema(), Store: store}
}

func TestPipeline_Run(t *testing.T) {
	store := &fakeStore{existing: []Record{{"email": "ana@example.com"}}}
	p := newTestPipeline(store)

	tbl := table([]string{"Nome", "Email", "Tipo"},
		[]string{"Ana Silva", "ANA@example.com", "cliente"},
		[]string{"Bruno Alves", "bruno@example.com", "lead"},
		[]string{"", "carla@example.com", "lead"},
		[]string{"Bruno Duplicado", "bruno@example.com", "lead"},
	)

	res, err := p.Run(context.Background(), tbl, nil, RunOptions{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Mapping["Nome"] != "full_name" {
		t.Errorf("auto mapping = %v", res.Mapping)
	}
	if res.Report.Valid != 3 || res.Report.Invalid != 1 {
		t.Errorf("report valid/invalid = %d/%d, want 3/1", res.Report.Valid, res.Report.Invalid)
	}
	if len(res.Dedup.ToCreate) != 1 || res.Dedup.ToCreate[0].Text("full_name") != "Bruno Alves" {
		t.Errorf("ToCreate = %v, want only Bruno Alves", res.Dedup.ToCreate)
	}
	if res.Dedup.DuplicateCount != 2 {
		t.Errorf("DuplicateCount = %d, want 2", res.Dedup.DuplicateCount)
	}
	if res.Summary.Outcome != OutcomeImported || res.Summary.Imported != 1 {
		t.Errorf("Summary = %+v", res.Summary)
	}
	if res.Summary.Message != "1 imported, 1 rejected, 2 duplicated" {
		t.Errorf("Message = %q", res.Summary.Message)
	}
	if store.createCalls() != 1 {
		t.Errorf("CreateMany called %d times, want 1", store.createCalls())
	}
}

func TestPipeline_Run_InputErrors(t *testing.T) {
	p := newTestPipeline(&fakeStore{})

	if _, err := p.Run(context.Background(), table([]string{"Nome"}), nil, RunOptions{}); !errors.Is(err, ErrEmptyFile) {
		t.Errorf("empty table error = %v, want ErrEmptyFile", err)
	}

	tbl := table([]string{"Notas"}, []string{"x"})
	if _, err := p.Run(context.Background(), tbl, nil, RunOptions{}); !errors.Is(err, ErrNothingMapped) {
		t.Errorf("unmapped table error = %v, want ErrNothingMapped", err)
	}

	bad := ColumnMapping{"Notas": "surname"}
	if _, err := p.Run(context.Background(), tbl, bad, RunOptions{}); !errors.Is(err, ErrUnknownField) {
		t.Errorf("bad mapping error = %v, want ErrUnknownField", err)
	}
}

func TestPipeline_CommitIsAllOrNothing(t *testing.T) {
	store := &fakeStore{createErr: errors.New("unique constraint violated")}
	p := newTestPipeline(store)

	tbl := table([]string{"Nome", "Email"},
		[]string{"Ana", "ana@example.com"},
		[]string{"Bruno", "bruno@example.com"},
	)

	res, err := p.Run(context.Background(), tbl, nil, RunOptions{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Commit.Success || res.Commit.CreatedCount != nil {
		t.Errorf("Commit = %+v, want failure without count", res.Commit)
	}
	if res.Summary.Outcome != OutcomeFailed || res.Summary.Imported != 0 {
		t.Errorf("Summary = %+v", res.Summary)
	}
	if !strings.Contains(res.Summary.Message, "unique constraint violated") {
		t.Errorf("Message = %q, want the store error", res.Summary.Message)
	}
	if len(store.existing) != 0 {
		t.Errorf("store holds %d records after a failed commit", len(store.existing))
	}
}

func TestPipeline_NothingToImportSkipsStore(t *testing.T) {
	store := &fakeStore{existing: []Record{{"email": "ana@example.com"}}}
	p := newTestPipeline(store)

	tbl := table([]string{"Nome", "Email"},
		[]string{"Ana", "ana@example.com"},
		[]string{"", "nobody@example.com"},
	)

	res, err := p.Run(context.Background(), tbl, nil, RunOptions{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Summary.Outcome != OutcomeNothingToImport {
		t.Errorf("Outcome = %q, want nothing_to_import", res.Summary.Outcome)
	}
	if res.Summary.Message != "nothing to import (1 rejected, 1 duplicated)" {
		t.Errorf("Message = %q", res.Summary.Message)
	}
	if store.createCalls() != 0 {
		t.Error("CreateMany should not be called with nothing to create")
	}
}

func TestPipeline_DryRun(t *testing.T) {
	store := &fakeStore{}
	p := newTestPipeline(store)

	tbl := table([]string{"Nome", "Email"}, []string{"Ana", "ana@example.com"})

	res, err := p.Run(context.Background(), tbl, nil, RunOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if store.createCalls() != 0 {
		t.Error("dry run wrote to the store")
	}
	if !res.Summary.DryRun || res.Summary.Message != "dry run: 1 would be imported, 0 rejected, 0 duplicated" {
		t.Errorf("Summary = %+v", res.Summary)
	}
}

func TestPipeline_ListFailure(t *testing.T) {
	store := &fakeStore{listErr: errors.New("connection refused")}
	p := newTestPipeline(store)

	tbl := table([]string{"Nome", "Email"}, []string{"Ana", "ana@example.com"})

	res, err := p.Run(context.Background(), tbl, nil, RunOptions{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Summary.Outcome != OutcomeFailed {
		t.Errorf("Outcome = %q, want failed", res.Summary.Outcome)
	}
	if res.Summary.Message != "import failed: list existing people: connection refused" {
		t.Errorf("Message = %q", res.Summary.Message)
	}
	if store.createCalls() != 0 {
		t.Error("CreateMany should not be called when listing fails")
	}
}

func TestPipeline_NoNaturalKeySkipsList(t *testing.T) {
	store := &fakeStore{listErr: errors.New("should not be called")}
	p := newTestPipeline(store)
	p.Schema.NaturalKey = ""

	tbl := table([]string{"Nome"}, []string{"Ana"}, []string{"Ana"})

	res, err := p.Run(context.Background(), tbl, nil, RunOptions{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if store.listCalls != 0 {
		t.Errorf("List called %d times, want 0", store.listCalls)
	}
	if res.Summary.Imported != 2 {
		t.Errorf("Imported = %d, want 2", res.Summary.Imported)
	}
}

func TestPipeline_ClassifierFillsBeforeValidation(t *testing.T) {
	store := &fakeStore{}
	p := newTestPipeline(store)
	p.Schema.Fields[3].Required = true
	p.Classifier = ClassifierFunc(func(ctx context.Context, s *Schema, text string) (Suggestion, error) {
		return Suggestion{Fields: map[string]string{"kind": "lead"}}, nil
	})

	tbl := table([]string{"Nome", "Email"}, []string{"Ana", "ana@example.com"})

	res, err := p.Run(context.Background(), tbl, nil, RunOptions{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Report.Valid != 1 {
		t.Errorf("Valid = %d, want 1 after classification; errors %v", res.Report.Valid, res.Report.Outcomes[0].Errors)
	}
	if res.Enrich.Filled != 1 {
		t.Errorf("Enrich = %+v", res.Enrich)
	}
}
