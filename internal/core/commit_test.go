package core

import (
	"context"
	"errors"
	"testing"
)

func TestCommit(t *testing.T) {
	s := peopleSchema()
	store := &fakeStore{}
	toCreate := []CandidateRecord{rec("full_name", "Ana"), rec("full_name", "Bruno")}

	res := Commit(context.Background(), store, s, toCreate)

	if !res.Success {
		t.Fatalf("Success = false, message %q", res.Message)
	}
	if res.CreatedCount == nil || *res.CreatedCount != 2 {
		t.Errorf("CreatedCount = %v, want 2", res.CreatedCount)
	}
	if res.Message != "2 people created" {
		t.Errorf("Message = %q, want %q", res.Message, "2 people created")
	}
	if len(res.CreatedRecords) != 2 || res.CreatedRecords[0].Fields["full_name"] != "Ana" {
		t.Errorf("CreatedRecords = %+v", res.CreatedRecords)
	}
	if store.createCalls() != 1 {
		t.Errorf("CreateMany called %d times, want exactly once", store.createCalls())
	}
}

func TestCommit_StoreFailure(t *testing.T) {
	store := &fakeStore{createErr: errors.New("connection reset by peer")}

	res := Commit(context.Background(), store, peopleSchema(), []CandidateRecord{rec("full_name", "Ana")})

	if res.Success {
		t.Error("Success = true, want false")
	}
	if res.CreatedCount != nil {
		t.Errorf("CreatedCount = %d, want nil on failure", *res.CreatedCount)
	}
	if res.Message != "connection reset by peer" {
		t.Errorf("Message = %q, want the store error verbatim", res.Message)
	}
	if store.createCalls() != 1 {
		t.Errorf("CreateMany called %d times, want 1 (no retry)", store.createCalls())
	}
}

func TestSummarize(t *testing.T) {
	two := 2
	some := []CandidateRecord{rec("full_name", "Ana"), rec("full_name", "Bruno")}

	tests := []struct {
		name        string
		rep         Report
		dedup       DedupResult
		res         CommitResult
		wantOutcome Outcome
		wantMessage string
	}{
		{
			name:        "nothing at all",
			wantOutcome: OutcomeNothingToImport,
			wantMessage: "nothing to import",
		},
		{
			name:        "everything rejected or duplicated",
			rep:         Report{Invalid: 3},
			dedup:       DedupResult{DuplicateCount: 1},
			wantOutcome: OutcomeNothingToImport,
			wantMessage: "nothing to import (3 rejected, 1 duplicated)",
		},
		{
			name:        "store failure",
			rep:         Report{Valid: 2},
			dedup:       DedupResult{ToCreate: some},
			res:         CommitResult{Success: false, Message: "deadlock detected"},
			wantOutcome: OutcomeFailed,
			wantMessage: "import failed: deadlock detected",
		},
		{
			name:        "imported",
			rep:         Report{Valid: 3, Invalid: 1},
			dedup:       DedupResult{ToCreate: some, DuplicateCount: 1},
			res:         CommitResult{Success: true, CreatedCount: &two},
			wantOutcome: OutcomeImported,
			wantMessage: "2 imported, 1 rejected, 1 duplicated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.rep, tt.dedup, tt.res)
			if got.Outcome != tt.wantOutcome {
				t.Errorf("Outcome = %q, want %q", got.Outcome, tt.wantOutcome)
			}
			if got.String() != tt.wantMessage {
				t.Errorf("Message = %q, want %q", got.String(), tt.wantMessage)
			}
		})
	}
}

func TestSummarize_FailureImportsNothing(t *testing.T) {
	sum := Summarize(Report{Valid: 2}, DedupResult{ToCreate: []CandidateRecord{rec("full_name", "Ana")}},
		CommitResult{Success: false, Message: "boom"})
	if sum.Imported != 0 {
		t.Errorf("Imported = %d, want 0 after a failed commit", sum.Imported)
	}
}

func TestFailedSummary(t *testing.T) {
	sum := FailedSummary(Report{Invalid: 2}, errors.New("list existing people: connection refused"))

	if sum.Outcome != OutcomeFailed || sum.Rejected != 2 {
		t.Errorf("FailedSummary() = %+v", sum)
	}
	if sum.Message != "import failed: list existing people: connection refused" {
		t.Errorf("Message = %q", sum.Message)
	}
}
