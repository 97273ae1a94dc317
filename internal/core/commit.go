package core

import (
	"context"
	"fmt"
)

// Store is the persistence backend for imported records.
type Store interface {
	// List returns existing records of the schema, at least their natural
	// key field.
	List(ctx context.Context, s *Schema) ([]Record, error)

	// CreateMany persists all records or none of them.
	CreateMany(ctx context.Context, s *Schema, records []CandidateRecord) ([]CreatedRecord, error)
}

// CommitResult is the outcome of one bulk create. CreatedCount is nil unless
// the call succeeded, so a failed commit never reports a partial count.
type CommitResult struct {
	Success        bool            `json:"success"`
	Message        string          `json:"message,omitempty"`
	CreatedCount   *int            `json:"createdCount,omitempty"`
	CreatedRecords []CreatedRecord `json:"createdRecords,omitempty"`
}

// Commit submits toCreate to the store in a single call. A store error is
// reported verbatim in Message with Success false; there is no retry.
func Commit(ctx context.Context, store Store, s *Schema, toCreate []CandidateRecord) CommitResult {
	created, err := store.CreateMany(ctx, s, toCreate)
	if err != nil {
		return CommitResult{Success: false, Message: err.Error()}
	}

	n := len(created)
	return CommitResult{
		Success:        true,
		Message:        fmt.Sprintf("%d %s created", n, s.Key),
		CreatedCount:   &n,
		CreatedRecords: created,
	}
}

// Outcome is the single result every run ends with.
type Outcome string

const (
	OutcomeNothingToImport Outcome = "nothing_to_import"
	OutcomeImported        Outcome = "imported"
	OutcomeFailed          Outcome = "failed"
)

// Summary is the user-facing result of a run.
type Summary struct {
	Outcome    Outcome `json:"outcome"`
	Imported   int     `json:"imported"`
	Rejected   int     `json:"rejected"`
	Duplicates int     `json:"duplicates"`
	DryRun     bool    `json:"dryRun,omitempty"`
	Message    string  `json:"message"`
}

// Summarize builds the summary for a finished run. res is ignored when
// nothing was left to create.
func Summarize(rep Report, dedup DedupResult, res CommitResult) Summary {
	sum := Summary{Rejected: rep.Invalid, Duplicates: dedup.DuplicateCount}

	switch {
	case len(dedup.ToCreate) == 0:
		sum.Outcome = OutcomeNothingToImport
		sum.Message = "nothing to import"
		if sum.Rejected > 0 || sum.Duplicates > 0 {
			sum.Message = fmt.Sprintf("nothing to import (%d rejected, %d duplicated)", sum.Rejected, sum.Duplicates)
		}
	case !res.Success:
		sum.Outcome = OutcomeFailed
		sum.Message = "import failed: " + res.Message
	default:
		sum.Outcome = OutcomeImported
		if res.CreatedCount != nil {
			sum.Imported = *res.CreatedCount
		}
		sum.Message = fmt.Sprintf("%d imported, %d rejected, %d duplicated", sum.Imported, sum.Rejected, sum.Duplicates)
	}
	return sum
}

// FailedSummary reports a run that could not reach the commit step, for
// example when existing records could not be listed.
func FailedSummary(rep Report, err error) Summary {
	return Summary{
		Outcome:  OutcomeFailed,
		Rejected: rep.Invalid,
		Message:  "import failed: " + err.Error(),
	}
}

// String returns the summary message.
func (s Summary) String() string {
	return s.Message
}
