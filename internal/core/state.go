package core

// state.go models one import run as a value with pure transitions.
//
//	idle -> file_selected -> parsed -> mapped <-> (edits) -> previewed
//	     -> validating -> validated -> committing -> committed | failed
//
// Every transition returns a new Run and never mutates the receiver's
// maps, so a caller holding an older snapshot is not affected. Mapping edits
// loop back to mapped from mapped, previewed or validated. committed and
// failed are terminal; a new import starts a new Run.

import (
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/crmimport/internal/parse"
)

// ErrInvalidTransition is returned when a run is asked to move to a state
// that is not reachable from its current one.
var ErrInvalidTransition = errors.New("invalid import step")

// State is the position of a run in the import wizard.
type State string

const (
	StateIdle         State = "idle"
	StateFileSelected State = "file_selected"
	StateParsed       State = "parsed"
	StateMapped       State = "mapped"
	StatePreviewed    State = "previewed"
	StateValidating   State = "validating"
	StateValidated    State = "validated"
	StateCommitting   State = "committing"
	StateCommitted    State = "committed"
	StateFailed       State = "failed"
)

var transitions = map[State][]State{
	StateIdle:         {StateFileSelected},
	StateFileSelected: {StateParsed, StateFailed},
	StateParsed:       {StateMapped},
	StateMapped:       {StateMapped, StatePreviewed, StateValidating},
	StatePreviewed:    {StateMapped, StateValidating},
	StateValidating:   {StateValidated},
	StateValidated:    {StateMapped, StateCommitting},
	StateCommitting:   {StateCommitted, StateFailed},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateFailed
}

// Run is one import run. Tables and reports are owned by the run; callers
// treat them as read-only.
type Run struct {
	ID        string
	SchemaKey string
	State     State
	FileName  string
	Format    parse.Format
	Table     RawTable
	Mapping   ColumnMapping
	Template  *TemplateRef
	Preview   []CandidateRecord
	Enrich    EnrichStats
	Report    *Report
	Dedup     *DedupResult
	Result    *CommitResult
	Summary   *Summary
	Err       string
	CreatedAt time.Time
}

// NewRun returns an idle run.
func NewRun(id, schemaKey string, now time.Time) Run {
	return Run{ID: id, SchemaKey: schemaKey, State: StateIdle, CreatedAt: now}
}

func (r Run) to(next State) (Run, error) {
	if !CanTransition(r.State, next) {
		return r, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.State, next)
	}
	r.State = next
	return r, nil
}

// SelectFile records the chosen file.
func (r Run) SelectFile(name string, format parse.Format) (Run, error) {
	next, err := r.to(StateFileSelected)
	if err != nil {
		return r, err
	}
	next.FileName = name
	next.Format = format
	return next, nil
}

// Parsed stores the parser output. An empty table leaves the run unchanged
// and returns ErrEmptyFile.
func (r Run) Parsed(t RawTable) (Run, error) {
	if r.State == StateFileSelected && t.Empty() {
		return r, ErrEmptyFile
	}
	next, err := r.to(StateParsed)
	if err != nil {
		return r, err
	}
	next.Table = t
	return next, nil
}

// ParseFailed ends a run whose file could not be read.
func (r Run) ParseFailed(cause error) (Run, error) {
	next, err := r.to(StateFailed)
	if err != nil {
		return r, err
	}
	next.Err = cause.Error()
	return next, nil
}

// Mapped installs a mapping, discarding any preview and validation derived
// from the previous one.
func (r Run) Mapped(m ColumnMapping) (Run, error) {
	next, err := r.to(StateMapped)
	if err != nil {
		return r, err
	}
	next.Mapping = m.Clone()
	next.Preview = nil
	next.Report = nil
	next.Enrich = EnrichStats{}
	return next, nil
}

// Previewed stores the projected sample rows.
func (r Run) Previewed(preview []CandidateRecord) (Run, error) {
	next, err := r.to(StatePreviewed)
	if err != nil {
		return r, err
	}
	next.Preview = preview
	return next, nil
}

// BeginValidation marks the run as validating.
func (r Run) BeginValidation() (Run, error) {
	return r.to(StateValidating)
}

// Validated stores the validation report and enrichment counters.
func (r Run) Validated(rep Report, stats EnrichStats) (Run, error) {
	next, err := r.to(StateValidated)
	if err != nil {
		return r, err
	}
	next.Report = &rep
	next.Enrich = stats
	return next, nil
}

// BeginCommit marks the run as committing.
func (r Run) BeginCommit() (Run, error) {
	return r.to(StateCommitting)
}

// Finish ends a committing run. The run is committed unless the summary
// outcome is failed.
func (r Run) Finish(dedup DedupResult, res CommitResult, sum Summary) (Run, error) {
	target := StateCommitted
	if sum.Outcome == OutcomeFailed {
		target = StateFailed
	}
	next, err := r.to(target)
	if err != nil {
		return r, err
	}
	next.Dedup = &dedup
	next.Result = &res
	next.Summary = &sum
	if target == StateFailed {
		next.Err = sum.Message
	}
	return next, nil
}
