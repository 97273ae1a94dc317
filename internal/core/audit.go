package core

import (
	"context"
	"time"
)

// AuditAction represents the type of import event being audited.
type AuditAction string

const (
	ActionImportCommit  AuditAction = "import_commit"
	ActionImportEmpty   AuditAction = "import_empty"
	ActionImportFailed  AuditAction = "import_failed"
	ActionImportDiscard AuditAction = "import_discard"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow    AuditSeverity = "low"
	SeverityMedium AuditSeverity = "medium"
	SeverityHigh   AuditSeverity = "high"
)

// DefaultAuditLimit caps audit queries without an explicit limit.
const DefaultAuditLimit = 50

// AuditEntry represents a single audit log entry. One is written for every
// run that finishes or is discarded.
type AuditEntry struct {
	ID         string        `json:"id"`
	Action     AuditAction   `json:"action"`
	Severity   AuditSeverity `json:"severity"`
	Schema     string        `json:"schema"`
	RunID      string        `json:"runId"`
	FileName   string        `json:"fileName,omitempty"`
	IPAddress  string        `json:"ipAddress,omitempty"`
	UserAgent  string        `json:"userAgent,omitempty"`
	Imported   int           `json:"imported"`
	Rejected   int           `json:"rejected"`
	Duplicates int           `json:"duplicates"`
	Message    string        `json:"message,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// AuditFilter contains filtering options for querying audit logs.
type AuditFilter struct {
	Schema string
	Action AuditAction
	Limit  int
}

// AuditLog persists the import audit trail. A Store may implement it.
type AuditLog interface {
	LogAudit(ctx context.Context, entry AuditEntry) error
	ListAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

// determineSeverity returns the appropriate severity for an action.
func determineSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionImportCommit:
		return SeverityHigh
	case ActionImportFailed:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// auditAction picks the action for a finished run's summary.
func auditAction(sum Summary) AuditAction {
	switch sum.Outcome {
	case OutcomeImported:
		return ActionImportCommit
	case OutcomeFailed:
		return ActionImportFailed
	default:
		return ActionImportEmpty
	}
}

// NewAuditEntry describes r for the audit trail. Client details come from
// ctx; see WithClient.
func NewAuditEntry(ctx context.Context, action AuditAction, r Run, now time.Time) AuditEntry {
	client := ClientFromContext(ctx)
	e := AuditEntry{
		Action:    action,
		Severity:  determineSeverity(action),
		Schema:    r.SchemaKey,
		RunID:     r.ID,
		FileName:  r.FileName,
		IPAddress: client.IP,
		UserAgent: client.UserAgent,
		CreatedAt: now,
	}
	if r.Summary != nil {
		e.Imported = r.Summary.Imported
		e.Rejected = r.Summary.Rejected
		e.Duplicates = r.Summary.Duplicates
		e.Message = r.Summary.Message
	} else if r.Err != "" {
		e.Message = r.Err
	}
	return e
}
