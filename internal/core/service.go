package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/crmimport/internal/config"
	"github.com/JonMunkholm/crmimport/internal/logging"
	"github.com/JonMunkholm/crmimport/internal/parse"
)

// Fallbacks for zero ImportConfig values.
const (
	DefaultRunTTL        = 30 * time.Minute
	DefaultCommitTimeout = 2 * time.Minute
	DefaultPreviewRows   = 10
)

// ClassifierProvider returns the classifier for a schema, or nil for none.
type ClassifierProvider func(s *Schema) Classifier

// Service drives interactive import runs: each HTTP call advances one run
// through its state machine. Runs live in memory until they finish, are
// discarded, or expire.
type Service struct {
	store       Store
	classifiers ClassifierProvider
	cfg         config.ImportConfig
	limiter     *CommitLimiter
	audit       AuditLog
	templates   TemplateStore
	now         func() time.Time

	mu   sync.RWMutex
	runs map[string]*activeRun
}

// activeRun serializes operations on one run.
type activeRun struct {
	mu      sync.Mutex
	run     Run
	expires time.Time
}

// NewService creates a new Service instance. classifiers may be nil.
func NewService(store Store, classifiers ClassifierProvider, cfg config.ImportConfig) *Service {
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = DefaultRunTTL
	}
	if cfg.CommitTimeout <= 0 {
		cfg.CommitTimeout = DefaultCommitTimeout
	}
	if cfg.PreviewRows <= 0 {
		cfg.PreviewRows = DefaultPreviewRows
	}

	svc := &Service{
		store:       store,
		classifiers: classifiers,
		cfg:         cfg,
		limiter:     NewCommitLimiter(cfg.MaxConcurrentCommits, cfg.CommitWait),
		now:         time.Now,
		runs:        make(map[string]*activeRun),
	}
	if a, ok := store.(AuditLog); ok {
		svc.audit = a
	}
	if t, ok := store.(TemplateStore); ok {
		svc.templates = t
	}
	return svc
}

// SchemaInfo describes a schema for API clients.
type SchemaInfo struct {
	Key        string      `json:"key"`
	Label      string      `json:"label"`
	Version    string      `json:"version"`
	NaturalKey string      `json:"naturalKey,omitempty"`
	Fields     []FieldInfo `json:"fields"`
}

// FieldInfo describes one target field.
type FieldInfo struct {
	Name       string    `json:"name"`
	Label      string    `json:"label"`
	Type       FieldType `json:"type"`
	Required   bool      `json:"required"`
	EnumValues []string  `json:"enumValues,omitempty"`
}

// DescribeSchema converts a Schema into its API form.
func DescribeSchema(s *Schema) SchemaInfo {
	info := SchemaInfo{Key: s.Key, Label: s.Label, Version: s.Version, NaturalKey: s.NaturalKey}
	for _, f := range s.Fields {
		info.Fields = append(info.Fields, FieldInfo{
			Name:       f.Name,
			Label:      f.Label,
			Type:       f.Type,
			Required:   f.Required,
			EnumValues: f.EnumValues,
		})
	}
	return info
}

// ListSchemas returns information about all registered schemas.
func (s *Service) ListSchemas() []SchemaInfo {
	all := All()
	infos := make([]SchemaInfo, len(all))
	for i, sc := range all {
		infos[i] = DescribeSchema(sc)
	}
	return infos
}

func (s *Service) pipeline(ctx context.Context, sc *Schema, runID string) *Pipeline {
	var c Classifier
	if s.classifiers != nil {
		c = s.classifiers(sc)
	}
	return &Pipeline{
		Schema:        sc,
		Store:         s.store,
		Classifier:    c,
		ClassifyLimit: s.cfg.ClassifyConcurrency,
		Logger:        logging.WithFields(ctx, "run_id", runID, "schema", sc.Key),
	}
}

// StartRun parses an uploaded file and returns a run that is mapped (from the
// best matching template, else by aliases) and previewed. Parse failures and empty files are returned as errors; the
// failed run is audited but not kept.
func (s *Service) StartRun(ctx context.Context, schemaKey, fileName string, data []byte) (RunView, error) {
	sc, err := Lookup(schemaKey)
	if err != nil {
		return RunView{}, err
	}
	if s.cfg.MaxFileSize > 0 && int64(len(data)) > s.cfg.MaxFileSize {
		return RunView{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, len(data), s.cfg.MaxFileSize)
	}

	s.sweep()

	id := uuid.New().String()
	log := logging.WithFields(ctx, "run_id", id, "schema", sc.Key, "file", fileName)

	run := NewRun(id, sc.Key, s.now())
	format := parse.Detect(fileName, data)
	if run, err = run.SelectFile(fileName, format); err != nil {
		return RunView{}, err
	}

	table, err := parse.Parse(format, data)
	if err != nil {
		log.Info("parse failed", "format", format, "error", err)
		return RunView{}, s.rejectFile(ctx, run, fmt.Errorf("%w: %s: %w", ErrUnreadableFile, fileName, err))
	}
	if run, err = run.Parsed(table); err != nil {
		log.Info("empty file", "format", format)
		return RunView{}, s.rejectFile(ctx, run, err)
	}

	mapping, tmpl := s.seedMapping(ctx, sc, table.Headers)
	if run, err = run.Mapped(mapping); err != nil {
		return RunView{}, err
	}
	run.Template = tmpl
	if run, err = run.Previewed(Preview(table, mapping, sc, s.cfg.PreviewRows)); err != nil {
		return RunView{}, err
	}

	log.Debug("run started", "format", format, "rows", len(table.Rows),
		"headers", len(table.Headers), "mapped", mapping.Mapped())

	s.mu.Lock()
	s.runs[id] = &activeRun{run: run, expires: s.now().Add(s.cfg.RunTTL)}
	ActiveRuns.Set(float64(len(s.runs)))
	s.mu.Unlock()

	return NewRunView(run, sc), nil
}

// rejectFile ends a run whose file could not be used and audits it. cause is
// returned unchanged.
func (s *Service) rejectFile(ctx context.Context, run Run, cause error) error {
	failed, err := run.ParseFailed(cause)
	if err != nil {
		return cause
	}
	RunsTotal.WithLabelValues(failed.SchemaKey, string(OutcomeFailed)).Inc()
	s.logAudit(ctx, NewAuditEntry(ctx, ActionImportFailed, failed, s.now()))
	return cause
}

// GetRun returns a snapshot of a run.
func (s *Service) GetRun(runID string) (RunView, error) {
	var view RunView
	err := s.withRun(runID, func(ar *activeRun, sc *Schema) error {
		view = NewRunView(ar.run, sc)
		return nil
	})
	return view, err
}

// UpdateMapping replaces the run's mapping with a user edit and refreshes the
// preview. Headers missing from m keep their current target.
func (s *Service) UpdateMapping(ctx context.Context, runID string, m ColumnMapping) (RunView, error) {
	var view RunView
	err := s.withRun(runID, func(ar *activeRun, sc *Schema) error {
		merged := ar.run.Mapping.Clone()
		for h, t := range m {
			merged.Set(h, t)
		}
		if err := ValidateMapping(merged, ar.run.Table.Headers, sc); err != nil {
			return err
		}

		next, err := ar.run.Mapped(merged)
		if err != nil {
			return err
		}
		if next, err = next.Previewed(Preview(next.Table, merged, sc, s.cfg.PreviewRows)); err != nil {
			return err
		}
		ar.run = next
		view = NewRunView(next, sc)
		return nil
	})
	return view, err
}

// Preview re-projects the first n rows (the configured preview size when
// n <= 0) under the current mapping. Like a mapping edit, it discards an
// earlier validation report.
func (s *Service) Preview(ctx context.Context, runID string, n int) (RunView, error) {
	if n <= 0 {
		n = s.cfg.PreviewRows
	}
	var view RunView
	err := s.withRun(runID, func(ar *activeRun, sc *Schema) error {
		next, err := ar.run.Mapped(ar.run.Mapping)
		if err != nil {
			return err
		}
		if next, err = next.Previewed(Preview(next.Table, next.Mapping, sc, n)); err != nil {
			return err
		}
		ar.run = next
		view = NewRunView(next, sc)
		return nil
	})
	return view, err
}

// Validate projects, enriches and validates every row of the run.
func (s *Service) Validate(ctx context.Context, runID string) (RunView, error) {
	var view RunView
	err := s.withRun(runID, func(ar *activeRun, sc *Schema) error {
		if err := s.validate(ctx, ar, sc); err != nil {
			return err
		}
		view = NewRunView(ar.run, sc)
		return nil
	})
	return view, err
}

func (s *Service) validate(ctx context.Context, ar *activeRun, sc *Schema) error {
	next, err := ar.run.BeginValidation()
	if err != nil {
		return err
	}
	rep, stats := s.pipeline(ctx, sc, ar.run.ID).Check(ctx, next.Table, next.Mapping)
	if next, err = next.Validated(rep, stats); err != nil {
		return err
	}
	ar.run = next
	return nil
}

// Commit deduplicates and persists the valid records. A run that is mapped
// or previewed is validated first. The returned view carries the summary;
// store failures end the run in the failed state rather than as an error.
func (s *Service) Commit(ctx context.Context, runID string) (RunView, error) {
	var view RunView
	err := s.withRun(runID, func(ar *activeRun, sc *Schema) error {
		if ar.run.State == StateMapped || ar.run.State == StatePreviewed {
			if err := s.validate(ctx, ar, sc); err != nil {
				return err
			}
		}

		next, err := ar.run.BeginCommit()
		if err != nil {
			return err
		}

		if err := s.limiter.Acquire(ctx); err != nil {
			return err
		}
		defer s.limiter.Release()

		commitCtx, cancel := context.WithTimeout(ctx, s.cfg.CommitTimeout)
		defer cancel()

		p := s.pipeline(ctx, sc, ar.run.ID)
		dedup, res, sum := p.Finish(commitCtx, *next.Report, false)
		recordRun(sc.Key, *next.Report, dedup, sum)

		if next, err = next.Finish(dedup, res, sum); err != nil {
			return err
		}
		ar.run = next
		view = NewRunView(next, sc)
		s.logAudit(ctx, NewAuditEntry(ctx, auditAction(sum), next, s.now()))
		return nil
	})
	if err == nil {
		s.forgetAfter(runID, time.Minute)
	}
	return view, err
}

// Discard drops a run, as when the wizard dialog is closed. Discarding an
// unfinished run is recorded in the audit trail.
func (s *Service) Discard(ctx context.Context, runID string) error {
	s.mu.Lock()
	ar, ok := s.runs[runID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	delete(s.runs, runID)
	ActiveRuns.Set(float64(len(s.runs)))
	s.mu.Unlock()

	ar.mu.Lock()
	run := ar.run
	ar.mu.Unlock()

	if !run.State.Terminal() {
		s.logAudit(ctx, NewAuditEntry(ctx, ActionImportDiscard, run, s.now()))
	}
	return nil
}

// AuditTrail returns recent audit entries, newest first. It is empty when
// the store keeps no audit log.
func (s *Service) AuditTrail(ctx context.Context, filter AuditFilter) ([]AuditEntry, error) {
	if s.audit == nil {
		return []AuditEntry{}, nil
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultAuditLimit
	}
	return s.audit.ListAudit(ctx, filter)
}

// logAudit writes an audit entry. Failures are logged, never returned: the
// import itself already happened.
func (s *Service) logAudit(ctx context.Context, e AuditEntry) {
	if s.audit == nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if err := s.audit.LogAudit(ctx, e); err != nil {
		logging.FromContext(ctx).Warn("audit log failed", "run_id", e.RunID, "action", e.Action, "error", err)
	}
}

// CommitStatus reports the commit limiter state.
func (s *Service) CommitStatus() CommitLimiterStatus {
	return s.limiter.Status()
}

// WaitForCommits blocks until in-flight commits finish or ctx is done. Used
// during graceful shutdown.
func (s *Service) WaitForCommits(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// withRun runs fn with the run locked. The run's TTL is extended on access.
func (s *Service) withRun(runID string, fn func(ar *activeRun, sc *Schema) error) error {
	s.mu.RLock()
	ar, ok := s.runs[runID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	ar.mu.Lock()
	defer ar.mu.Unlock()

	if s.now().After(ar.expires) {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	sc, err := Lookup(ar.run.SchemaKey)
	if err != nil {
		return err
	}
	if err := fn(ar, sc); err != nil {
		return err
	}
	ar.expires = s.now().Add(s.cfg.RunTTL)
	return nil
}

// sweep removes expired runs.
func (s *Service) sweep() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ar := range s.runs {
		if ar.mu.TryLock() {
			expired := now.After(ar.expires)
			ar.mu.Unlock()
			if expired {
				delete(s.runs, id)
			}
		}
	}
	ActiveRuns.Set(float64(len(s.runs)))
}

// forgetAfter removes a finished run from tracking after a delay, so the
// client can still fetch the summary.
func (s *Service) forgetAfter(runID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.runs, runID)
		ActiveRuns.Set(float64(len(s.runs)))
		s.mu.Unlock()
	})
}
