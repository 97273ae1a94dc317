package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Pipeline runs the import stages for one schema against one store.
type Pipeline struct {
	Schema     *Schema
	Store      Store
	Classifier Classifier // nil behaves like NoopClassifier

	// ClassifyLimit caps concurrent classifier calls; 0 means no limit.
	ClassifyLimit int

	Logger *slog.Logger
}

// Result is everything a pipeline run produced.
type Result struct {
	Mapping ColumnMapping `json:"mapping"`
	Enrich  EnrichStats   `json:"enrich"`
	Report  Report        `json:"report"`
	Dedup   DedupResult   `json:"dedup"`
	Commit  CommitResult  `json:"commit"`
	Summary Summary       `json:"summary"`
}

// RunOptions tunes Pipeline.Run.
type RunOptions struct {
	// DryRun stops after deduplication; the store is read but not written.
	DryRun bool
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Check projects, enriches and validates every row of t.
func (p *Pipeline) Check(ctx context.Context, t RawTable, m ColumnMapping) (Report, EnrichStats) {
	candidates := ProjectAll(t, m, p.Schema)
	enriched, stats := Enrich(ctx, candidates, p.Schema, p.Classifier, p.ClassifyLimit)
	if stats.Requested > 0 {
		recordClassification(p.Schema.Key, stats)
	}
	return ValidateAll(enriched, p.Schema), stats
}

// Deduplicate fetches existing keys from the store and filters the valid
// records of rep.
func (p *Pipeline) Deduplicate(ctx context.Context, rep Report) (DedupResult, error) {
	valid := rep.ValidRecords()
	if p.Schema.NaturalKey == "" || len(valid) == 0 {
		return Dedupe(valid, KeySet{}, p.Schema), nil
	}

	existing, err := p.Store.List(ctx, p.Schema)
	if err != nil {
		return DedupResult{}, fmt.Errorf("list existing %s: %w", p.Schema.Key, err)
	}
	return Dedupe(valid, BuildKeySet(existing, p.Schema), p.Schema), nil
}

// Finish deduplicates and commits a validated report. The store is not
// called when nothing is left to create or when dryRun is set.
func (p *Pipeline) Finish(ctx context.Context, rep Report, dryRun bool) (DedupResult, CommitResult, Summary) {
	log := p.logger().With("schema", p.Schema.Key)

	dedup, err := p.Deduplicate(ctx, rep)
	if err != nil {
		log.Warn("dedup prefetch failed", "error", err)
		res := CommitResult{Success: false, Message: err.Error()}
		return dedup, res, FailedSummary(rep, err)
	}

	if len(dedup.ToCreate) == 0 {
		sum := Summarize(rep, dedup, CommitResult{})
		log.Info("nothing to import", "rejected", sum.Rejected, "duplicates", sum.Duplicates)
		return dedup, CommitResult{}, sum
	}

	if dryRun {
		n := len(dedup.ToCreate)
		res := CommitResult{Success: true, Message: "dry run", CreatedCount: &n}
		sum := Summarize(rep, dedup, res)
		sum.DryRun = true
		sum.Message = fmt.Sprintf("dry run: %d would be imported, %d rejected, %d duplicated",
			n, sum.Rejected, sum.Duplicates)
		return dedup, res, sum
	}

	start := time.Now()
	res := Commit(ctx, p.Store, p.Schema, dedup.ToCreate)
	observeCommit(p.Schema.Key, time.Since(start), res.Success)

	sum := Summarize(rep, dedup, res)
	if res.Success {
		log.Info("import committed", "imported", sum.Imported, "rejected", sum.Rejected,
			"duplicates", sum.Duplicates, "duration", time.Since(start))
	} else {
		log.Warn("import failed", "error", res.Message, "records", len(dedup.ToCreate))
	}
	return dedup, res, sum
}

// Run executes the whole chain on a parsed table. A nil mapping is replaced
// by AutoMap. The returned error is non-nil only for input problems (empty
// table, invalid mapping); store failures are reported in the Summary.
func (p *Pipeline) Run(ctx context.Context, t RawTable, m ColumnMapping, opts RunOptions) (*Result, error) {
	if t.Empty() {
		return nil, ErrEmptyFile
	}
	if m == nil {
		m = AutoMap(t.Headers, p.Schema)
	}
	if err := ValidateMapping(m, t.Headers, p.Schema); err != nil {
		return nil, err
	}

	rep, stats := p.Check(ctx, t, m)
	dedup, res, sum := p.Finish(ctx, rep, opts.DryRun)
	recordRun(p.Schema.Key, rep, dedup, sum)

	return &Result{
		Mapping: m,
		Enrich:  stats,
		Report:  rep,
		Dedup:   dedup,
		Commit:  res,
		Summary: sum,
	}, nil
}
