package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/crmimport/internal/classify"
	"github.com/JonMunkholm/crmimport/internal/core"
	"github.com/JonMunkholm/crmimport/internal/store"
)

// maxProblemRows caps the problem table; the summary still counts every row.
const maxProblemRows = 50

type importOptions struct {
	Schema    string
	File      string
	Overrides []string
	DryRun    bool
}

var importOpts importOptions

func init() {
	f := importCmd.Flags()
	f.StringVar(&importOpts.Schema, "schema", "", "target schema (contacts or properties)")
	f.StringVar(&importOpts.File, "file", "", "file to import")
	f.StringArrayVar(&importOpts.Overrides, "map", nil, "override a column: header=field (empty field ignores it)")
	f.BoolVar(&importOpts.DryRun, "dry-run", false, "validate and deduplicate without creating records")
	_ = importCmd.MarkFlagRequired("schema")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Validate, deduplicate and create the records of a file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		records, closeStore, err := store.Open(ctx, cfg.Database, core.All())
		if err != nil {
			return err
		}
		defer closeStore()

		p := &core.Pipeline{Store: records, ClassifyLimit: cfg.Import.ClassifyConcurrency, Logger: slog.Default()}
		if cfg.Classifier.Enabled {
			p.Classifier = classify.New(cfg.Classifier)
		}

		res, err := runImport(ctx, cmd.OutOrStdout(), p, importOpts)
		if err != nil {
			return err
		}
		return outcomeError(res.Summary)
	},
}

// outcomeError gives the exit status of an import: nil when records were
// created (or would be, on a dry run).
func outcomeError(sum core.Summary) error {
	switch sum.Outcome {
	case core.OutcomeFailed:
		return errors.New(sum.Message)
	case core.OutcomeNothingToImport:
		return fmt.Errorf("%w: %d rejected, %d duplicated", core.ErrNothingToImport, sum.Rejected, sum.Duplicates)
	}
	return nil
}

// runImport reads opts.File and runs it through p. p.Schema is set from
// opts.Schema; a classifier is kept only when the schema classifies.
func runImport(ctx context.Context, w io.Writer, p *core.Pipeline, opts importOptions) (*core.Result, error) {
	sc, err := core.Lookup(opts.Schema)
	if err != nil {
		return nil, err
	}
	p.Schema = sc
	if len(sc.Classification) == 0 {
		p.Classifier = nil
	}

	table, format, err := readTable(opts.File)
	if err != nil {
		return nil, err
	}

	mapping := core.AutoMap(table.Headers, sc)
	overrides, err := parseOverrides(opts.Overrides)
	if err != nil {
		return nil, err
	}
	for h, field := range overrides {
		mapping.Set(h, field)
	}

	fmt.Fprintf(w, "%s: %d rows (%s)\n", opts.File, len(table.Rows), format)
	printMapping(w, table, mapping)

	res, err := p.Run(ctx, table, mapping, core.RunOptions{DryRun: opts.DryRun})
	if err != nil {
		return nil, err
	}

	printProblems(w, res.Report)
	printSummary(w, res.Summary)
	return res, nil
}

// parseOverrides turns header=field pairs into a mapping edit.
func parseOverrides(pairs []string) (core.ColumnMapping, error) {
	m := make(core.ColumnMapping, len(pairs))
	for _, pair := range pairs {
		header, field, ok := strings.Cut(pair, "=")
		header = strings.TrimSpace(header)
		if !ok || header == "" {
			return nil, fmt.Errorf("invalid --map %q: want header=field", pair)
		}
		m[header] = strings.TrimSpace(field)
	}
	return m, nil
}

func printProblems(w io.Writer, rep core.Report) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Row", "Errors", "Warnings"})
	table.SetAutoWrapText(false)

	shown := 0
	for _, o := range rep.Outcomes {
		if len(o.Errors) == 0 && len(o.Warnings) == 0 {
			continue
		}
		if shown == maxProblemRows {
			break
		}
		table.Append([]string{
			strconv.Itoa(o.Row),
			strings.Join(o.Errors, "; "),
			strings.Join(o.Warnings, "; "),
		})
		shown++
	}
	if shown > 0 {
		table.Render()
	}

	fmt.Fprintf(w, "%d valid, %d invalid, %d with warnings\n", rep.Valid, rep.Invalid, rep.Warnings)
}

func printSummary(w io.Writer, sum core.Summary) {
	c := color.New(color.FgGreen, color.Bold)
	switch sum.Outcome {
	case core.OutcomeFailed:
		c = color.New(color.FgRed, color.Bold)
	case core.OutcomeNothingToImport:
		c = color.New(color.FgYellow)
	}
	c.Fprintln(w, sum.Message)
}
