package core

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// ============================================================================
// Conversion Benchmarks
// ============================================================================

// BenchmarkCoerceNumber benchmarks number cleaning, hit once per numeric cell.
func BenchmarkCoerceNumber(b *testing.B) {
	testCases := []string{
		"123",
		"€ 320.000",
		"1.250,50",
		"  999  ",
		"T3",
		"85 m²",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			CoerceNumber(tc)
		}
	}
}

// BenchmarkCleanCell benchmarks cell trimming and quote stripping.
func BenchmarkCleanCell(b *testing.B) {
	testCases := []string{
		"Ana Silva",
		`"quoted value"`,
		"   padded   ",
		"",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			CleanCell(tc)
		}
	}
}

// ============================================================================
// Pipeline Stage Benchmarks
// ============================================================================

// BenchmarkAutoMap benchmarks alias matching for a wide header row.
func BenchmarkAutoMap(b *testing.B) {
	s := peopleSchema()
	headers := make([]string, 40)
	for i := range headers {
		headers[i] = fmt.Sprintf("Coluna %d", i)
	}
	headers[3], headers[17], headers[31] = "Nome completo", "E-mail", "Tipo de cliente"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		AutoMap(headers, s)
	}
}

// BenchmarkProjectValidate benchmarks projection plus validation of a
// 1000-row table.
func BenchmarkProjectValidate(b *testing.B) {
	s := peopleSchema()
	t := benchTable(1000)
	m := AutoMap(t.Headers, s)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		ValidateAll(ProjectAll(t, m, s), s)
	}
}

// BenchmarkDedupe benchmarks key matching against a store of 10000 records.
func BenchmarkDedupe(b *testing.B) {
	s := peopleSchema()
	existing := make([]Record, 10000)
	for i := range existing {
		existing[i] = Record{"email": fmt.Sprintf("Person%d@Example.com", i)}
	}
	keys := BuildKeySet(existing, s)

	t := benchTable(1000)
	valid := ProjectAll(t, AutoMap(t.Headers, s), s)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Dedupe(valid, keys, s)
	}
}

// BenchmarkPipelineRun benchmarks a whole dry run without a classifier.
func BenchmarkPipelineRun(b *testing.B) {
	s := peopleSchema()
	t := benchTable(1000)
	p := &Pipeline{Schema: s, Store: &fakeStore{}}
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := p.Run(ctx, t, nil, RunOptions{DryRun: true}); err != nil {
			b.Fatal(err)
		}
	}
}

// ============================================================================
// Helpers
// ============================================================================

func benchTable(rows int) RawTable {
	headers := []string{"Nome", "Email", "Empresa", "Tipo", "Orçamento", "Tags"}
	cells := make([][]string, rows)
	for i := range cells {
		cells[i] = []string{
			fmt.Sprintf("Person %d", i),
			fmt.Sprintf("person%d@example.com", i*2),
			"Acme " + strings.Repeat("x", i%5),
			"cliente",
			fmt.Sprintf("%d.000", i),
			"vip, 2024",
		}
	}
	return table(headers, cells...)
}
