// Package core provides the business logic for CRM tabular imports.
//
// This package is independent of any UI or transport layer. It can be used by
// web handlers, CLI tools, or tests without modification.
//
// # Pipeline
//
// An import moves a file through six stages, each a plain function that can
// be called on its own:
//
//  1. [parse.Parse] turns CSV, VCF, XML or JSON bytes into a [RawTable].
//  2. [AutoMap] suggests a [ColumnMapping] from source headers to schema fields.
//  3. [Project] coerces one row into a [CandidateRecord].
//  4. [Enrich] optionally fills blank enum fields through a [Classifier].
//  5. [Validate] produces a [ValidationOutcome] of errors and warnings.
//  6. [Dedupe] drops records whose natural key already exists, then [Commit]
//     writes the rest through a [Store] in one all-or-nothing call.
//
// [Pipeline.Run] chains the stages for the CLI and tests. [Service] keeps
// interactive runs in memory between HTTP requests and drives the [Run]
// state machine.
//
// # Schemas
//
// Schemas are registered at init time using [Register]:
//
//	core.Register(&core.Schema{
//	    Key:        "contacts",
//	    NaturalKey: "email",
//	    Fields: []core.FieldSpec{
//	        {Name: "email", Type: core.FieldEmail, Aliases: []string{"email", "e-mail"}},
//	        {Name: "full_name", Type: core.FieldText, Required: true, Aliases: []string{"nome", "name"}},
//	    },
//	})
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - FILE001-FILE006: File errors (empty, size, format, malformed)
//   - MAP001-MAP002: Mapping errors (unknown field, nothing mapped)
//   - VAL001: Nothing left to import
//   - RUN001-RUN005: Run errors (expired, wrong step, busy, unknown entity)
//   - DB001-DB006: Database errors (duplicates, constraints, connections)
//   - AI001: Classifier errors
package core
