// Package core provides the business logic for shapefile import operations.
//
// This package contains all domain logic independent of any UI or transport
// layer. The web form and the command-line tool both drive it through
// [Service].
//
// # Flow
//
// One submission moves through these stages:
//
//	Idle -> Validating -> CheckingExistence -> Redirected -> Running -> Restored -> Succeeded | Failed
//
//  1. [Validator] turns raw [FormInput] into a trusted [ImportRequest],
//     stopping at the first failed check.
//  2. A [TableChecker] looks for the destination table in the configured
//     schema (public). An existing table aborts the import; nothing is
//     overwritten.
//  3. A [Capture] is opened for this invocation only, the [PipelineRunner]
//     runs shp2pgsql piped into psql, and the capture is restored on every
//     path, panics included.
//  4. A nonzero exit becomes a [PipelineError] carrying everything the tools
//     wrote to standard error. Capture files are removed afterwards.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError] and
// folded into a [Report] by [Service.Submit]:
//
//   - VAL001-VAL006: Validation errors (missing fields, syntax, ranges)
//   - DB001-DB002, TBL001: Database errors (connection, catalog, table exists)
//   - PIPE001-PIPE002, IO001: Tool and capture errors
//   - IMP001-IMP002: Import errors (busy, interrupted)
//
// # Concurrency
//
// Output capture is scoped to each invocation, so imports can overlap. An
// [ImportLimiter] bounds how many pipelines run at once.
package core
