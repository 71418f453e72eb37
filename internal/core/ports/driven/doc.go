// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - ExtractionSource: extracts invoice records from a source document
//   - LedgerEntryStore: looks up declared-expense rows per document
//   - ReportWriter: exports report rows to a tabular file
//
// # Optional Interfaces
//
// These can be nil - the pipeline degrades gracefully:
//
//   - PageCounter: PDF page counting (rows carry TotalPages = 0 without it)
//   - RunStore: batch run history persistence
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: any adapter package
package driven
