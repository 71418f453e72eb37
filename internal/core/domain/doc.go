// Package domain contains the core entities of the invoice audit pipeline.
//
// All entities are immutable value types created fresh for each
// document-processing request. The pipeline is a pure transform:
// InvoiceRecord and LedgerEntry come in, ReportRow comes out, and nothing
// is mutated after construction.
package domain
