package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportRow is the flattened unit the aggregator emits: invoice fields,
// ledger aggregates, validation outcomes and the final classification,
// ready for tabular export. Every processed document yields at least one
// row, a placeholder row when extraction found nothing.
type ReportRow struct {
	// FileName is the source document file name.
	FileName string

	// TotalPages is the page count of the source PDF (0 when unknown).
	TotalPages int

	// PageNumber is the page the invoice was found on. Nil on
	// placeholder rows.
	PageNumber *int

	// ProviderTaxID is the provider CNPJ. Empty on placeholder rows.
	ProviderTaxID string

	// DocumentType is the recognised document type. Empty on placeholder
	// rows.
	DocumentType string

	// InvoiceNumber is the extracted invoice number, nil when missing.
	InvoiceNumber *string

	// TotalValue is the extracted invoice total, nil when missing.
	TotalValue *decimal.Decimal

	// LedgerDocumentNumber is the document number of the matched ledger
	// entry. Nil when the record is unmatched or the ledger was empty.
	LedgerDocumentNumber *string

	// LedgerDocumentValue is the sum of declared values across every
	// ledger entry for the document. Nil when the ledger result is empty.
	LedgerDocumentValue *decimal.Decimal

	// LedgerPaidValueTotal is the sum of paid values across every ledger
	// entry for the document. Nil when the ledger result is empty.
	LedgerPaidValueTotal *decimal.Decimal

	// Validation holds the three tri-state checks for the row.
	Validation ValidationResult

	// Classification is the terminal label for the row.
	Classification Classification

	// Degraded marks rows produced while the ledger store was
	// unavailable; such rows can never be Cleared.
	Degraded bool

	// Diagnostic carries an operator-visible failure note (extraction
	// error, ledger outage). Empty on clean rows.
	Diagnostic string
}

// DocumentResult is the outcome of one document's pipeline run.
type DocumentResult struct {
	// Document is the source PDF that was analysed.
	Document SourceDocument

	// Rows is the emitted report rows, one per extracted invoice or a
	// single placeholder row. Never empty.
	Rows []ReportRow

	// Degraded reports whether the ledger store was unavailable while
	// the document was processed.
	Degraded bool
}

// Run records one batch execution for the run-history store.
type Run struct {
	// ID is the unique run identifier.
	ID string

	// StartedAt and FinishedAt bound the batch execution.
	StartedAt  time.Time
	FinishedAt time.Time

	// Documents is the number of source PDFs processed.
	Documents int

	// Rows is the number of report rows produced.
	Rows int

	// Output is the path of the exported spreadsheet, if one was written.
	Output string
}
