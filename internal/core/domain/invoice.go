package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// InvoiceRecord is one invoice (nota fiscal) extracted from a source
// document by the document-understanding service. A single PDF may yield
// zero, one or many records.
type InvoiceRecord struct {
	// SourceDocument is the file name of the PDF the record came from.
	SourceDocument string

	// PageNumber is the page where the invoice was found (1-based).
	PageNumber int

	// ProviderTaxID is the service provider's CNPJ, digits only.
	ProviderTaxID string

	// DocumentType is the recognised document type as reported by the
	// extraction service (e.g. "Nota Fiscal", "DANFE", "Fatura Telefonia").
	DocumentType string

	// InvoiceNumber is the invoice number as printed on the document.
	// Nil when the number was absent or unreadable.
	InvoiceNumber *string

	// TotalValue is the invoice grand total. Nil when the value was
	// missing or unparseable (a MalformedValue is never coerced to zero).
	TotalValue *decimal.Decimal
}

// NormalizeInvoiceNumber is the default normalisation applied before
// comparing an invoice number with a ledger document number: surrounding
// whitespace and leading zeros are stripped. An all-zero number collapses
// to "0" rather than the empty string.
func NormalizeInvoiceNumber(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}
