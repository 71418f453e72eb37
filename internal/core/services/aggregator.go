package services

import (
	"github.com/osinfo-labs/fiscalia/internal/core/domain"
)

// Aggregator flattens one validated, classified pair into a ReportRow.
// It owns the placeholder semantics: a pair without a record still
// produces a full row so no processed document is ever dropped silently.
type Aggregator struct {
	rule MatchRule
}

// NewAggregator creates an aggregator sharing the matcher's rule so the
// matched-entry selection uses the same normalisation as the match
// itself.
func NewAggregator(rule MatchRule) *Aggregator {
	if rule.Normalize == nil {
		rule.Normalize = domain.NormalizeInvoiceNumber
	}
	return &Aggregator{rule: rule}
}

// Row assembles the report row for one pair. Ledger aggregate fields are
// the sums across every entry for the document; the ledger document
// number is taken from the matched entry when one exists, otherwise from
// the first returned entry (mirroring how reviewers read the original
// audit sheets), and is nil when the ledger result is empty.
func (a *Aggregator) Row(
	doc domain.SourceDocument,
	pair domain.MatchedPair,
	result domain.ValidationResult,
	class domain.Classification,
	degraded bool,
	diagnostic string,
) domain.ReportRow {
	row := domain.ReportRow{
		FileName:       doc.Name,
		TotalPages:     doc.Pages,
		Validation:     result,
		Classification: class,
		Degraded:       degraded,
		Diagnostic:     diagnostic,
	}

	if pair.Record != nil {
		rec := pair.Record
		page := rec.PageNumber
		row.PageNumber = &page
		row.ProviderTaxID = rec.ProviderTaxID
		row.DocumentType = rec.DocumentType
		row.InvoiceNumber = rec.InvoiceNumber
		row.TotalValue = rec.TotalValue
	}

	if len(pair.Entries) > 0 {
		declared := domain.SumDocumentValues(pair.Entries)
		paid := domain.SumPaidValues(pair.Entries)
		row.LedgerDocumentValue = &declared
		row.LedgerPaidValueTotal = &paid
		row.LedgerDocumentNumber = a.ledgerNumber(pair)
	}

	return row
}

// Rows assembles the rows for a whole document. The matcher guarantees at
// least one pair per document, so the result is never empty.
func (a *Aggregator) Rows(
	doc domain.SourceDocument,
	pairs []domain.MatchedPair,
	results []domain.ValidationResult,
	classes []domain.Classification,
	degraded bool,
	diagnostic string,
) []domain.ReportRow {
	rows := make([]domain.ReportRow, 0, len(pairs))
	for i := range pairs {
		rows = append(rows, a.Row(doc, pairs[i], results[i], classes[i], degraded, diagnostic))
	}
	return rows
}

// ledgerNumber picks the document number shown on the row.
func (a *Aggregator) ledgerNumber(pair domain.MatchedPair) *string {
	if entry := pair.MatchedEntry(a.rule.Normalize); entry != nil {
		n := entry.DocumentNumber
		return &n
	}
	n := pair.Entries[0].DocumentNumber
	return &n
}
