package domain

import "github.com/shopspring/decimal"

// LedgerEntry is one row of the declared-expenses ledger for a document
// identifier. Duplicates are possible and must all be retained; the
// validator aggregates across the full set instead of picking one row.
type LedgerEntry struct {
	// DocumentNumber is the declared invoice number.
	DocumentNumber string

	// DocumentValue is the declared value of the document.
	DocumentValue decimal.Decimal

	// PaidValueTotal is the sum of payments recorded against the document.
	PaidValueTotal decimal.Decimal
}

// SumDocumentValues returns the sum of DocumentValue across entries.
func SumDocumentValues(entries []LedgerEntry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.DocumentValue)
	}
	return sum
}

// SumPaidValues returns the sum of PaidValueTotal across entries.
func SumPaidValues(entries []LedgerEntry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.PaidValueTotal)
	}
	return sum
}
