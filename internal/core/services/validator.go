package services

import (
	"github.com/shopspring/decimal"

	"github.com/osinfo-labs/fiscalia/internal/core/domain"
)

// Validator computes the three financial-consistency checks for a
// matched pair. All comparisons are decimal-exact; binary floating point
// is never used, so the tolerance boundary does not drift.
type Validator struct {
	tolerance decimal.Decimal
}

// NewValidator creates a validator with the given absolute tolerance
// (currency units, e.g. 0.01).
func NewValidator(tolerance decimal.Decimal) *Validator {
	return &Validator{tolerance: tolerance}
}

// Validate computes the tri-state checks for one pair.
//
// hasLedgerRecord follows the match outcome; it is NA only when there is
// no invoice record at all; an empty ledger result with a record present
// is a concrete NO.
//
// paidLeDeclared and valuesEqual aggregate across every ledger entry for
// the document: sum(paid) ≤ sum(declared) and
// |total − sum(declared)| ≤ tolerance. Either check is NA when its
// inputs are missing (empty ledger, or no extracted total).
func (v *Validator) Validate(pair domain.MatchedPair) domain.ValidationResult {
	var out domain.ValidationResult

	switch {
	case pair.Record == nil:
		out.HasLedgerRecord = domain.TriNA
	case pair.Matched:
		out.HasLedgerRecord = domain.TriYes
	default:
		out.HasLedgerRecord = domain.TriNo
	}

	if len(pair.Entries) == 0 {
		out.PaidLeDeclared = domain.TriNA
		out.ValuesEqual = domain.TriNA
		return out
	}

	declared := domain.SumDocumentValues(pair.Entries)
	paid := domain.SumPaidValues(pair.Entries)

	if paid.LessThanOrEqual(declared) {
		out.PaidLeDeclared = domain.TriYes
	} else {
		out.PaidLeDeclared = domain.TriNo
	}

	if pair.Record == nil || pair.Record.TotalValue == nil {
		out.ValuesEqual = domain.TriNA
		return out
	}

	diff := pair.Record.TotalValue.Sub(declared).Abs()
	if diff.LessThanOrEqual(v.tolerance) {
		out.ValuesEqual = domain.TriYes
	} else {
		out.ValuesEqual = domain.TriNo
	}
	return out
}
