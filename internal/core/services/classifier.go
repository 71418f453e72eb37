package services

import (
	"github.com/osinfo-labs/fiscalia/internal/core/domain"
)

// Classifier reduces a validation result to one of the three terminal
// labels. It is a pure reduction computed once per record; no state is
// retained across calls.
type Classifier struct{}

// NewClassifier creates a classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify labels one validated pair.
//
// A pair without a record is Unanalyzable (extraction found nothing, or
// the extraction call failed upstream). A record is Cleared only when all
// three checks are YES. Any NO, or any NA arising from missing ledger
// data, forces Suspect: absent ledger data cannot clear an invoice, it
// flags it for review.
func (c *Classifier) Classify(pair domain.MatchedPair, result domain.ValidationResult) domain.Classification {
	if pair.Record == nil {
		return domain.ClassUnanalyzable
	}

	if result.HasLedgerRecord == domain.TriYes &&
		result.PaidLeDeclared == domain.TriYes &&
		result.ValuesEqual == domain.TriYes {
		return domain.ClassCleared
	}
	return domain.ClassSuspect
}
