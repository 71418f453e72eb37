package services

import (
	"github.com/osinfo-labs/fiscalia/internal/core/domain"
)

// MatchRule configures how invoice numbers are compared with ledger
// document numbers. The exact normalisation applied to both sides is
// deliberately pluggable; the default strips whitespace and leading zeros.
type MatchRule struct {
	// Normalize is applied to both the invoice number and each ledger
	// document number before comparison.
	Normalize func(string) string
}

// DefaultMatchRule returns the strip-and-compare rule.
func DefaultMatchRule() MatchRule {
	return MatchRule{Normalize: domain.NormalizeInvoiceNumber}
}

// Matcher pairs extracted invoice records with the ledger rows returned
// for the same document identifier.
type Matcher struct {
	rule MatchRule
}

// NewMatcher creates a matcher with the given rule. A nil Normalize
// falls back to the default.
func NewMatcher(rule MatchRule) *Matcher {
	if rule.Normalize == nil {
		rule.Normalize = domain.NormalizeInvoiceNumber
	}
	return &Matcher{rule: rule}
}

// Rule returns the matcher's rule, for components that need the same
// normalisation (e.g. the aggregator selecting the matched entry).
func (m *Matcher) Rule() MatchRule {
	return m.rule
}

// Match joins the extracted records with the full ledger result.
//
// When no record was extracted, a single unmatched pair with a nil record
// carries the ledger result downstream so the document still yields a
// report row. Otherwise one pair per record is produced; a record matches
// when its normalised invoice number equals the normalised document
// number of any ledger entry. All entries are retained on every pair:
// the validator aggregates across the full set rather than picking one
// row, which avoids arbitrary selection when duplicates exist.
func (m *Matcher) Match(records []domain.InvoiceRecord, entries []domain.LedgerEntry) []domain.MatchedPair {
	if len(records) == 0 {
		return []domain.MatchedPair{{Record: nil, Entries: entries, Matched: false}}
	}

	pairs := make([]domain.MatchedPair, 0, len(records))
	for i := range records {
		rec := records[i]
		pairs = append(pairs, domain.MatchedPair{
			Record:  &rec,
			Entries: entries,
			Matched: m.matches(rec, entries),
		})
	}
	return pairs
}

// matches reports whether the record's invoice number appears among the
// ledger entries. A missing invoice number forces false regardless of
// ledger content.
func (m *Matcher) matches(rec domain.InvoiceRecord, entries []domain.LedgerEntry) bool {
	if rec.InvoiceNumber == nil || len(entries) == 0 {
		return false
	}
	want := m.rule.Normalize(*rec.InvoiceNumber)
	if want == "" {
		return false
	}
	for i := range entries {
		if m.rule.Normalize(entries[i].DocumentNumber) == want {
			return true
		}
	}
	return false
}
