package domain

// MatchedPair joins one extracted InvoiceRecord (or none) with the full
// ledger result for the same document identifier.
//
// Invariant: Matched is true iff Entries is non-empty AND the record's
// normalised invoice number equals the normalised document number of at
// least one entry. Matched is never true when Entries is empty or when
// Record is nil.
type MatchedPair struct {
	// Record is the extracted invoice, or nil when extraction found
	// nothing for the source document.
	Record *InvoiceRecord

	// Entries is every ledger row returned for the document identifier,
	// in lookup order. The set is never filtered down to the matched row;
	// downstream aggregation works over all of it.
	Entries []LedgerEntry

	// Matched reports whether Record's invoice number was found among
	// Entries.
	Matched bool
}

// MatchedEntry returns the first ledger entry whose normalised document
// number equals the record's normalised invoice number, using the given
// normalisation rule. Returns nil when the pair is unmatched.
func (p MatchedPair) MatchedEntry(normalize func(string) string) *LedgerEntry {
	if !p.Matched || p.Record == nil || p.Record.InvoiceNumber == nil {
		return nil
	}
	want := normalize(*p.Record.InvoiceNumber)
	for i := range p.Entries {
		if normalize(p.Entries[i].DocumentNumber) == want {
			return &p.Entries[i]
		}
	}
	return nil
}
