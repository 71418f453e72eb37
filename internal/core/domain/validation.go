package domain

// TriState is the outcome of a single validation check. It is a proper
// tagged enum rather than a nullable boolean so that "not applicable" is
// never confused with "failed".
type TriState int

const (
	// TriNA means there was no data to evaluate the check against.
	TriNA TriState = iota

	// TriYes means the check passed.
	TriYes

	// TriNo means the check failed.
	TriNo
)

// String returns a neutral debug representation. Report exporters render
// their own localised labels.
func (t TriState) String() string {
	switch t {
	case TriYes:
		return "YES"
	case TriNo:
		return "NO"
	default:
		return "N/A"
	}
}

// ValidationResult holds the three financial-consistency checks computed
// for a MatchedPair.
type ValidationResult struct {
	// HasLedgerRecord is YES iff the pair matched, NO when an invoice
	// exists but is not matched, and NA only when no invoice was
	// extracted at all.
	HasLedgerRecord TriState

	// PaidLeDeclared reports whether the total paid across all ledger
	// entries is less than or equal to the total declared value.
	// NA when the ledger result is empty.
	PaidLeDeclared TriState

	// ValuesEqual reports whether the extracted invoice total equals the
	// summed declared value within the configured tolerance. NA when
	// either side is missing.
	ValuesEqual TriState
}
