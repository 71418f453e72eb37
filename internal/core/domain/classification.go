package domain

// Classification is the terminal label attached to each invoice record
// after validation.
type Classification int

const (
	// ClassUnanalyzable means no invoice could be extracted from the
	// document, or the extraction service itself failed.
	ClassUnanalyzable Classification = iota

	// ClassCleared means the invoice exists and every check passed;
	// the record needs no further review.
	ClassCleared

	// ClassSuspect means the invoice exists and at least one check
	// failed or could not be evaluated against ledger data.
	ClassSuspect
)

// String returns the identifier used in logs and stored runs.
func (c Classification) String() string {
	switch c {
	case ClassCleared:
		return "cleared"
	case ClassSuspect:
		return "suspect"
	default:
		return "unanalyzable"
	}
}

// Label returns the fixed localised label rendered in reports. The audit
// spreadsheets are read by Brazilian accountability reviewers, so the
// labels match the original review workflow.
func (c Classification) Label() string {
	switch c {
	case ClassCleared:
		return "Descartado"
	case ClassSuspect:
		return "Suspeito"
	default:
		return "Não foi possível analisar"
	}
}

// ParseClassification maps a stored identifier back to its Classification.
// Unknown values map to ClassUnanalyzable.
func ParseClassification(s string) Classification {
	switch s {
	case "cleared":
		return ClassCleared
	case "suspect":
		return ClassSuspect
	default:
		return ClassUnanalyzable
	}
}
