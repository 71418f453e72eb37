package driven

import (
	"context"

	"github.com/osinfo-labs/fiscalia/internal/core/domain"
)

// LedgerEntryStore queries the authoritative declared-expenses ledger.
type LedgerEntryStore interface {
	// Lookup returns every ledger row for the document identifier,
	// duplicates included, in lookup order. "Nothing found" is an empty
	// slice, not an error. Infrastructure failures (network, auth,
	// service) wrap domain.ErrLookupUnavailable so the pipeline can
	// degrade instead of crash.
	Lookup(ctx context.Context, documentID string) ([]domain.LedgerEntry, error)

	// Close releases resources.
	Close() error
}
