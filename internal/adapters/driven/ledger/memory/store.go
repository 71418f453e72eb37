// Package memory provides an in-memory ledger entry store, used when
// BigQuery is disabled and as a test double.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/osinfo-labs/fiscalia/internal/core/domain"
	"github.com/osinfo-labs/fiscalia/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.LedgerEntryStore = (*Store)(nil)

// Store keeps ledger entries keyed by document identifier. Lookups are
// case-insensitive on the key, mirroring the real ledger's inconsistent
// description casing.
type Store struct {
	mu      sync.RWMutex
	entries map[string][]domain.LedgerEntry
}

// New creates an empty in-memory ledger.
func New() *Store {
	return &Store{entries: make(map[string][]domain.LedgerEntry)}
}

// Seed replaces the entries for a document identifier.
func (s *Store) Seed(documentID string, entries []domain.LedgerEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key(documentID)] = append([]domain.LedgerEntry(nil), entries...)
}

// Add appends one entry for a document identifier.
func (s *Store) Add(documentID string, entry domain.LedgerEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(documentID)
	s.entries[k] = append(s.entries[k], entry)
}

// Lookup returns a copy of the entries for the identifier. An unknown
// identifier yields an empty result, never an error.
func (s *Store) Lookup(_ context.Context, documentID string) ([]domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.LedgerEntry(nil), s.entries[key(documentID)]...), nil
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}

func key(documentID string) string {
	return strings.ToUpper(strings.TrimSpace(documentID))
}
