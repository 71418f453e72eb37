package driven

import (
	"context"

	"github.com/osinfo-labs/fiscalia/internal/core/domain"
)

// ExtractionSource reads a source document and returns structured invoice
// records.
//
// Implementations may include:
//   - Gemini (document-understanding over inline PDFs)
//   - fixtures for testing
type ExtractionSource interface {
	// Extract returns the ordered sequence of invoice records found in
	// the document. A document with zero recognisable invoices is valid
	// and yields an empty slice, not an error. Errors wrap
	// domain.ErrExtractionFailed (or domain.ErrDocumentTooLarge when the
	// file exceeds the configured size limit).
	Extract(ctx context.Context, doc domain.SourceDocument) ([]domain.InvoiceRecord, error)

	// Close releases resources.
	Close() error
}

// PageCounter reports the page count of a source PDF.
type PageCounter interface {
	// Count returns the number of pages, or an error when the file
	// cannot be parsed. Callers treat errors as "unknown" (0 pages).
	Count(path string) (int, error)
}
