package driving

import (
	"context"

	"github.com/osinfo-labs/fiscalia/internal/core/domain"
)

// DocumentAnalyzer runs the full pipeline for one source document:
// extraction and ledger lookup (concurrently), matching, validation,
// classification and aggregation.
type DocumentAnalyzer interface {
	// Analyze processes one document and returns its report rows.
	// External-service failures never surface as an error here; they
	// are folded into the rows (Unanalyzable classification, Degraded
	// flag, Diagnostic note). The only error returned is ctx.Err() when
	// the caller cancelled.
	Analyze(ctx context.Context, doc domain.SourceDocument) (domain.DocumentResult, error)
}

// BatchStatus is a snapshot of a running batch.
type BatchStatus struct {
	// Running reports whether the batch is still in flight.
	Running bool

	// Total is the number of documents submitted.
	Total int

	// Processed is the number of documents finished so far.
	Processed int

	// Degraded is the number of documents processed without ledger data.
	Degraded int
}

// BatchRunner processes many documents through independent pipeline
// instances bounded by the configured concurrency limit.
type BatchRunner interface {
	// Run streams one DocumentResult per document as each finishes.
	// The channel closes when all documents are done or the context is
	// cancelled. One document's failure never aborts the others.
	Run(ctx context.Context, docs []domain.SourceDocument) <-chan domain.DocumentResult

	// Status returns a snapshot of batch progress.
	Status() BatchStatus
}
