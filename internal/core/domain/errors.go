package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrExtractionFailed indicates the document-understanding call
	// errored or timed out. The document is classified Unanalyzable;
	// the failure never aborts the batch.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrLookupUnavailable indicates the ledger store could not be
	// reached or errored. Distinct from "no rows found", which is an
	// empty result. Processing continues degraded with an empty ledger.
	ErrLookupUnavailable = errors.New("ledger lookup unavailable")

	// ErrMalformedValue indicates a numeric field from either source
	// could not be parsed. The value is treated as missing for any
	// comparison, never as a silent zero.
	ErrMalformedValue = errors.New("malformed value")

	// ErrDocumentTooLarge indicates the PDF exceeds the configured size
	// limit for the extraction service.
	ErrDocumentTooLarge = errors.New("document too large")

	// ErrRateLimited indicates the extraction API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)
