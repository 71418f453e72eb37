package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/osinfo-labs/fiscalia/internal/core/domain"
	"github.com/osinfo-labs/fiscalia/internal/core/ports/driven"
	"github.com/osinfo-labs/fiscalia/internal/core/ports/driving"
	"github.com/osinfo-labs/fiscalia/internal/logger"
)

// Ensure AnalysisPipeline implements the interface.
var _ driving.DocumentAnalyzer = (*AnalysisPipeline)(nil)

// AnalysisPipeline runs the per-document audit: extraction and ledger
// lookup are issued concurrently and joined, then the matcher, validator,
// classifier and aggregator run in sequence. Every stage is a pure
// function of its input; the pipeline holds no per-document state.
type AnalysisPipeline struct {
	extractor driven.ExtractionSource
	ledger    driven.LedgerEntryStore
	pages     driven.PageCounter

	matcher    *Matcher
	validator  *Validator
	classifier *Classifier
	aggregator *Aggregator

	timeout time.Duration
	retries int
}

// NewAnalysisPipeline wires the pipeline. The page counter is optional -
// when nil, report rows carry a zero page count. Settings provide the
// tolerance, per-call timeout and retry bound; they are captured at
// construction so concurrent pipelines can run with different values.
func NewAnalysisPipeline(
	extractor driven.ExtractionSource,
	ledger driven.LedgerEntryStore,
	pages driven.PageCounter,
	rule MatchRule,
	settings domain.Settings,
) *AnalysisPipeline {
	matcher := NewMatcher(rule)
	return &AnalysisPipeline{
		extractor:  extractor,
		ledger:     ledger,
		pages:      pages,
		matcher:    matcher,
		validator:  NewValidator(settings.Tolerance),
		classifier: NewClassifier(),
		aggregator: NewAggregator(matcher.Rule()),
		timeout:    settings.CallTimeout,
		retries:    settings.MaxRetries,
	}
}

// Analyze processes one document end to end.
//
// The extraction call and the ledger lookup are independent and run
// concurrently; both must settle before matching (a join point, not a
// race). A ledger failure degrades the document: processing continues
// with an empty ledger result and the rows are flagged. An extraction
// failure makes the document Unanalyzable via a single placeholder row.
// Neither failure is returned as an error - the batch must not stop.
func (p *AnalysisPipeline) Analyze(ctx context.Context, doc domain.SourceDocument) (domain.DocumentResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.DocumentResult{}, err
	}

	if doc.Pages == 0 && p.pages != nil && doc.Path != "" {
		if n, err := p.pages.Count(doc.Path); err != nil {
			logger.Warn("Page count failed for %s: %v", doc.Name, err)
		} else {
			doc.Pages = n
		}
	}

	var (
		records    []domain.InvoiceRecord
		extractErr error
		entries    []domain.LedgerEntry
		lookupErr  error
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		entries, lookupErr = p.lookupWithRetry(ctx, doc.ID())
	}()
	records, extractErr = p.extractWithRetry(ctx, doc)
	<-done

	degraded := false
	diagnostic := ""

	if lookupErr != nil {
		// Degraded, not fatal: the document proceeds with an empty
		// ledger result and can no longer reach Cleared.
		degraded = true
		diagnostic = fmt.Sprintf("ledger unavailable: %v", lookupErr)
		entries = nil
		logger.Warn("Ledger lookup degraded for %s: %v", doc.Name, lookupErr)
	}

	if extractErr != nil {
		diag := fmt.Sprintf("extraction failed: %v", extractErr)
		if diagnostic != "" {
			diag = diagnostic + "; " + diag
		}
		logger.Warn("Extraction failed for %s: %v", doc.Name, extractErr)
		// One placeholder row; ledger fields still reflect whatever the
		// lookup returned.
		pairs := p.matcher.Match(nil, entries)
		results := []domain.ValidationResult{p.validator.Validate(pairs[0])}
		classes := []domain.Classification{domain.ClassUnanalyzable}
		rows := p.aggregator.Rows(doc, pairs, results, classes, degraded, diag)
		return domain.DocumentResult{Document: doc, Rows: rows, Degraded: degraded}, nil
	}

	pairs := p.matcher.Match(records, entries)
	results := make([]domain.ValidationResult, len(pairs))
	classes := make([]domain.Classification, len(pairs))
	for i := range pairs {
		results[i] = p.validator.Validate(pairs[i])
		classes[i] = p.classifier.Classify(pairs[i], results[i])
	}

	rows := p.aggregator.Rows(doc, pairs, results, classes, degraded, diagnostic)
	logger.Debug("Analyzed %s: %d record(s), %d row(s)", doc.Name, len(records), len(rows))
	return domain.DocumentResult{Document: doc, Rows: rows, Degraded: degraded}, nil
}

// extractWithRetry calls the extraction source with a per-call timeout
// and at most the configured number of additional attempts.
func (p *AnalysisPipeline) extractWithRetry(ctx context.Context, doc domain.SourceDocument) ([]domain.InvoiceRecord, error) {
	var records []domain.InvoiceRecord
	err := p.callWithRetry(ctx, func(callCtx context.Context) error {
		var callErr error
		records, callErr = p.extractor.Extract(callCtx, doc)
		return callErr
	})
	if err != nil {
		if errors.Is(err, domain.ErrExtractionFailed) || errors.Is(err, domain.ErrDocumentTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
	}
	return records, nil
}

// lookupWithRetry calls the ledger store with the same retry policy.
func (p *AnalysisPipeline) lookupWithRetry(ctx context.Context, documentID string) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	err := p.callWithRetry(ctx, func(callCtx context.Context) error {
		var callErr error
		entries, callErr = p.ledger.Lookup(callCtx, documentID)
		return callErr
	})
	if err != nil {
		if errors.Is(err, domain.ErrLookupUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrLookupUnavailable, err)
	}
	return entries, nil
}

// callWithRetry runs fn with a bounded per-call timeout, retrying at most
// p.retries times. Calls already dispatched when the parent is cancelled
// are allowed to finish or time out normally (the call context detaches
// from parent cancellation), but no new attempt starts after
// cancellation.
func (p *AnalysisPipeline) callWithRetry(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= p.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		callCtx := context.WithoutCancel(ctx)
		cancel := context.CancelFunc(func() {})
		if p.timeout > 0 {
			callCtx, cancel = context.WithTimeout(callCtx, p.timeout)
		}
		err := fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < p.retries {
			logger.Debug("Retrying after failure: %v", lastErr)
		}
	}
	return lastErr
}
