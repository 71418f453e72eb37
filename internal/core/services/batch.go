package services

import (
	"context"
	"sync"

	"github.com/osinfo-labs/fiscalia/internal/core/domain"
	"github.com/osinfo-labs/fiscalia/internal/core/ports/driving"
	"github.com/osinfo-labs/fiscalia/internal/logger"
)

// Ensure BatchAnalyzer implements the interface.
var _ driving.BatchRunner = (*BatchAnalyzer)(nil)

// BatchAnalyzer fans a set of documents out to independent pipeline runs
// bounded by a concurrency limit. There is no cross-document shared
// state, so no coordination beyond the worker pool is needed.
type BatchAnalyzer struct {
	analyzer    driving.DocumentAnalyzer
	concurrency int

	mu     sync.RWMutex
	status driving.BatchStatus
}

// NewBatchAnalyzer creates a batch runner. Concurrency values below 1
// are clamped to 1.
func NewBatchAnalyzer(analyzer driving.DocumentAnalyzer, concurrency int) *BatchAnalyzer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BatchAnalyzer{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// Run streams results as documents finish. Workers stop picking up new
// documents once the context is cancelled; a document already being
// analysed finishes its dispatched external calls, but its result is
// discarded rather than emitted after cancellation.
func (b *BatchAnalyzer) Run(ctx context.Context, docs []domain.SourceDocument) <-chan domain.DocumentResult {
	jobs := make(chan domain.SourceDocument)
	out := make(chan domain.DocumentResult)

	b.setStatus(driving.BatchStatus{Running: true, Total: len(docs)})

	var wg sync.WaitGroup
	for i := 0; i < b.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.worker(ctx, jobs, out)
		}()
	}

	go func() {
		defer close(jobs)
		for _, doc := range docs {
			select {
			case <-ctx.Done():
				return
			case jobs <- doc:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
		b.mu.Lock()
		b.status.Running = false
		b.mu.Unlock()
	}()

	return out
}

// Status returns a snapshot of batch progress.
func (b *BatchAnalyzer) Status() driving.BatchStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

// worker drains the job channel until it closes or the context ends.
func (b *BatchAnalyzer) worker(ctx context.Context, jobs <-chan domain.SourceDocument, out chan<- domain.DocumentResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case doc, ok := <-jobs:
			if !ok {
				return
			}

			result, err := b.analyzer.Analyze(ctx, doc)
			if err != nil {
				// Only cancellation surfaces here; partial rows for the
				// document are discarded.
				logger.Debug("Discarding %s: %v", doc.Name, err)
				return
			}
			if ctx.Err() != nil {
				return
			}

			b.mu.Lock()
			b.status.Processed++
			if result.Degraded {
				b.status.Degraded++
			}
			b.mu.Unlock()

			select {
			case <-ctx.Done():
				return
			case out <- result:
			}
		}
	}
}

// setStatus resets the tracked status for a new run.
func (b *BatchAnalyzer) setStatus(s driving.BatchStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = s
}
