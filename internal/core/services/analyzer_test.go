package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osinfo-labs/fiscalia/internal/core/domain"
)

// --- Mock implementations ---

// mockExtractor implements driven.ExtractionSource for testing.
type mockExtractor struct {
	records  []domain.InvoiceRecord
	err      error
	failures int32 // fail this many calls before succeeding
	calls    atomic.Int32
}

func (m *mockExtractor) Extract(_ context.Context, _ domain.SourceDocument) ([]domain.InvoiceRecord, error) {
	n := m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	if n <= m.failures {
		return nil, errors.New("transient failure")
	}
	return m.records, nil
}

func (m *mockExtractor) Close() error { return nil }

// mockLedger implements driven.LedgerEntryStore for testing.
type mockLedger struct {
	entries []domain.LedgerEntry
	err     error
	calls   atomic.Int32
	lastID  atomic.Value
}

func (m *mockLedger) Lookup(_ context.Context, documentID string) ([]domain.LedgerEntry, error) {
	m.calls.Add(1)
	m.lastID.Store(documentID)
	if m.err != nil {
		return nil, m.err
	}
	return m.entries, nil
}

func (m *mockLedger) Close() error { return nil }

// mockPageCounter implements driven.PageCounter for testing.
type mockPageCounter struct {
	pages int
	err   error
}

func (m *mockPageCounter) Count(_ string) (int, error) {
	return m.pages, m.err
}

func testSettings() domain.Settings {
	s := domain.DefaultSettings()
	s.CallTimeout = time.Second
	s.MaxRetries = 1
	return s
}

func newPipeline(ext *mockExtractor, led *mockLedger) *AnalysisPipeline {
	return NewAnalysisPipeline(ext, led, &mockPageCounter{pages: 12}, DefaultMatchRule(), testSettings())
}

// --- Scenarios ---

func TestAnalyze_ClearedInvoice(t *testing.T) {
	ext := &mockExtractor{records: []domain.InvoiceRecord{record("12345", "150.00")}}
	led := &mockLedger{entries: []domain.LedgerEntry{entry("12345", "150.00", "140.00")}}
	p := newPipeline(ext, led)

	result, err := p.Analyze(context.Background(), testDoc())

	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	row := result.Rows[0]
	assert.Equal(t, domain.TriYes, row.Validation.HasLedgerRecord)
	assert.Equal(t, domain.TriYes, row.Validation.PaidLeDeclared)
	assert.Equal(t, domain.TriYes, row.Validation.ValuesEqual)
	assert.Equal(t, domain.ClassCleared, row.Classification)
	assert.False(t, result.Degraded)
}

func TestAnalyze_OverpaidInvoiceIsSuspect(t *testing.T) {
	ext := &mockExtractor{records: []domain.InvoiceRecord{record("12345", "150.00")}}
	led := &mockLedger{entries: []domain.LedgerEntry{entry("12345", "100.00", "140.00")}}
	p := newPipeline(ext, led)

	result, err := p.Analyze(context.Background(), testDoc())

	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, domain.TriNo, result.Rows[0].Validation.PaidLeDeclared)
	assert.Equal(t, domain.ClassSuspect, result.Rows[0].Classification)
}

func TestAnalyze_NoLedgerMatchIsSuspect(t *testing.T) {
	ext := &mockExtractor{records: []domain.InvoiceRecord{record("12345", "150.00")}}
	led := &mockLedger{entries: []domain.LedgerEntry{entry("98765", "80.00", "80.00")}}
	p := newPipeline(ext, led)

	result, err := p.Analyze(context.Background(), testDoc())

	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, domain.TriNo, result.Rows[0].Validation.HasLedgerRecord)
	assert.Equal(t, domain.ClassSuspect, result.Rows[0].Classification)
}

func TestAnalyze_LedgerUnavailableDegrades(t *testing.T) {
	ext := &mockExtractor{records: []domain.InvoiceRecord{record("12345", "150.00")}}
	led := &mockLedger{err: domain.ErrLookupUnavailable}
	p := newPipeline(ext, led)

	result, err := p.Analyze(context.Background(), testDoc())

	require.NoError(t, err, "a ledger outage must not fail the document")
	assert.True(t, result.Degraded)
	require.Len(t, result.Rows, 1)
	row := result.Rows[0]
	assert.Nil(t, row.LedgerDocumentValue)
	assert.Equal(t, domain.TriNA, row.Validation.PaidLeDeclared)
	assert.Equal(t, domain.ClassSuspect, row.Classification)
	assert.True(t, row.Degraded)
	assert.Contains(t, row.Diagnostic, "ledger unavailable")
	// One retry was attempted before degrading.
	assert.Equal(t, int32(2), led.calls.Load())
}

func TestAnalyze_ExtractionFailureIsUnanalyzable(t *testing.T) {
	ext := &mockExtractor{err: errors.New("model timeout")}
	led := &mockLedger{entries: []domain.LedgerEntry{entry("12345", "150.00", "140.00")}}
	p := newPipeline(ext, led)

	result, err := p.Analyze(context.Background(), testDoc())

	require.NoError(t, err, "extraction failure must not fail the document")
	require.Len(t, result.Rows, 1)
	row := result.Rows[0]
	assert.Nil(t, row.InvoiceNumber)
	assert.Equal(t, domain.ClassUnanalyzable, row.Classification)
	assert.Contains(t, row.Diagnostic, "extraction failed")
	// Ledger fields still reflect what the lookup returned.
	require.NotNil(t, row.LedgerDocumentValue)
	assert.True(t, row.LedgerDocumentValue.Equal(*decPtr("150.00")))
}

func TestAnalyze_ZeroRecordsYieldsPlaceholder(t *testing.T) {
	ext := &mockExtractor{records: nil}
	led := &mockLedger{}
	p := newPipeline(ext, led)

	result, err := p.Analyze(context.Background(), testDoc())

	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, domain.ClassUnanalyzable, result.Rows[0].Classification)
	assert.Equal(t, "OS-2024-0117.pdf", result.Rows[0].FileName)
}

func TestAnalyze_TwoInvoicesClassifiedIndependently(t *testing.T) {
	ext := &mockExtractor{records: []domain.InvoiceRecord{
		record("12345", "150.00"),
		record("55555", "99.00"),
	}}
	led := &mockLedger{entries: []domain.LedgerEntry{entry("12345", "150.00", "140.00")}}
	p := newPipeline(ext, led)

	result, err := p.Analyze(context.Background(), testDoc())

	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, domain.ClassCleared, result.Rows[0].Classification)
	assert.Equal(t, domain.ClassSuspect, result.Rows[1].Classification)
}

func TestAnalyze_TransientExtractionFailureRetriesOnce(t *testing.T) {
	ext := &mockExtractor{
		records:  []domain.InvoiceRecord{record("12345", "150.00")},
		failures: 1,
	}
	led := &mockLedger{entries: []domain.LedgerEntry{entry("12345", "150.00", "140.00")}}
	p := newPipeline(ext, led)

	result, err := p.Analyze(context.Background(), testDoc())

	require.NoError(t, err)
	assert.Equal(t, int32(2), ext.calls.Load())
	assert.Equal(t, domain.ClassCleared, result.Rows[0].Classification)
}

func TestAnalyze_LookupUsesDocumentID(t *testing.T) {
	ext := &mockExtractor{}
	led := &mockLedger{}
	p := newPipeline(ext, led)

	_, err := p.Analyze(context.Background(), testDoc())

	require.NoError(t, err)
	assert.Equal(t, "OS-2024-0117", led.lastID.Load())
}

func TestAnalyze_Idempotent(t *testing.T) {
	ext := &mockExtractor{records: []domain.InvoiceRecord{record("12345", "150.00")}}
	led := &mockLedger{entries: []domain.LedgerEntry{entry("12345", "150.00", "140.00")}}
	p := newPipeline(ext, led)

	first, err := p.Analyze(context.Background(), testDoc())
	require.NoError(t, err)
	second, err := p.Analyze(context.Background(), testDoc())
	require.NoError(t, err)

	assert.Equal(t, first.Rows, second.Rows)
}

func TestAnalyze_CancelledContext(t *testing.T) {
	ext := &mockExtractor{}
	led := &mockLedger{}
	p := newPipeline(ext, led)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Analyze(ctx, testDoc())

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), ext.calls.Load(), "no external call after cancellation")
}
