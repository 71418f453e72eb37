package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osinfo-labs/fiscalia/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func testRun(id string) domain.Run {
	started := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	return domain.Run{
		ID:         id,
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Minute),
		Documents:  2,
		Rows:       2,
		Output:     "analise_nf_20260829_100300.xlsx",
	}
}

func testRows() []domain.ReportRow {
	return []domain.ReportRow{
		{
			FileName:             "OS-2024-0117.pdf",
			TotalPages:           12,
			PageNumber:           intPtr(1),
			ProviderTaxID:        "12345678000190",
			DocumentType:         "DANFE",
			InvoiceNumber:        strPtr("12345"),
			TotalValue:           decPtr("1500.00"),
			LedgerDocumentNumber: strPtr("12345"),
			LedgerDocumentValue:  decPtr("1500.00"),
			LedgerPaidValueTotal: decPtr("1400.00"),
			Validation: domain.ValidationResult{
				HasLedgerRecord: domain.TriYes,
				PaidLeDeclared:  domain.TriYes,
				ValuesEqual:     domain.TriYes,
			},
			Classification: domain.ClassCleared,
		},
		{
			FileName:       "vazio.pdf",
			TotalPages:     2,
			Classification: domain.ClassUnanalyzable,
			Degraded:       true,
			Diagnostic:     "ledger unavailable: connection refused",
		},
	}
}

func TestSaveRun_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, testRun("run-1"), testRows()))

	run, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 2, run.Documents)
	assert.Equal(t, 2, run.Rows)
	assert.Equal(t, "analise_nf_20260829_100300.xlsx", run.Output)
	assert.True(t, run.StartedAt.Before(run.FinishedAt))

	rows, err := s.GetRows(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	full := rows[0]
	assert.Equal(t, "OS-2024-0117.pdf", full.FileName)
	require.NotNil(t, full.PageNumber)
	assert.Equal(t, 1, *full.PageNumber)
	require.NotNil(t, full.InvoiceNumber)
	assert.Equal(t, "12345", *full.InvoiceNumber)
	require.NotNil(t, full.TotalValue)
	assert.True(t, full.TotalValue.Equal(decimal.RequireFromString("1500.00")))
	assert.Equal(t, domain.TriYes, full.Validation.ValuesEqual)
	assert.Equal(t, domain.ClassCleared, full.Classification)
	assert.False(t, full.Degraded)

	placeholder := rows[1]
	assert.Nil(t, placeholder.PageNumber)
	assert.Nil(t, placeholder.InvoiceNumber)
	assert.Nil(t, placeholder.TotalValue)
	assert.Equal(t, domain.TriNA, placeholder.Validation.HasLedgerRecord)
	assert.Equal(t, domain.ClassUnanalyzable, placeholder.Classification)
	assert.True(t, placeholder.Degraded)
	assert.Equal(t, "ledger unavailable: connection refused", placeholder.Diagnostic)
}

func TestSaveRun_EmptyIDRejected(t *testing.T) {
	s := newTestStore(t)

	err := s.SaveRun(context.Background(), domain.Run{}, nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGetRun_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetRun(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListRuns_MostRecentFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := testRun("run-old")
	older.StartedAt = older.StartedAt.Add(-24 * time.Hour)
	older.FinishedAt = older.StartedAt.Add(time.Minute)
	require.NoError(t, s.SaveRun(ctx, older, nil))
	require.NoError(t, s.SaveRun(ctx, testRun("run-new"), nil))

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-new", runs[0].ID)
	assert.Equal(t, "run-old", runs[1].ID)
}

func TestGetRows_UnknownRunIsEmpty(t *testing.T) {
	s := newTestStore(t)

	rows, err := s.GetRows(context.Background(), "missing")

	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMigrate_Idempotent(t *testing.T) {
	dir := t.TempDir()

	first, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.SaveRun(context.Background(), testRun("run-1"), testRows()))
	require.NoError(t, first.Close())

	// Reopening must not re-run applied migrations or lose data.
	second, err := NewStore(dir)
	require.NoError(t, err)
	defer second.Close()

	runs, err := second.ListRuns(context.Background())
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
