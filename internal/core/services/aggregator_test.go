package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osinfo-labs/fiscalia/internal/core/domain"
)

func testDoc() domain.SourceDocument {
	return domain.SourceDocument{Name: "OS-2024-0117.pdf", Path: "/tmp/OS-2024-0117.pdf", Pages: 12}
}

func TestAggregator_FullRow(t *testing.T) {
	a := NewAggregator(DefaultMatchRule())
	rec := record("12345", "150.00")
	pair := matchedPair(rec, entry("12345", "150.00", "140.00"))
	result := domain.ValidationResult{
		HasLedgerRecord: domain.TriYes,
		PaidLeDeclared:  domain.TriYes,
		ValuesEqual:     domain.TriYes,
	}

	row := a.Row(testDoc(), pair, result, domain.ClassCleared, false, "")

	assert.Equal(t, "OS-2024-0117.pdf", row.FileName)
	assert.Equal(t, 12, row.TotalPages)
	require.NotNil(t, row.PageNumber)
	assert.Equal(t, 1, *row.PageNumber)
	assert.Equal(t, "12345678000190", row.ProviderTaxID)
	assert.Equal(t, "DANFE", row.DocumentType)
	require.NotNil(t, row.InvoiceNumber)
	assert.Equal(t, "12345", *row.InvoiceNumber)
	require.NotNil(t, row.LedgerDocumentNumber)
	assert.Equal(t, "12345", *row.LedgerDocumentNumber)
	require.NotNil(t, row.LedgerDocumentValue)
	assert.True(t, row.LedgerDocumentValue.Equal(*decPtr("150.00")))
	require.NotNil(t, row.LedgerPaidValueTotal)
	assert.True(t, row.LedgerPaidValueTotal.Equal(*decPtr("140.00")))
	assert.Equal(t, domain.ClassCleared, row.Classification)
	assert.False(t, row.Degraded)
	assert.Empty(t, row.Diagnostic)
}

func TestAggregator_SumsAcrossEntries(t *testing.T) {
	a := NewAggregator(DefaultMatchRule())
	rec := record("12345", "300.00")
	pair := matchedPair(rec,
		entry("12345", "150.00", "100.00"),
		entry("77777", "50.00", "25.00"),
	)

	row := a.Row(testDoc(), pair, domain.ValidationResult{}, domain.ClassSuspect, false, "")

	require.NotNil(t, row.LedgerDocumentValue)
	assert.True(t, row.LedgerDocumentValue.Equal(*decPtr("200.00")))
	require.NotNil(t, row.LedgerPaidValueTotal)
	assert.True(t, row.LedgerPaidValueTotal.Equal(*decPtr("125.00")))
	// The matched entry's number is shown, not the first row's.
	require.NotNil(t, row.LedgerDocumentNumber)
	assert.Equal(t, "12345", *row.LedgerDocumentNumber)
}

func TestAggregator_UnmatchedUsesFirstEntryNumber(t *testing.T) {
	a := NewAggregator(DefaultMatchRule())
	rec := record("99999", "150.00")
	pair := domain.MatchedPair{
		Record:  &rec,
		Entries: []domain.LedgerEntry{entry("11111", "10.00", "5.00"), entry("22222", "20.00", "10.00")},
		Matched: false,
	}

	row := a.Row(testDoc(), pair, domain.ValidationResult{}, domain.ClassSuspect, false, "")

	require.NotNil(t, row.LedgerDocumentNumber)
	assert.Equal(t, "11111", *row.LedgerDocumentNumber)
}

func TestAggregator_PlaceholderRow(t *testing.T) {
	a := NewAggregator(DefaultMatchRule())
	pair := domain.MatchedPair{Record: nil, Entries: nil, Matched: false}
	result := domain.ValidationResult{
		HasLedgerRecord: domain.TriNA,
		PaidLeDeclared:  domain.TriNA,
		ValuesEqual:     domain.TriNA,
	}

	rows := a.Rows(testDoc(), []domain.MatchedPair{pair}, []domain.ValidationResult{result},
		[]domain.Classification{domain.ClassUnanalyzable}, false, "nota fiscal não encontrada")

	require.Len(t, rows, 1)
	row := rows[0]
	assert.Nil(t, row.PageNumber)
	assert.Empty(t, row.ProviderTaxID)
	assert.Nil(t, row.InvoiceNumber)
	assert.Nil(t, row.TotalValue)
	assert.Nil(t, row.LedgerDocumentNumber)
	assert.Nil(t, row.LedgerDocumentValue)
	assert.Equal(t, domain.ClassUnanalyzable, row.Classification)
	assert.Equal(t, "nota fiscal não encontrada", row.Diagnostic)
}

func TestAggregator_DegradedFlagCarriesThrough(t *testing.T) {
	a := NewAggregator(DefaultMatchRule())
	rec := record("12345", "150.00")
	pair := domain.MatchedPair{Record: &rec, Entries: nil, Matched: false}

	row := a.Row(testDoc(), pair, domain.ValidationResult{}, domain.ClassSuspect, true, "ledger unavailable: timeout")

	assert.True(t, row.Degraded)
	assert.Equal(t, "ledger unavailable: timeout", row.Diagnostic)
	assert.Nil(t, row.LedgerDocumentValue)
}
