package excel

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/osinfo-labs/fiscalia/internal/core/domain"
)

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func fullRow() domain.ReportRow {
	return domain.ReportRow{
		FileName:             "OS-2024-0117.pdf",
		TotalPages:           12,
		PageNumber:           intPtr(3),
		ProviderTaxID:        "12345678000190",
		DocumentType:         "DANFE",
		InvoiceNumber:        strPtr("12345"),
		TotalValue:           decPtr("1500.00"),
		LedgerDocumentNumber: strPtr("12345"),
		LedgerDocumentValue:  decPtr("1500.00"),
		LedgerPaidValueTotal: decPtr("1234.56"),
		Validation: domain.ValidationResult{
			HasLedgerRecord: domain.TriYes,
			PaidLeDeclared:  domain.TriYes,
			ValuesEqual:     domain.TriYes,
		},
		Classification: domain.ClassCleared,
	}
}

func export(t *testing.T, rows []domain.ReportRow) *excelize.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "analise.xlsx")
	require.NoError(t, New().Write(rows, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func cell(t *testing.T, f *excelize.File, ref string) string {
	t.Helper()
	v, err := f.GetCellValue(sheetName, ref)
	require.NoError(t, err)
	return v
}

func TestWrite_HeadersAndSheet(t *testing.T) {
	f := export(t, []domain.ReportRow{fullRow()})

	assert.Equal(t, []string{sheetName}, f.GetSheetList())
	assert.Equal(t, "Nome do Arquivo", cell(t, f, "A1"))
	assert.Equal(t, "Classificação", cell(t, f, "N1"))
	assert.Equal(t, "Observação", cell(t, f, "O1"))
}

func TestWrite_FullRow(t *testing.T) {
	f := export(t, []domain.ReportRow{fullRow()})

	assert.Equal(t, "OS-2024-0117.pdf", cell(t, f, "A2"))
	assert.Equal(t, "12", cell(t, f, "B2"))
	assert.Equal(t, "3", cell(t, f, "C2"))
	assert.Equal(t, "12345678000190", cell(t, f, "D2"))
	assert.Equal(t, "DANFE", cell(t, f, "E2"))
	assert.Equal(t, "12345", cell(t, f, "F2"))
	assert.Equal(t, "1500,00", cell(t, f, "G2"))
	assert.Equal(t, "12345", cell(t, f, "H2"))
	assert.Equal(t, "1500,00", cell(t, f, "I2"))
	assert.Equal(t, "1234,56", cell(t, f, "J2"))
	assert.Equal(t, "SIM", cell(t, f, "K2"))
	assert.Equal(t, "SIM", cell(t, f, "L2"))
	assert.Equal(t, "SIM", cell(t, f, "M2"))
	assert.Equal(t, "Descartado", cell(t, f, "N2"))
	assert.Equal(t, "", cell(t, f, "O2"))
}

func TestWrite_PlaceholderRow(t *testing.T) {
	row := domain.ReportRow{
		FileName:       "vazio.pdf",
		TotalPages:     2,
		Classification: domain.ClassUnanalyzable,
		Diagnostic:     "nota fiscal não encontrada",
	}

	f := export(t, []domain.ReportRow{row})

	assert.Equal(t, "N/A", cell(t, f, "C2"))
	assert.Equal(t, "N/A", cell(t, f, "F2"))
	assert.Equal(t, "N/A", cell(t, f, "G2"))
	assert.Equal(t, "N/A", cell(t, f, "K2"))
	assert.Equal(t, "Não foi possível analisar", cell(t, f, "N2"))
	assert.Equal(t, "nota fiscal não encontrada", cell(t, f, "O2"))
}

func TestWrite_SuspectRowLabels(t *testing.T) {
	row := fullRow()
	row.Validation.PaidLeDeclared = domain.TriNo
	row.Validation.ValuesEqual = domain.TriNA
	row.Classification = domain.ClassSuspect

	f := export(t, []domain.ReportRow{row})

	assert.Equal(t, "NÃO", cell(t, f, "L2"))
	assert.Equal(t, "N/A", cell(t, f, "M2"))
	assert.Equal(t, "Suspeito", cell(t, f, "N2"))
}

func TestWrite_MultipleRows(t *testing.T) {
	first := fullRow()
	second := fullRow()
	second.FileName = "OS-2024-0118.pdf"

	f := export(t, []domain.ReportRow{first, second})

	assert.Equal(t, "OS-2024-0117.pdf", cell(t, f, "A2"))
	assert.Equal(t, "OS-2024-0118.pdf", cell(t, f, "A3"))
}

func TestFormatMoney_CommaSeparator(t *testing.T) {
	assert.Equal(t, "1234,56", formatMoney(decimal.RequireFromString("1234.56")))
	assert.Equal(t, "1500,00", formatMoney(decimal.RequireFromString("1500")))
	assert.Equal(t, "0,00", formatMoney(decimal.Zero))
}
