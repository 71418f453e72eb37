// Package excel writes the analysis report as an .xlsx spreadsheet in the
// layout the accountability reviewers work with.
package excel

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/osinfo-labs/fiscalia/internal/core/domain"
	"github.com/osinfo-labs/fiscalia/internal/core/ports/driven"
	"github.com/osinfo-labs/fiscalia/internal/logger"
)

// Ensure Exporter implements the interface.
var _ driven.ReportWriter = (*Exporter)(nil)

// sheetName is the single worksheet holding the report.
const sheetName = "Análise"

// headers is the fixed column layout. Reviewers filter and sort these
// sheets by hand, so the order is part of the contract.
var headers = []string{
	"Nome do Arquivo",
	"Total de Páginas",
	"Número da Página",
	"CNPJ Prestador",
	"Tipo de Documento",
	"Número da NF",
	"Valor Total da NF",
	"Num Documento (Despesas)",
	"Valor Declarado (Despesas)",
	"Valor Pago Total (Despesas)",
	"Possui NF em Despesas?",
	"Valor Pago <= Declarado?",
	"Valor NF == Declarado?",
	"Classificação",
	"Observação",
}

// Exporter renders report rows with excelize.
type Exporter struct{}

// New creates an Excel exporter.
func New() *Exporter {
	return &Exporter{}
}

// Write saves the report to path. Monetary values are rendered with a
// comma decimal separator and missing values as "N/A", matching the
// reviewers' spreadsheet conventions.
func (e *Exporter) Write(rows []domain.ReportRow, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("remove default sheet: %w", err)
	}

	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, row := range rows {
		values := []any{
			row.FileName,
			row.TotalPages,
			intOrNA(row.PageNumber),
			stringOrNA(row.ProviderTaxID),
			stringOrNA(row.DocumentType),
			strPtrOrNA(row.InvoiceNumber),
			moneyOrNA(row.TotalValue),
			strPtrOrNA(row.LedgerDocumentNumber),
			moneyOrNA(row.LedgerDocumentValue),
			moneyOrNA(row.LedgerPaidValueTotal),
			triLabel(row.Validation.HasLedgerRecord),
			triLabel(row.Validation.PaidLeDeclared),
			triLabel(row.Validation.ValuesEqual),
			row.Classification.Label(),
			row.Diagnostic,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return fmt.Errorf("row cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", i+1, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	logger.Debug("Wrote %d report row(s) to %s", len(rows), path)
	return nil
}

// triLabel renders a tri-state check the way the reviewers read it.
func triLabel(t domain.TriState) string {
	switch t {
	case domain.TriYes:
		return "SIM"
	case domain.TriNo:
		return "NÃO"
	default:
		return "N/A"
	}
}

// formatMoney renders a value with two decimal places and a comma
// separator (pt-BR convention).
func formatMoney(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1)
}

func moneyOrNA(d *decimal.Decimal) string {
	if d == nil {
		return "N/A"
	}
	return formatMoney(*d)
}

func strPtrOrNA(s *string) string {
	if s == nil || *s == "" {
		return "N/A"
	}
	return *s
}

func stringOrNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func intOrNA(n *int) any {
	if n == nil {
		return "N/A"
	}
	return *n
}
