// Package sqlite provides the run-history store on modernc.org/sqlite, a
// pure Go SQLite implementation that needs no CGO. Each batch run is
// stored together with its report rows so past analyses can be listed
// and re-exported without re-calling the external services.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/osinfo-labs/fiscalia/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/osinfo-labs/fiscalia/internal/core/domain"
	"github.com/osinfo-labs/fiscalia/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.RunStore = (*Store)(nil)

// Store is the SQLite-backed run-history store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a store at the specified data directory. If dataDir is
// empty, defaults to ~/.fiscalia/data/history.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".fiscalia", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "history.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db, path: dbPath}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// SaveRun stores a run together with its report rows in one transaction.
func (s *Store) SaveRun(ctx context.Context, run domain.Run, rows []domain.ReportRow) error {
	if run.ID == "" {
		return domain.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, documents, row_count, output)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Documents, run.Rows, run.Output)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO report_rows
			(run_id, position, file_name, total_pages, page_number,
			 provider_tax_id, document_type, invoice_number, total_value,
			 ledger_document_number, ledger_document_value, ledger_paid_value_total,
			 has_ledger_record, paid_le_declared, values_equal,
			 classification, degraded, diagnostic)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			run.ID, i, row.FileName, row.TotalPages, nullInt(row.PageNumber),
			row.ProviderTaxID, row.DocumentType,
			nullString(row.InvoiceNumber), nullDecimal(row.TotalValue),
			nullString(row.LedgerDocumentNumber), nullDecimal(row.LedgerDocumentValue),
			nullDecimal(row.LedgerPaidValueTotal),
			int(row.Validation.HasLedgerRecord), int(row.Validation.PaidLeDeclared),
			int(row.Validation.ValuesEqual),
			row.Classification.String(), row.Degraded, row.Diagnostic,
		); err != nil {
			return fmt.Errorf("saving report row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ListRuns returns all stored runs, most recent first.
func (s *Store) ListRuns(ctx context.Context) ([]domain.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, documents, row_count, output
		FROM runs ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run //nolint:prealloc // size unknown from query
	for rows.Next() {
		var run domain.Run
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.FinishedAt,
			&run.Documents, &run.Rows, &run.Output); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	return runs, nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, documents, row_count, output
		FROM runs WHERE id = ?
	`, id)

	var run domain.Run
	if err := row.Scan(&run.ID, &run.StartedAt, &run.FinishedAt,
		&run.Documents, &run.Rows, &run.Output); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}

	return &run, nil
}

// GetRows retrieves the report rows of a stored run in their original
// order.
func (s *Store) GetRows(ctx context.Context, runID string) ([]domain.ReportRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT file_name, total_pages, page_number,
		       provider_tax_id, document_type, invoice_number, total_value,
		       ledger_document_number, ledger_document_value, ledger_paid_value_total,
		       has_ledger_record, paid_le_declared, values_equal,
		       classification, degraded, diagnostic
		FROM report_rows WHERE run_id = ?
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying report rows: %w", err)
	}
	defer rows.Close()

	var result []domain.ReportRow //nolint:prealloc // size unknown from query
	for rows.Next() {
		row, err := scanReportRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating report rows: %w", err)
	}

	return result, nil
}

// scanReportRow scans one report row from *sql.Rows.
func scanReportRow(rows *sql.Rows) (domain.ReportRow, error) {
	var row domain.ReportRow
	var pageNumber sql.NullInt64
	var invoiceNumber, ledgerNumber sql.NullString
	var totalValue, ledgerValue, ledgerPaid sql.NullString
	var hasLedger, paidLe, valuesEq int
	var classification string

	if err := rows.Scan(&row.FileName, &row.TotalPages, &pageNumber,
		&row.ProviderTaxID, &row.DocumentType, &invoiceNumber, &totalValue,
		&ledgerNumber, &ledgerValue, &ledgerPaid,
		&hasLedger, &paidLe, &valuesEq,
		&classification, &row.Degraded, &row.Diagnostic); err != nil {
		return domain.ReportRow{}, fmt.Errorf("scanning report row: %w", err)
	}

	if pageNumber.Valid {
		n := int(pageNumber.Int64)
		row.PageNumber = &n
	}
	if invoiceNumber.Valid {
		row.InvoiceNumber = &invoiceNumber.String
	}
	if ledgerNumber.Valid {
		row.LedgerDocumentNumber = &ledgerNumber.String
	}

	var err error
	if row.TotalValue, err = parseDecimal(totalValue); err != nil {
		return domain.ReportRow{}, err
	}
	if row.LedgerDocumentValue, err = parseDecimal(ledgerValue); err != nil {
		return domain.ReportRow{}, err
	}
	if row.LedgerPaidValueTotal, err = parseDecimal(ledgerPaid); err != nil {
		return domain.ReportRow{}, err
	}

	row.Validation = domain.ValidationResult{
		HasLedgerRecord: domain.TriState(hasLedger),
		PaidLeDeclared:  domain.TriState(paidLe),
		ValuesEqual:     domain.TriState(valuesEq),
	}
	row.Classification = domain.ParseClassification(classification)

	return row, nil
}

// Decimals are stored as TEXT so monetary values round-trip exactly.

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseDecimal(v sql.NullString) (*decimal.Decimal, error) {
	if !v.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return nil, fmt.Errorf("%w: stored value %q", domain.ErrMalformedValue, v.String)
	}
	return &d, nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}
