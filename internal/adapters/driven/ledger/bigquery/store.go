// Package bigquery provides a ledger entry store backed by the
// declared-expenses table in Google BigQuery.
package bigquery

import (
	"context"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/osinfo-labs/fiscalia/internal/core/domain"
	"github.com/osinfo-labs/fiscalia/internal/core/ports/driven"
	"github.com/osinfo-labs/fiscalia/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.LedgerEntryStore = (*Store)(nil)

// Config holds configuration for the BigQuery ledger store.
type Config struct {
	// ProjectID is the GCP project holding the dataset (required).
	ProjectID string

	// Dataset and Table locate the declared-expenses table (required).
	Dataset string
	Table   string

	// CredentialsFile is an optional path to a service-account JSON key.
	// Empty falls back to Application Default Credentials.
	CredentialsFile string
}

// Store queries the declared-expenses table. The table stores the
// accountability file name in its description column, with inconsistent
// casing and with or without the .pdf extension, so the lookup matches
// all four variants of the identifier.
type Store struct {
	client  *bigquery.Client
	dataset string
	table   string
}

// New creates a BigQuery ledger store. The client is built from the
// service-account key when one is configured, otherwise from Application
// Default Credentials.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("bigquery: project ID is required")
	}
	if cfg.Dataset == "" || cfg.Table == "" {
		return nil, fmt.Errorf("bigquery: dataset and table are required")
	}

	opts, err := clientOptions(ctx, cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}

	client, err := bigquery.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery: create client: %w", err)
	}

	logger.Debug("BigQuery ledger: %s.%s.%s", cfg.ProjectID, cfg.Dataset, cfg.Table)
	return &Store{client: client, dataset: cfg.Dataset, table: cfg.Table}, nil
}

// clientOptions resolves credentials for the BigQuery client.
func clientOptions(ctx context.Context, credentialsFile string) ([]option.ClientOption, error) {
	if credentialsFile == "" {
		return nil, nil
	}

	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("bigquery: read credentials file: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, bigquery.Scope)
	if err != nil {
		return nil, fmt.Errorf("bigquery: parse credentials: %w", err)
	}
	return []option.ClientOption{option.WithCredentials(creds)}, nil
}

// Lookup returns every declared-expense row whose description matches the
// document identifier, with or without the .pdf extension, case folded or
// not. Payments are aggregated per declared document so each returned
// entry carries its total paid value. An empty result is not an error.
func (s *Store) Lookup(ctx context.Context, documentID string) ([]domain.LedgerEntry, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT
		  num_documento,
		  valor_documento,
		  SUM(valor_pago) AS valor_pago_total
		FROM %s.%s
		WHERE
		  id_tipo_documento = "1"
		  AND (descricao = @id
		       OR UPPER(descricao) = @id_upper
		       OR descricao = @file
		       OR UPPER(descricao) = @file_upper)
		GROUP BY num_documento, valor_documento`,
		"`"+s.dataset+"`", "`"+s.table+"`"))

	fileName := documentID + ".pdf"
	q.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: documentID},
		{Name: "id_upper", Value: strings.ToUpper(documentID)},
		{Name: "file", Value: fileName},
		{Name: "file_upper", Value: strings.ToUpper(fileName)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", domain.ErrLookupUnavailable, err)
	}

	var entries []domain.LedgerEntry
	for {
		var row struct {
			NumDocumento   bigquery.NullString  `bigquery:"num_documento"`
			ValorDocumento bigquery.NullFloat64 `bigquery:"valor_documento"`
			ValorPagoTotal bigquery.NullFloat64 `bigquery:"valor_pago_total"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: iterate: %w", domain.ErrLookupUnavailable, err)
		}

		entry := domain.LedgerEntry{DocumentNumber: row.NumDocumento.StringVal}
		if row.ValorDocumento.Valid {
			entry.DocumentValue = decimal.NewFromFloat(row.ValorDocumento.Float64)
		}
		if row.ValorPagoTotal.Valid {
			entry.PaidValueTotal = decimal.NewFromFloat(row.ValorPagoTotal.Float64)
		}
		entries = append(entries, entry)
	}

	logger.Debug("Ledger lookup %q: %d row(s)", documentID, len(entries))
	return entries, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
