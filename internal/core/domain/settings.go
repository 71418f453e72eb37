package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settings is the explicit configuration value threaded into the pipeline
// constructors. It is never process-wide mutable state: concurrent batch
// runs may carry different settings and tests inject fixed values.
type Settings struct {
	// Tolerance is the absolute tolerance (in currency units) for the
	// values-equal comparison. A difference of exactly Tolerance still
	// counts as equal.
	Tolerance decimal.Decimal

	// CallTimeout bounds each external call (extraction, ledger lookup).
	CallTimeout time.Duration

	// MaxRetries is the number of additional attempts allowed after a
	// failed external call before the document is marked degraded.
	MaxRetries int

	// Concurrency bounds the number of documents processed in parallel
	// in batch mode.
	Concurrency int

	// MaxPDFSizeMB is the size limit for documents sent to the
	// extraction service.
	MaxPDFSizeMB int

	// DocumentTypes is the set of document types the extraction prompt
	// asks the model to recognise. Consumed by the extraction adapter,
	// not by the core.
	DocumentTypes []string

	// Gemini configures the document-understanding service.
	Gemini GeminiSettings

	// BigQuery configures the declared-expenses ledger.
	BigQuery BigQuerySettings
}

// GeminiSettings configures the Gemini extraction adapter.
type GeminiSettings struct {
	// Model is the Gemini model name.
	Model string

	// Temperature, TopP, TopK and MaxOutputTokens are passed through as
	// generation config.
	Temperature     float64
	TopP            float64
	TopK            int
	MaxOutputTokens int
}

// BigQuerySettings configures the BigQuery ledger adapter.
type BigQuerySettings struct {
	// Enabled toggles ledger lookups. When false an empty in-memory
	// ledger is used and every record is validated without ledger data.
	Enabled bool

	// ProjectID, Dataset and Table locate the declared-expenses table.
	ProjectID string
	Dataset   string
	Table     string

	// CredentialsFile is the path to a service-account JSON key.
	CredentialsFile string
}

// DefaultSettings returns the settings used when no config file exists.
func DefaultSettings() Settings {
	return Settings{
		Tolerance:    decimal.RequireFromString("0.01"),
		CallTimeout:  120 * time.Second,
		MaxRetries:   1,
		Concurrency:  4,
		MaxPDFSizeMB: 100,
		DocumentTypes: []string{
			"nota fiscal",
			"danfe",
			"fatura telefonia",
			"fatura concessionária",
			"fatura",
			"nf",
			"nfe",
			"nf-e",
		},
		Gemini: GeminiSettings{
			Model:           "gemini-1.5-flash",
			Temperature:     0.1,
			TopP:            0.95,
			TopK:            64,
			MaxOutputTokens: 8192,
		},
		BigQuery: BigQuerySettings{
			Enabled: false,
			Table:   "despesas",
		},
	}
}
