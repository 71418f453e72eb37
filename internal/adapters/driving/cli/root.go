// Package cli provides the fiscalia command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/osinfo-labs/fiscalia/internal/adapters/driven/config/file"
	"github.com/osinfo-labs/fiscalia/internal/adapters/driven/extraction/gemini"
	"github.com/osinfo-labs/fiscalia/internal/adapters/driven/ledger/bigquery"
	"github.com/osinfo-labs/fiscalia/internal/adapters/driven/ledger/memory"
	"github.com/osinfo-labs/fiscalia/internal/adapters/driven/pdf"
	"github.com/osinfo-labs/fiscalia/internal/adapters/driven/report/excel"
	"github.com/osinfo-labs/fiscalia/internal/adapters/driven/storage/sqlite"
	"github.com/osinfo-labs/fiscalia/internal/core/domain"
	"github.com/osinfo-labs/fiscalia/internal/core/ports/driven"
	"github.com/osinfo-labs/fiscalia/internal/core/services"
	"github.com/osinfo-labs/fiscalia/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

var verbose bool

// Services wired for the commands. Tests may swap these for mocks.
var (
	appSettings   domain.Settings
	settingsStore driven.SettingsStore
	runStore      driven.RunStore
	reportWriter  driven.ReportWriter
	pageCounter   driven.PageCounter
)

var rootCmd = &cobra.Command{
	Use:   "fiscalia",
	Short: "Audit accountability PDFs against the declared-expenses ledger",
	Long: `fiscalia extracts invoice data from accountability PDFs with Gemini
document understanding, cross-checks each invoice against the
declared-expenses ledger, and classifies every record as cleared,
suspect, or unanalyzable in an Excel report.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		return initServices()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// Execute runs the root command.
func Execute() {
	// Environment overrides (.env in the working directory) load before
	// any command runs; missing file is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// initServices loads settings and wires the shared driven adapters.
// The extraction source and ledger store are created per command because
// they depend on credentials only the analyze commands need.
func initServices() error {
	if settingsStore == nil {
		store, err := file.NewSettingsStore(os.Getenv("FISCALIA_CONFIG_DIR"))
		if err != nil {
			return fmt.Errorf("opening settings store: %w", err)
		}
		settingsStore = store
	}

	settings, err := settingsStore.Load()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	applyEnvOverrides(&settings)
	appSettings = settings

	if reportWriter == nil {
		reportWriter = excel.New()
	}
	if pageCounter == nil {
		pageCounter = pdf.New()
	}
	return nil
}

// applyEnvOverrides lets .env values override the stored settings, the
// way the original deployment was configured.
func applyEnvOverrides(settings *domain.Settings) {
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		settings.Gemini.Model = v
	}
	if v := os.Getenv("BIGQUERY_ENABLED"); v != "" {
		settings.BigQuery.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("BIGQUERY_PROJECT_ID"); v != "" {
		settings.BigQuery.ProjectID = v
	}
	if v := os.Getenv("BIGQUERY_DATASET"); v != "" {
		settings.BigQuery.Dataset = v
	}
	if v := os.Getenv("BIGQUERY_TABLE"); v != "" {
		settings.BigQuery.Table = v
	}
	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" {
		settings.BigQuery.CredentialsFile = v
	}
}

// openRunStore opens the run-history store lazily; commands that never
// touch history skip the database entirely.
func openRunStore() (driven.RunStore, error) {
	if runStore != nil {
		return runStore, nil
	}
	store, err := sqlite.NewStore(os.Getenv("FISCALIA_DATA_DIR"))
	if err != nil {
		return nil, fmt.Errorf("opening run store: %w", err)
	}
	runStore = store
	return runStore, nil
}

// newExtractor builds the Gemini extraction source from settings and the
// GEMINI_API_KEY environment variable.
func newExtractor(settings domain.Settings) (driven.ExtractionSource, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	return gemini.New(gemini.Config{
		APIKey:          apiKey,
		BaseURL:         os.Getenv("GEMINI_BASE_URL"),
		Model:           settings.Gemini.Model,
		Temperature:     settings.Gemini.Temperature,
		TopP:            settings.Gemini.TopP,
		TopK:            settings.Gemini.TopK,
		MaxOutputTokens: settings.Gemini.MaxOutputTokens,
		Timeout:         settings.CallTimeout,
		MaxPDFSizeMB:    settings.MaxPDFSizeMB,
		DocumentTypes:   settings.DocumentTypes,
	})
}

// newLedger builds the ledger store. With BigQuery disabled an empty
// in-memory ledger serves lookups, so every invoice is validated without
// ledger data and flagged accordingly.
func newLedger(cmd *cobra.Command, settings domain.Settings) (driven.LedgerEntryStore, error) {
	if !settings.BigQuery.Enabled {
		cmd.Println("BigQuery disabled: invoices will be validated without ledger data.")
		return memory.New(), nil
	}
	store, err := bigquery.New(cmd.Context(), bigquery.Config{
		ProjectID:       settings.BigQuery.ProjectID,
		Dataset:         settings.BigQuery.Dataset,
		Table:           settings.BigQuery.Table,
		CredentialsFile: settings.BigQuery.CredentialsFile,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to BigQuery: %w", err)
	}
	return store, nil
}

// newPipeline assembles the analysis pipeline from the wired adapters.
func newPipeline(extractor driven.ExtractionSource, ledger driven.LedgerEntryStore) *services.AnalysisPipeline {
	return services.NewAnalysisPipeline(extractor, ledger, pageCounter, services.DefaultMatchRule(), appSettings)
}
