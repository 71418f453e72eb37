package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/osinfo-labs/fiscalia/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage application settings",
	Long: `View and configure validation tolerance, concurrency, Gemini
generation parameters, and the BigQuery ledger connection.

Settings persist to the config file; .env values override them at run
time.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long: `Set a configuration value and persist it to the config file.

Available keys:
  tolerance             absolute tolerance for value comparison (e.g. 0.01)
  call_timeout_seconds  per-call timeout for external services
  max_retries           extra attempts after a failed external call
  concurrency           documents processed in parallel in batch mode
  max_pdf_size_mb       size limit for documents sent to extraction
  gemini.model          Gemini model name
  gemini.temperature    generation temperature
  bigquery.enabled      true/false
  bigquery.project_id   GCP project of the declared-expenses table
  bigquery.dataset      BigQuery dataset
  bigquery.table        BigQuery table
  bigquery.credentials  path to a service-account JSON key`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	settings, err := settingsStore.Load()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Analysis]")
	cmd.Printf("  Tolerance: %s\n", settings.Tolerance.String())
	cmd.Printf("  Call timeout: %s\n", settings.CallTimeout)
	cmd.Printf("  Max retries: %d\n", settings.MaxRetries)
	cmd.Printf("  Concurrency: %d\n", settings.Concurrency)
	cmd.Printf("  Max PDF size: %d MB\n", settings.MaxPDFSizeMB)
	cmd.Printf("  Document types: %s\n", strings.Join(settings.DocumentTypes, ", "))
	cmd.Println()

	cmd.Println("[Gemini]")
	cmd.Printf("  Model: %s\n", settings.Gemini.Model)
	cmd.Printf("  Temperature: %g\n", settings.Gemini.Temperature)
	cmd.Printf("  Top-P: %g\n", settings.Gemini.TopP)
	cmd.Printf("  Top-K: %d\n", settings.Gemini.TopK)
	cmd.Printf("  Max output tokens: %d\n", settings.Gemini.MaxOutputTokens)
	cmd.Println()

	cmd.Println("[BigQuery]")
	if settings.BigQuery.Enabled {
		cmd.Println("  Enabled: yes")
	} else {
		cmd.Println("  Enabled: no (invoices are validated without ledger data)")
	}
	cmd.Printf("  Project: %s\n", valueOrUnset(settings.BigQuery.ProjectID))
	cmd.Printf("  Dataset: %s\n", valueOrUnset(settings.BigQuery.Dataset))
	cmd.Printf("  Table: %s\n", valueOrUnset(settings.BigQuery.Table))
	cmd.Printf("  Credentials: %s\n", valueOrUnset(settings.BigQuery.CredentialsFile))
	cmd.Println()

	cmd.Printf("Config file: %s\n", settingsStore.Path())
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := strings.ToLower(args[0]), args[1]

	settings, err := settingsStore.Load()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	if err := applySetting(&settings, key, value); err != nil {
		return err
	}

	if err := settingsStore.Save(settings); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}

	cmd.Printf("Set %s = %s\n", key, value)
	return nil
}

func applySetting(settings *domain.Settings, key, value string) error {
	switch key {
	case "tolerance":
		tol, err := decimal.NewFromString(value)
		if err != nil || tol.IsNegative() {
			return fmt.Errorf("tolerance must be a non-negative number, got %q", value)
		}
		settings.Tolerance = tol
	case "call_timeout_seconds":
		n, err := parsePositiveInt(value)
		if err != nil {
			return fmt.Errorf("call_timeout_seconds: %w", err)
		}
		settings.CallTimeout = time.Duration(n) * time.Second
	case "max_retries":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("max_retries must be a non-negative integer, got %q", value)
		}
		settings.MaxRetries = n
	case "concurrency":
		n, err := parsePositiveInt(value)
		if err != nil {
			return fmt.Errorf("concurrency: %w", err)
		}
		settings.Concurrency = n
	case "max_pdf_size_mb":
		n, err := parsePositiveInt(value)
		if err != nil {
			return fmt.Errorf("max_pdf_size_mb: %w", err)
		}
		settings.MaxPDFSizeMB = n
	case "gemini.model":
		settings.Gemini.Model = value
	case "gemini.temperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("gemini.temperature must be a number, got %q", value)
		}
		settings.Gemini.Temperature = f
	case "bigquery.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("bigquery.enabled must be true or false, got %q", value)
		}
		settings.BigQuery.Enabled = b
	case "bigquery.project_id":
		settings.BigQuery.ProjectID = value
	case "bigquery.dataset":
		settings.BigQuery.Dataset = value
	case "bigquery.table":
		settings.BigQuery.Table = value
	case "bigquery.credentials":
		settings.BigQuery.CredentialsFile = value
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

func parsePositiveInt(value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("must be a positive integer, got %q", value)
	}
	return n, nil
}

func valueOrUnset(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}
