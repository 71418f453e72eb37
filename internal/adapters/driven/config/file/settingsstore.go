// Package file provides a TOML-backed settings store in the fiscalia
// config directory.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"

	"github.com/osinfo-labs/fiscalia/internal/core/domain"
	"github.com/osinfo-labs/fiscalia/internal/core/ports/driven"
)

// Ensure SettingsStore implements the interface.
var _ driven.SettingsStore = (*SettingsStore)(nil)

// SettingsStore persists settings to ~/.fiscalia/config.toml (or a custom
// directory). Missing file or missing fields fall back to defaults, so a
// fresh install works without any configuration step.
type SettingsStore struct {
	mu       sync.Mutex
	filePath string
}

// fileSettings is the on-disk TOML shape. The tolerance is stored as a
// string so the audit threshold round-trips exactly; a float field would
// silently distort it.
type fileSettings struct {
	Tolerance      string   `toml:"tolerance,omitempty"`
	CallTimeoutSec int      `toml:"call_timeout_seconds,omitempty"`
	MaxRetries     *int     `toml:"max_retries,omitempty"`
	Concurrency    int      `toml:"concurrency,omitempty"`
	MaxPDFSizeMB   int      `toml:"max_pdf_size_mb,omitempty"`
	DocumentTypes  []string `toml:"document_types,omitempty"`

	Gemini struct {
		Model           string  `toml:"model,omitempty"`
		Temperature     float64 `toml:"temperature,omitempty"`
		TopP            float64 `toml:"top_p,omitempty"`
		TopK            int     `toml:"top_k,omitempty"`
		MaxOutputTokens int     `toml:"max_output_tokens,omitempty"`
	} `toml:"gemini"`

	BigQuery struct {
		Enabled         bool   `toml:"enabled"`
		ProjectID       string `toml:"project_id,omitempty"`
		Dataset         string `toml:"dataset,omitempty"`
		Table           string `toml:"table,omitempty"`
		CredentialsFile string `toml:"credentials_file,omitempty"`
	} `toml:"bigquery"`
}

// NewSettingsStore creates a store rooted at configDir. An empty
// configDir defaults to ~/.fiscalia.
func NewSettingsStore(configDir string) (*SettingsStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".fiscalia")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	return &SettingsStore{filePath: filepath.Join(configDir, "config.toml")}, nil
}

// Load reads the stored settings. A missing file yields the defaults;
// fields absent from the file keep their default value.
func (s *SettingsStore) Load() (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := domain.DefaultSettings()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, err
	}

	var stored fileSettings
	if err := toml.Unmarshal(data, &stored); err != nil {
		return settings, fmt.Errorf("parse %s: %w", s.filePath, err)
	}

	if stored.Tolerance != "" {
		tol, err := decimal.NewFromString(stored.Tolerance)
		if err != nil {
			return settings, fmt.Errorf("%w: tolerance %q", domain.ErrInvalidInput, stored.Tolerance)
		}
		settings.Tolerance = tol
	}
	if stored.CallTimeoutSec > 0 {
		settings.CallTimeout = time.Duration(stored.CallTimeoutSec) * time.Second
	}
	if stored.MaxRetries != nil && *stored.MaxRetries >= 0 {
		settings.MaxRetries = *stored.MaxRetries
	}
	if stored.Concurrency > 0 {
		settings.Concurrency = stored.Concurrency
	}
	if stored.MaxPDFSizeMB > 0 {
		settings.MaxPDFSizeMB = stored.MaxPDFSizeMB
	}
	if len(stored.DocumentTypes) > 0 {
		settings.DocumentTypes = stored.DocumentTypes
	}

	if stored.Gemini.Model != "" {
		settings.Gemini.Model = stored.Gemini.Model
	}
	if stored.Gemini.Temperature > 0 {
		settings.Gemini.Temperature = stored.Gemini.Temperature
	}
	if stored.Gemini.TopP > 0 {
		settings.Gemini.TopP = stored.Gemini.TopP
	}
	if stored.Gemini.TopK > 0 {
		settings.Gemini.TopK = stored.Gemini.TopK
	}
	if stored.Gemini.MaxOutputTokens > 0 {
		settings.Gemini.MaxOutputTokens = stored.Gemini.MaxOutputTokens
	}

	settings.BigQuery.Enabled = stored.BigQuery.Enabled
	if stored.BigQuery.ProjectID != "" {
		settings.BigQuery.ProjectID = stored.BigQuery.ProjectID
	}
	if stored.BigQuery.Dataset != "" {
		settings.BigQuery.Dataset = stored.BigQuery.Dataset
	}
	if stored.BigQuery.Table != "" {
		settings.BigQuery.Table = stored.BigQuery.Table
	}
	if stored.BigQuery.CredentialsFile != "" {
		settings.BigQuery.CredentialsFile = stored.BigQuery.CredentialsFile
	}

	return settings, nil
}

// Save persists the settings to the TOML file.
func (s *SettingsStore) Save(settings domain.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stored fileSettings
	stored.Tolerance = settings.Tolerance.String()
	stored.CallTimeoutSec = int(settings.CallTimeout / time.Second)
	retries := settings.MaxRetries
	stored.MaxRetries = &retries
	stored.Concurrency = settings.Concurrency
	stored.MaxPDFSizeMB = settings.MaxPDFSizeMB
	stored.DocumentTypes = settings.DocumentTypes

	stored.Gemini.Model = settings.Gemini.Model
	stored.Gemini.Temperature = settings.Gemini.Temperature
	stored.Gemini.TopP = settings.Gemini.TopP
	stored.Gemini.TopK = settings.Gemini.TopK
	stored.Gemini.MaxOutputTokens = settings.Gemini.MaxOutputTokens

	stored.BigQuery.Enabled = settings.BigQuery.Enabled
	stored.BigQuery.ProjectID = settings.BigQuery.ProjectID
	stored.BigQuery.Dataset = settings.BigQuery.Dataset
	stored.BigQuery.Table = settings.BigQuery.Table
	stored.BigQuery.CredentialsFile = settings.BigQuery.CredentialsFile

	data, err := toml.Marshal(stored)
	if err != nil {
		return err
	}

	// Write with restricted permissions
	return os.WriteFile(s.filePath, data, 0600)
}

// Path returns the configuration file path.
func (s *SettingsStore) Path() string {
	return s.filePath
}
