package driven

import (
	"context"

	"github.com/osinfo-labs/fiscalia/internal/core/domain"
)

// ReportWriter exports report rows to a tabular file, one row per
// ReportRow, with the classification rendered as its localised label.
type ReportWriter interface {
	// Write renders the rows to the file at path, creating or
	// overwriting it.
	Write(rows []domain.ReportRow, path string) error
}

// RunStore persists batch run history so past analyses can be listed and
// re-exported.
type RunStore interface {
	// SaveRun stores a completed run together with its report rows.
	SaveRun(ctx context.Context, run domain.Run, rows []domain.ReportRow) error

	// ListRuns returns all stored runs, most recent first.
	ListRuns(ctx context.Context) ([]domain.Run, error)

	// GetRun returns a single run by ID, or domain.ErrNotFound.
	GetRun(ctx context.Context, id string) (*domain.Run, error)

	// GetRows returns the report rows of a stored run.
	GetRows(ctx context.Context, runID string) ([]domain.ReportRow, error)

	// Close releases resources.
	Close() error
}

// SettingsStore loads and persists the application settings.
type SettingsStore interface {
	// Load returns the stored settings, falling back to defaults for
	// missing fields.
	Load() (domain.Settings, error)

	// Save persists the settings.
	Save(domain.Settings) error

	// Path returns the location of the backing file.
	Path() string
}
