package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osinfo-labs/fiscalia/internal/adapters/driven/storage/sqlite"
	"github.com/osinfo-labs/fiscalia/internal/core/domain"
)

// useTempRunStore points the command wiring at a fresh history database.
func useTempRunStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.NewStore(t.TempDir())
	require.NoError(t, err)
	previous := runStore
	runStore = store
	t.Cleanup(func() {
		runStore = previous
		store.Close()
	})
	return store
}

func seedRun(t *testing.T, store *sqlite.Store, id string) domain.Run {
	t.Helper()
	run := domain.Run{
		ID:         id,
		StartedAt:  time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 8, 29, 10, 3, 0, 0, time.UTC),
		Documents:  1,
		Rows:       1,
		Output:     "analise_nf_20260829_100300.xlsx",
	}
	rows := []domain.ReportRow{
		{
			FileName:       "OS-2024-0117.pdf",
			TotalPages:     12,
			ProviderTaxID:  "12.345.678/0001-90",
			DocumentType:   "nota fiscal",
			Classification: domain.ClassSuspect,
		},
	}
	require.NoError(t, store.SaveRun(context.Background(), run, rows))
	return run
}

func TestRunsCmd_EmptyHistory(t *testing.T) {
	t.Setenv("FISCALIA_CONFIG_DIR", t.TempDir())
	useTempRunStore(t)

	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetArgs([]string{"runs"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, out.String(), "No runs recorded yet.")
}

func TestRunsCmd_ListsStoredRuns(t *testing.T) {
	t.Setenv("FISCALIA_CONFIG_DIR", t.TempDir())
	store := useTempRunStore(t)
	run := seedRun(t, store, "run-list-1")

	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetArgs([]string{"runs"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, out.String(), run.ID)
	assert.Contains(t, out.String(), "2026-08-29 10:00:00")
	assert.Contains(t, out.String(), run.Output)
}

func TestRunsExportCmd_WritesSpreadsheet(t *testing.T) {
	t.Setenv("FISCALIA_CONFIG_DIR", t.TempDir())
	store := useTempRunStore(t)
	run := seedRun(t, store, "run-export-1")

	output := filepath.Join(t.TempDir(), "reexport.xlsx")

	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetArgs([]string{"runs", "export", run.ID, "-o", output})
	defer func() {
		rootCmd.SetArgs(nil)
		runsExportOutput = ""
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.FileExists(t, output)
	assert.Contains(t, out.String(), "Exported 1 row(s)")
}

func TestRunsExportCmd_UnknownRun(t *testing.T) {
	t.Setenv("FISCALIA_CONFIG_DIR", t.TempDir())
	useTempRunStore(t)

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"runs", "export", "missing"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
