package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/osinfo-labs/fiscalia/internal/core/domain"
	"github.com/osinfo-labs/fiscalia/internal/core/ports/driving"
	"github.com/osinfo-labs/fiscalia/internal/core/services"
	"github.com/osinfo-labs/fiscalia/internal/logger"
)

var (
	analyzeOutput string
	analyzeNoSave bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Analyze accountability PDFs",
	Long: `Analyzes one PDF or every PDF in a directory: invoice data is
extracted with Gemini, cross-checked against the declared-expenses
ledger, and the classified results are written to an Excel report.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "output spreadsheet path (default analise_nf_<timestamp>.xlsx)")
	analyzeCmd.Flags().BoolVar(&analyzeNoSave, "no-save", false, "skip recording the run in history")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	docs, err := collectDocuments(args[0])
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no PDF files found at %s", args[0])
	}

	extractor, err := newExtractor(appSettings)
	if err != nil {
		return err
	}
	defer extractor.Close()

	ledger, err := newLedger(cmd, appSettings)
	if err != nil {
		return err
	}
	defer ledger.Close()

	// Ctrl-C stops dispatching new documents; in-flight calls finish.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	batch := services.NewBatchAnalyzer(newPipeline(extractor, ledger), appSettings.Concurrency)

	cmd.Printf("Analyzing %d document(s)...\n", len(docs))
	bar := progressbar.NewOptions(len(docs),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("analyzing"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	started := time.Now()
	var rows []domain.ReportRow
	for result := range batch.Run(ctx, docs) {
		rows = append(rows, result.Rows...)
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	finished := time.Now()

	if err := ctx.Err(); err != nil {
		cmd.Println("Interrupted: partial results discarded.")
		return err
	}

	sortRows(rows)

	output := analyzeOutput
	if output == "" {
		output = defaultOutputName(finished)
	}
	if err := reportWriter.Write(rows, output); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	if !analyzeNoSave {
		if err := saveRun(cmd, started, finished, len(docs), rows, output); err != nil {
			// History is a convenience; the report already exists.
			logger.Warn("Could not record run: %v", err)
		}
	}

	printSummary(cmd, batch.Status(), rows, output)
	return nil
}

// collectDocuments resolves the argument to a sorted list of PDFs.
func collectDocuments(path string) ([]domain.SourceDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if !info.IsDir() {
		if !isPDF(path) {
			return nil, fmt.Errorf("%s is not a PDF file", path)
		}
		return []domain.SourceDocument{{Name: filepath.Base(path), Path: path}}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", path, err)
	}

	var docs []domain.SourceDocument
	for _, entry := range entries {
		if entry.IsDir() || !isPDF(entry.Name()) {
			continue
		}
		docs = append(docs, domain.SourceDocument{
			Name: entry.Name(),
			Path: filepath.Join(path, entry.Name()),
		})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

func isPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// sortRows orders the report by file name, keeping each document's rows
// in extraction order. Batch workers finish out of order, so without
// this the sheet order would vary between runs.
func sortRows(rows []domain.ReportRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].FileName < rows[j].FileName
	})
}

// defaultOutputName mirrors the timestamped name reviewers expect.
func defaultOutputName(t time.Time) string {
	return fmt.Sprintf("analise_nf_%s.xlsx", t.Format("20060102_150405"))
}

func saveRun(cmd *cobra.Command, started, finished time.Time, documents int, rows []domain.ReportRow, output string) error {
	store, err := openRunStore()
	if err != nil {
		return err
	}
	run := domain.Run{
		ID:         uuid.NewString(),
		StartedAt:  started,
		FinishedAt: finished,
		Documents:  documents,
		Rows:       len(rows),
		Output:     output,
	}
	if err := store.SaveRun(cmd.Context(), run, rows); err != nil {
		return err
	}
	logger.Debug("Recorded run %s", run.ID)
	return nil
}

func printSummary(cmd *cobra.Command, status driving.BatchStatus, rows []domain.ReportRow, output string) {
	var cleared, suspect, unanalyzable int
	for _, row := range rows {
		switch row.Classification {
		case domain.ClassCleared:
			cleared++
		case domain.ClassSuspect:
			suspect++
		default:
			unanalyzable++
		}
	}

	cmd.Println()
	cmd.Printf("Report: %s\n", output)
	cmd.Printf("  %s: %d\n", domain.ClassCleared.Label(), cleared)
	cmd.Printf("  %s: %d\n", domain.ClassSuspect.Label(), suspect)
	cmd.Printf("  %s: %d\n", domain.ClassUnanalyzable.Label(), unanalyzable)
	if status.Degraded > 0 {
		cmd.Printf("Warning: %d document(s) analyzed without ledger data.\n", status.Degraded)
	}
}
