package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/osinfo-labs/fiscalia/internal/core/domain"
	"github.com/osinfo-labs/fiscalia/internal/core/ports/driving"
	"github.com/osinfo-labs/fiscalia/internal/logger"
)

var watchOutputDir string

// settleDelay gives writers time to finish before a new file is read.
const settleDelay = 2 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a directory and analyze PDFs as they arrive",
	Long: `Watches a directory and analyzes every PDF dropped into it. Each
document gets its own Excel report next to the source file, or under
--output-dir when set. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchOutputDir, "output-dir", "", "directory for generated reports (default alongside the PDF)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := args[0]
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
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

	pipeline := newPipeline(extractor, ledger)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Watching %s for PDFs. Press Ctrl-C to stop.\n", dir)

	for {
		select {
		case <-ctx.Done():
			cmd.Println("Stopped.")
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) || !isPDF(event.Name) {
				continue
			}
			if err := analyzeArrival(ctx, cmd, pipeline, event.Name); err != nil {
				if ctx.Err() != nil {
					cmd.Println("Stopped.")
					return nil
				}
				logger.Warn("Skipping %s: %v", filepath.Base(event.Name), err)
			}
		}
	}
}

// analyzeArrival processes one newly created PDF and writes its report.
func analyzeArrival(ctx context.Context, cmd *cobra.Command, pipeline driving.DocumentAnalyzer, path string) error {
	// The create event fires before the writer finishes.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(settleDelay):
	}

	doc := domain.SourceDocument{Name: filepath.Base(path), Path: path}
	cmd.Printf("Analyzing %s...\n", doc.Name)

	result, err := pipeline.Analyze(ctx, doc)
	if err != nil {
		return err
	}

	output := watchReportPath(path)
	if err := reportWriter.Write(result.Rows, output); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	cmd.Printf("  %s: %d row(s) -> %s\n", doc.Name, len(result.Rows), output)
	if result.Degraded {
		cmd.Println("  Warning: analyzed without ledger data.")
	}
	return nil
}

// watchReportPath derives the report location for an incoming PDF.
func watchReportPath(pdfPath string) string {
	base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	name := fmt.Sprintf("analise_nf_%s.xlsx", base)
	if watchOutputDir != "" {
		return filepath.Join(watchOutputDir, name)
	}
	return filepath.Join(filepath.Dir(pdfPath), name)
}
