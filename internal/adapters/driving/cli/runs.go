package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var runsExportOutput string

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List past analysis runs",
	RunE:  runRunsList,
}

var runsExportCmd = &cobra.Command{
	Use:   "export [run-id]",
	Short: "Re-export a stored run to a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsExport,
}

func init() {
	runsExportCmd.Flags().StringVarP(&runsExportOutput, "output", "o", "", "output spreadsheet path (default analise_nf_<timestamp>.xlsx)")
	runsCmd.AddCommand(runsExportCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRunsList(cmd *cobra.Command, _ []string) error {
	store, err := openRunStore()
	if err != nil {
		return err
	}

	runs, err := store.ListRuns(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	if len(runs) == 0 {
		cmd.Println("No runs recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tDOCUMENTS\tROWS\tOUTPUT")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			run.ID,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Documents,
			run.Rows,
			run.Output,
		)
	}
	return w.Flush()
}

func runRunsExport(cmd *cobra.Command, args []string) error {
	store, err := openRunStore()
	if err != nil {
		return err
	}

	run, err := store.GetRun(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("loading run %s: %w", args[0], err)
	}

	rows, err := store.GetRows(cmd.Context(), run.ID)
	if err != nil {
		return fmt.Errorf("loading rows for run %s: %w", run.ID, err)
	}

	output := runsExportOutput
	if output == "" {
		output = defaultOutputName(run.FinishedAt)
	}
	if err := reportWriter.Write(rows, output); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	cmd.Printf("Exported %d row(s) to %s\n", len(rows), output)
	return nil
}
