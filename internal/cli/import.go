package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raphaelgruber/chatdb-go/internal/service"
	"github.com/spf13/cobra"
)

var (
	importCommitEvery int
	importFresh       bool
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a chat export into the database",
	Long: `Import an Open WebUI chat export into the SQLite database.

Without a file argument, the single *.json file in the current directory is
used; none or several is an error. Records already in the database are left
untouched, so importing the same export twice adds nothing.

Examples:
  chatdb import
  chatdb import export.json
  chatdb import export.json --db archive.db --commit-every 500
  chatdb import --fresh`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().IntVar(&importCommitEvery, "commit-every", 0, "records per commit (default $CHATDB_COMMIT_EVERY or 100)")
	importCmd.Flags().BoolVar(&importFresh, "fresh", false, "delete existing rows before importing")
}

func runImport(cmd *cobra.Command, args []string) error {
	// Resolve the input before touching the store.
	path, err := resolveInput(args, ".", cfg.InputPattern)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := openStore(ctx, storeReadWrite); err != nil {
		return err
	}
	if importFresh {
		if err := dbClient.WipeData(ctx); err != nil {
			return fmt.Errorf("clear database: %w", err)
		}
	}

	commitEvery := cfg.CommitEvery
	if importCommitEvery > 0 {
		commitEvery = importCommitEvery
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Importing %s into %s\n", path, cfg.DBPath)

	printer := newProgressPrinter(out, defaultTheme)
	svc := service.NewIngestService(dbClient, logger)
	result, err := svc.IngestFile(ctx, path, service.IngestOptions{
		CommitEvery: commitEvery,
		Progress:    printer.Update,
	})
	printer.Finish()
	if err != nil {
		logger.Error("import failed", "input", path, "error", err)
		return fmt.Errorf("import %s: %w", path, err)
	}

	printImportSummary(out, result, cfg.DBPath, defaultTheme, verbose)
	return nil
}

// printImportSummary writes the outcome of an import. Details adds timing
// statistics and the sampled failures.
func printImportSummary(w io.Writer, r *service.IngestResult, dbPath string, theme Theme, details bool) {
	fmt.Fprintln(w, theme.completedStyle().Render("✓ Import complete"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Records read:  %d\n", r.Records)
	fmt.Fprintf(w, "  Processed:     %d\n", r.Processed)
	if r.Failed > 0 {
		fmt.Fprintf(w, "  Failed:        %s\n", theme.errorStyle().Render(fmt.Sprint(r.Failed)))
	}
	fmt.Fprintln(w)
	printRowCounts(w, "Chats", r.Chats)
	printRowCounts(w, "Messages", r.Messages)
	if r.SkippedMessages > 0 {
		fmt.Fprintf(w, "  %-13s  %d skipped (no id or not an object)\n", "", r.SkippedMessages)
	}
	printRowCounts(w, "Tags", r.Tags)
	printRowCounts(w, "Models", r.ChatModels)
	fmt.Fprintf(w, "\n  Database:      %s (%d commits)\n", dbPath, r.Commits)

	if r.Failed > 0 && !details {
		fmt.Fprintln(w, theme.hintStyle().Render("\nRun with --verbose to list skipped records."))
	}
	if !details {
		return
	}

	if len(r.Failures) > 0 {
		fmt.Fprintln(w, theme.errorStyle().Render(fmt.Sprintf("\nSkipped records (%d):", r.Failed)))
		for _, f := range r.Failures {
			fmt.Fprintf(w, "  • %s\n", f.Error())
		}
		if more := r.Failed - len(r.Failures); more > 0 {
			fmt.Fprintf(w, "  … and %d more (see log)\n", more)
		}
	}

	if len(r.Metrics.Operations) > 0 {
		fmt.Fprintf(w, "\nTimings (%s total):\n", r.Metrics.Elapsed.Round(time.Millisecond))
		for _, op := range r.Metrics.Operations {
			fmt.Fprintf(w, "  %-8s %8d calls  avg %-10s max %s\n", op.Name, op.Count, op.Average, op.Max)
		}
	}
}

func printRowCounts(w io.Writer, label string, c service.RowCounts) {
	fmt.Fprintf(w, "  %-13s  %d new", label+":", c.Inserted)
	if c.Ignored > 0 {
		fmt.Fprintf(w, ", %d already present", c.Ignored)
	}
	fmt.Fprintln(w)
}
