package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"forum-importer/core/config"
	"forum-importer/core/database"
	"forum-importer/core/logger"
	"forum-importer/core/reconcile"
	"forum-importer/core/storage"
	"forum-importer/feature/forum"
	"forum-importer/feature/forum/importer"
	"forum-importer/feature/forum/records"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	importFile    string
	importObject  string
	importFormat  string
	clearExisting bool
	previewOnly   bool
	uploadReport  bool
	yesConfirm    bool
)

// importCmd runs the reconciliation pipeline over one record set.
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a foreign record set into the forum database",
	Long: `Reconcile a record set (JSON or YAML) against the forum database.

Entities are processed in dependency order: users, sections, categories, tags,
posts, post tags, comments, votes, then counters are recalculated. Existing
rows are never updated, so importing the same set twice creates nothing.

Examples:
  # Import a local export
  import --file export.json

  # Import from the storage bucket and upload the run report
  import --object exports/2024-05.yaml --report

  # Show what would be created without writing
  import --file export.json --preview

  # Wipe the forum first (with interactive confirmation)
  import --file export.json --clear

  # Wipe with auto-confirm (non-interactive)
  import --file export.json --clear --yes`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "Local record set path (- for stdin)")
	importCmd.Flags().StringVar(&importObject, "object", "", "Record set object key in the storage bucket")
	importCmd.Flags().StringVar(&importFormat, "format", "", "json or yaml (default: from extension)")
	importCmd.Flags().BoolVar(&clearExisting, "clear", false, "Purge every forum table before importing")
	importCmd.Flags().BoolVar(&previewOnly, "preview", false, "Report planned creates and skips without writing")
	importCmd.Flags().BoolVar(&uploadReport, "report", false, "Upload the result JSON to the storage bucket")
	importCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm destructive actions (non-interactive)")
	importCmd.MarkFlagsMutuallyExclusive("file", "object")
	importCmd.MarkFlagsOneRequired("file", "object")

	RootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer l.Sync()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("database connection required: %w", err)
	}

	var client storage.Client
	if importObject != "" || uploadReport {
		if client, err = storage.NewClient(cfg.Storage); err != nil {
			return fmt.Errorf("failed to connect to storage: %w", err)
		}
	}

	svc := forum.NewService(client, cfg.Storage, cfg.Import, l, db)
	if err := svc.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	set, err := loadRecordSet(ctx, svc)
	if err != nil {
		return err
	}
	l.Info("Record set loaded", zap.Int("records", set.Len()))

	if previewOnly {
		report, err := svc.Preview(ctx, set, clearExisting)
		if err != nil {
			return fmt.Errorf("failed to preview import: %w", err)
		}
		return printPreview(cmd.OutOrStdout(), report)
	}

	if clearExisting && !confirmDestructiveAction(cmd.InOrStdin(), cmd.OutOrStdout()) {
		l.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	resp, importErr := svc.Import(ctx, set, forum.ImportRequest{
		ClearExisting: clearExisting,
		UploadReport:  uploadReport,
	})
	if resp != nil && resp.Result != nil {
		if err := importer.WriteReport(cmd.OutOrStdout(), resp.Result); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		if resp.ReportKey != "" {
			l.Info("Report uploaded", zap.String("bucket", cfg.Storage.Bucket), zap.String("key", resp.ReportKey))
		}
	}
	if importErr != nil {
		return fmt.Errorf("import aborted: %w", importErr)
	}
	return nil
}

func loadRecordSet(ctx context.Context, svc *forum.Service) (*records.RecordSet, error) {
	var format records.Format
	if importFormat != "" {
		f, err := records.ParseFormat(importFormat)
		if err != nil {
			return nil, err
		}
		format = f
	}

	if importObject != "" {
		set, err := svc.LoadObject(ctx, importObject, format)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", importObject, err)
		}
		return set, nil
	}

	var r io.Reader = os.Stdin
	if importFile != "-" {
		f, err := os.Open(importFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open record set: %w", err)
		}
		defer f.Close()
		r = f
		if format == "" {
			format = records.FormatFromPath(importFile)
		}
	}
	if format == "" {
		format = records.FormatJSON
	}

	set, err := records.Decode(r, format)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", importFile, err)
	}
	return set, nil
}

// printPreview renders per-kind planned actions.
func printPreview(w io.Writer, report *reconcile.PreviewReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tCREATE\tSKIP\tKEEP\tPURGE")
	for _, kind := range importer.Kinds() {
		c, ok := report.Counts[kind]
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", kind, c.Create, c.Skip, c.Keep, c.Purge)
	}
	return tw.Flush()
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction(in io.Reader, out io.Writer) bool {
	if yesConfirm {
		fmt.Fprintln(out, "\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Fprint(out, "\n⚠️  This deletes every user, post, comment and vote. Type 'yes' to confirm: ")
	reader := bufio.NewReader(in)
	response, err := reader.ReadString('\n')
	if err != nil && response == "" {
		return false
	}

	return strings.TrimSpace(response) == "yes"
}
