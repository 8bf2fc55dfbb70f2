package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	applog "releve/internal/log"
	"releve/internal/services"
	"releve/internal/sheets/google"
	"releve/internal/statement"
)

var (
	importDir    string
	importSheets bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import bank statements",
	Long:  "Read every statement of a directory or of the configured spreadsheet ranges, store new activities and the latest balance, then tag them or notify the tagging worker",
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&importDir, "dir", "", "Statements directory (default: STATEMENTS_DIR)")
	importCmd.Flags().BoolVar(&importSheets, "sheets", false, "Read statements from Google Sheets instead of a directory")
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger := SetupLogger(cfg.LogLevel)
	ctx := cmd.Context()

	var src statement.Source
	if importSheets {
		if !cfg.SheetsConfigured() {
			return fmt.Errorf("--sheets needs GOOGLE_SPREADSHEET_ID and GOOGLE_SHEET_RANGE")
		}
		src, err = google.New(ctx, google.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			Ranges:             cfg.SheetRanges(),
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		})
		if err != nil {
			return err
		}
	} else {
		dir := importDir
		if dir == "" {
			dir = cfg.StatementsDir
		}
		src = statement.Dir{Path: dir, Options: statement.Options{Charset: cfg.StatementCharset}}
	}

	res, err := OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer res.Cleanup()

	importer := services.NewImporter(res.Ledger, services.NewTagger(res.Ledger), res.Publisher())
	result, err := importer.Import(ctx, src)
	if err != nil {
		return err
	}
	applog.NewStructuredLogger(logger).LogImport(ctx, result.Statements, result.Activities, result.Inserted, result.Tagged, result.Balance.Date.String())

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported %d statement(s): %d activities, %d new\n", result.Statements, result.Activities, result.Inserted)
	fmt.Fprintf(out, "Balance on %s: %s €\n", result.Balance.Date.Display(), result.Balance.Amount)
	if result.Published {
		fmt.Fprintln(out, "Tagging handed to the worker")
	} else {
		fmt.Fprintf(out, "Tagged %d activities\n", result.Tagged)
	}
	return nil
}
