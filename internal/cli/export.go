package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"releve/internal/export"
)

var (
	exportValue string
	exportOut   string
)

var exportCmd = &cobra.Command{
	Use:     "export",
	Short:   "Write the monthly spend of some tags to an .xlsx workbook",
	Example: "  releve export --value LOYER,PARIS --out rent.xlsx",
	RunE:    runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportValue, "value", "", "Comma separated tags; activities must carry all of them")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default: spend-<tags>.xlsx)")
	_ = exportCmd.MarkFlagRequired("value")
}

func runExport(cmd *cobra.Command, args []string) error {
	tags := splitTags(exportValue)
	if len(tags) == 0 {
		return fmt.Errorf("--value names no tag")
	}

	cfg, err := LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger := SetupLogger(cfg.LogLevel)

	res, err := OpenBackend(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer res.Cleanup()

	months, err := res.Ledger.StatsPerMonthByTag(cmd.Context(), tags)
	if err != nil {
		return fmt.Errorf("load stats: %w", err)
	}
	buf, err := export.SpendWorkbook(tags, months)
	if err != nil {
		return err
	}

	out := exportOut
	if out == "" {
		out = export.FileName(tags)
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d month(s) to %s\n", len(months), out)
	return nil
}

func splitTags(value string) []string {
	var tags []string
	for _, t := range strings.Split(value, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
