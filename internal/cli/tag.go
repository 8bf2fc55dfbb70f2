package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"releve/internal/services"
)

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Match every activity against the tag patterns",
	RunE:  runTag,
}

func init() {
	rootCmd.AddCommand(tagCmd)
}

func runTag(cmd *cobra.Command, args []string) error {
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

	n, err := services.NewTagger(res.Ledger).Tag(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Tagged %d activities\n", n)
	return nil
}
