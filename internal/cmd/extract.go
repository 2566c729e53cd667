package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SaketSinghRajput/honeycomb/internal/intel"
)

var extractText string

var extractCmd = &cobra.Command{
	Use:   "extract [transcript]",
	Short: "Extract scam intelligence from a transcript",
	Long: `Runs the report-time entity extractors over a transcript and prints the
structured intelligence as JSON: entities, contact info, payment methods,
high-risk indicators, and per-type confidence scores.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractText, "text", "t", "", "transcript text (alternative to positional argument)")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "extract")
	defer span.End()

	text := extractText
	if text == "" && len(args) > 0 {
		text = args[0]
	}
	if text == "" {
		return fmt.Errorf("transcript required: pass --text or a positional argument")
	}

	rich := intel.MustNewRich()
	res, err := rich.Extract(ctx, text)
	if err != nil {
		return fmt.Errorf("extracting intelligence: %w", err)
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
