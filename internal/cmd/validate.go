package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/SaketSinghRajput/honeycomb/internal/intel"
	"github.com/SaketSinghRajput/honeycomb/internal/safety"
)

var (
	validatePatterns string
	validateSafety   string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate intel pattern and safety rule files",
	Long:  "Compiles pattern and safety rule YAML overlaid on the embedded defaults, so a bad override is caught before serve picks it up",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		_, span := tracer.Start(ctx, "validate")
		defer span.End()

		if validatePatterns != "" {
			pf, err := intel.LoadPatternFile(validatePatterns)
			if err == nil && pf == nil {
				err = fmt.Errorf("file not found")
			}
			var ex *intel.Extractor
			if err == nil {
				ex, err = intel.NewExtractor(intel.WithPatternFile(validatePatterns))
			}
			if err == nil {
				// The enricher set compiles from the same file.
				_, err = intel.NewRich(intel.WithPatternFile(validatePatterns))
			}
			if err != nil {
				log.Error().
					Err(err).
					Str("file", validatePatterns).
					Msg("Pattern validation failed")
				fmt.Fprintf(os.Stderr, "✗ Validation failed: %s\n", validatePatterns)
				return fmt.Errorf("validation failed: %w", err)
			}

			fmt.Printf("✓ Intel patterns valid: %s\n", validatePatterns)
			fmt.Printf("  Recognizers: %d\n", ex.RecognizerCount())
		}

		if validateSafety != "" {
			rf, err := safety.LoadRuleFile(validateSafety)
			if err == nil && rf == nil {
				err = fmt.Errorf("file not found")
			}
			var f *safety.Filter
			if err == nil {
				f, err = safety.NewFilter(safety.WithRuleFile(validateSafety))
			}
			if err != nil {
				log.Error().
					Err(err).
					Str("file", validateSafety).
					Msg("Safety rule validation failed")
				fmt.Fprintf(os.Stderr, "✗ Validation failed: %s\n", validateSafety)
				return fmt.Errorf("validation failed: %w", err)
			}

			fmt.Printf("✓ Safety rules valid: %s\n", validateSafety)
			fmt.Printf("  Rules: %d\n", f.RuleCount())
		}

		if validatePatterns == "" && validateSafety == "" {
			// No overrides given; confirm the embedded defaults compile.
			ex, err := intel.NewExtractor()
			if err != nil {
				return fmt.Errorf("embedded intel patterns: %w", err)
			}
			if _, err := intel.NewRich(); err != nil {
				return fmt.Errorf("embedded enricher patterns: %w", err)
			}
			f, err := safety.NewFilter()
			if err != nil {
				return fmt.Errorf("embedded safety rules: %w", err)
			}
			fmt.Printf("✓ Embedded defaults valid\n")
			fmt.Printf("  Recognizers: %d\n", ex.RecognizerCount())
			fmt.Printf("  Rules: %d\n", f.RuleCount())
		}

		log.Info().
			Str("patterns", validatePatterns).
			Str("safety", validateSafety).
			Msg("Validation succeeded")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validatePatterns, "patterns", "p", "", "intel pattern YAML to validate")
	validateCmd.Flags().StringVar(&validateSafety, "safety", "", "safety rule YAML to validate")
}
