package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/SaketSinghRajput/honeycomb/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage honeycomb configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  "Prints the merged configuration from defaults, config file, and environment. Secrets are masked.",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, span := tracer.Start(cmd.Context(), "config.show")
		defer span.End()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Data directory: %s%s\n", cfg.DataDir, existsNote(dirExists(cfg.DataDir)))
		fmt.Fprintf(out, "Reports DB:     %s%s\n", cfg.ReportsDBPath(), existsNote(fileExists(cfg.ReportsDBPath())))
		if cfg.UsingDefaultSigningKey() {
			fmt.Fprintf(out, "Signing key:    generated default (set HONEYCOMB_ARCHIVE_SIGNING_KEY)\n")
		} else {
			fmt.Fprintf(out, "Signing key:    configured\n")
		}

		fmt.Fprintf(out, "\nServer\n")
		fmt.Fprintf(out, "  Port:        %d\n", cfg.ServerPort)
		if len(cfg.APIKeys) == 0 {
			fmt.Fprintf(out, "  API keys:    none (auth disabled)\n")
		} else {
			fmt.Fprintf(out, "  API keys:    %d configured\n", len(cfg.APIKeys))
		}
		fmt.Fprintf(out, "  Rate limits: %d rpm global, %d rpm per caller\n", cfg.RateGlobalRPM, cfg.RatePerCallerRPM)

		fmt.Fprintf(out, "\nLLM\n")
		fmt.Fprintf(out, "  Mode:     %s\n", cfg.LLMMode)
		fmt.Fprintf(out, "  Model:    %s\n", cfg.LLMModel)
		fmt.Fprintf(out, "  Base URL: %s\n", cfg.LLMBaseURL)
		fmt.Fprintf(out, "  API key:  %s\n", maskSecret(cfg.LLMAPIKey))

		fmt.Fprintf(out, "\nAgent\n")
		fmt.Fprintf(out, "  Memory turns: %d\n", cfg.MemoryTurns)
		fmt.Fprintf(out, "  Turn bounds:  %d..%d\n", cfg.MinTurns, cfg.MaxTurns)

		fmt.Fprintf(out, "\nDetection\n")
		fmt.Fprintf(out, "  Threshold:  %.2f\n", cfg.DetectThreshold)
		if cfg.DetectURL == "" {
			fmt.Fprintf(out, "  Classifier: keyword (builtin)\n")
		} else {
			fmt.Fprintf(out, "  Classifier: %s\n", cfg.DetectURL)
		}

		fmt.Fprintf(out, "\nSpeech\n")
		fmt.Fprintf(out, "  STT: %s\n", orDisabled(cfg.STTBaseURL))
		fmt.Fprintf(out, "  TTS: %s\n", orDisabled(cfg.TTSBaseURL))

		fmt.Fprintf(out, "\nCallback\n")
		if cfg.CallbackURL == "" {
			fmt.Fprintf(out, "  URL:     not configured\n")
		} else {
			fmt.Fprintf(out, "  URL:     %s\n", cfg.CallbackURL)
		}
		fmt.Fprintf(out, "  Timeout: %s\n", cfg.CallbackTimeout)

		fmt.Fprintf(out, "\nSession\n")
		fmt.Fprintf(out, "  Max age:        %s\n", cfg.SessionMaxAge)
		fmt.Fprintf(out, "  Sweep schedule: %s\n", cfg.SweepSchedule)

		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func existsNote(exists bool) string {
	if exists {
		return " (exists)"
	}
	return " (missing)"
}

// maskSecret shows only the first characters of a secret, matching what
// the auth logs expose.
func maskSecret(s string) string {
	if s == "" {
		return "not set"
	}
	if len(s) <= 8 {
		return "********"
	}
	return s[:8] + "..."
}

func orDisabled(url string) string {
	if url == "" {
		return "disabled"
	}
	return url
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
