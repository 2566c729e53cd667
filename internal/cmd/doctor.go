package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/SaketSinghRajput/honeycomb/internal/archive"
	"github.com/SaketSinghRajput/honeycomb/internal/config"
	"github.com/SaketSinghRajput/honeycomb/internal/intel"
	"github.com/SaketSinghRajput/honeycomb/internal/safety"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run preflight checks (data dir, patterns, LLM config, SQLite)",
	Long:  "Verifies the data directory is writable, embedded patterns compile, the LLM provider is configured, and the reports database is usable.",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

//nolint:gocyclo // preflight runs a linear sequence of independent checks
func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	out := cmd.OutOrStdout()
	ok := true

	// 1. Data directory writable
	dataDir := cfg.DataDir
	if err := cfg.EnsureDataDir(); err != nil {
		fmt.Fprintf(out, "✗ Data directory: %s — %v\n", dataDir, err)
		ok = false
	} else {
		// Check writable
		testFile := filepath.Join(dataDir, ".doctor-write-test")
		if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
			fmt.Fprintf(out, "✗ Data directory: %s not writable — %v\n", dataDir, err)
			ok = false
		} else {
			_ = os.Remove(testFile)
			fmt.Fprintf(out, "✓ Data directory: %s (writable)\n", dataDir)
		}
	}

	// 2. Embedded patterns compile
	if ex, err := intel.NewExtractor(); err != nil {
		fmt.Fprintf(out, "✗ Intel patterns: %v\n", err)
		ok = false
	} else {
		fmt.Fprintf(out, "✓ Intel patterns: %d recognizers\n", ex.RecognizerCount())
	}
	if f, err := safety.NewFilter(); err != nil {
		fmt.Fprintf(out, "✗ Safety rules: %v\n", err)
		ok = false
	} else {
		fmt.Fprintf(out, "✓ Safety rules: %d rules\n", f.RuleCount())
	}

	// 3. LLM provider configured
	switch cfg.LLMMode {
	case config.LLMModeRemote:
		if cfg.LLMAPIKey == "" {
			fmt.Fprintf(out, "✗ LLM provider: mode remote but no API key (set HONEYCOMB_LLM_API_KEY or OPENAI_API_KEY)\n")
			ok = false
		} else {
			fmt.Fprintf(out, "✓ LLM provider: remote, model %s\n", cfg.LLMModel)
		}
	default:
		fmt.Fprintf(out, "✓ LLM provider: local (%s), model %s\n", cfg.LLMBaseURL, cfg.LLMModel)
	}

	// 4. Signing key (warn if default)
	if cfg.UsingDefaultSigningKey() {
		fmt.Fprintf(out, "⚠ Signing key: using generated default — set HONEYCOMB_ARCHIVE_SIGNING_KEY for production\n")
	} else {
		fmt.Fprintf(out, "✓ Signing key: configured\n")
	}

	// 5. SQLite reports archive
	store, err := archive.NewStore(cfg.ReportsDBPath(), cfg.SigningKey)
	if err != nil {
		fmt.Fprintf(out, "✗ Reports DB: %v\n", err)
		ok = false
	} else {
		_ = store.Close()
		fmt.Fprintf(out, "✓ Reports DB: %s\n", cfg.ReportsDBPath())
	}

	// 6. Callback endpoint configured
	if cfg.CallbackURL == "" {
		fmt.Fprintf(out, "⚠ Callback: not configured — final reports will be archived but not delivered\n")
	} else {
		fmt.Fprintf(out, "✓ Callback: %s\n", cfg.CallbackURL)
	}

	if !ok {
		return fmt.Errorf("preflight checks failed")
	}
	fmt.Fprintf(out, "\nAll checks passed.\n")
	return nil
}
