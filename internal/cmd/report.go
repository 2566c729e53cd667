package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/SaketSinghRajput/honeycomb/internal/archive"
	"github.com/SaketSinghRajput/honeycomb/internal/callback"
	"github.com/SaketSinghRajput/honeycomb/internal/config"
)

var (
	reportsSession string
	reportsLimit   int
	reportsVerify  bool
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Summarize archived intelligence reports (counts, entities, delivery)",
	Long:  "Summarizes the report archive: delivery status, extracted entity totals, and recent records. With --verify each record's HMAC signature is re-checked.",
	RunE:  runReports,
}

func init() {
	reportsCmd.Flags().StringVar(&reportsSession, "session", "", "limit to one session ID")
	reportsCmd.Flags().IntVar(&reportsLimit, "limit", 20, "maximum records to list")
	reportsCmd.Flags().BoolVar(&reportsVerify, "verify", false, "re-verify HMAC signatures")
	rootCmd.AddCommand(reportsCmd)
}

//nolint:gocyclo // summary aggregates multiple report dimensions in one pass
func runReports(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	store, err := archive.NewStore(cfg.ReportsDBPath(), cfg.SigningKey)
	if err != nil {
		return fmt.Errorf("initializing report archive: %w", err)
	}
	defer store.Close()

	var records []archive.Record
	if reportsSession != "" {
		records, err = store.GetBySession(ctx, reportsSession)
	} else {
		records, err = store.List(ctx, reportsLimit)
	}
	if err != nil {
		return fmt.Errorf("listing reports: %w", err)
	}

	out := cmd.OutOrStdout()
	if reportsSession != "" {
		fmt.Fprintf(out, "Report archive summary — session %s\n", reportsSession)
	} else {
		fmt.Fprintf(out, "Report archive summary\n")
	}

	var delivered, totalMessages int
	entityCounts := make(map[string]int)
	for i := range records {
		rec := &records[i]
		if rec.Delivered {
			delivered++
		}
		var p callback.Payload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			continue
		}
		totalMessages += p.TotalMessagesExchanged
		entityCounts["bank_accounts"] += len(p.ExtractedIntelligence.BankAccounts)
		entityCounts["upi_ids"] += len(p.ExtractedIntelligence.UPIIDs)
		entityCounts["phishing_links"] += len(p.ExtractedIntelligence.PhishingLinks)
		entityCounts["phone_numbers"] += len(p.ExtractedIntelligence.PhoneNumbers)
		entityCounts["suspicious_keywords"] += len(p.ExtractedIntelligence.SuspiciousKeywords)
	}

	fmt.Fprintf(out, "  Records:          %d (%d delivered, %d pending)\n", len(records), delivered, len(records)-delivered)
	fmt.Fprintf(out, "  Messages engaged: %d\n", totalMessages)

	var withEntities []string
	for name, n := range entityCounts {
		if n > 0 {
			withEntities = append(withEntities, name)
		}
	}
	if len(withEntities) > 0 {
		sort.Strings(withEntities)
		fmt.Fprintf(out, "  Extracted entities:\n")
		for _, name := range withEntities {
			fmt.Fprintf(out, "    - %s: %d\n", name, entityCounts[name])
		}
	}

	if len(records) > 0 {
		fmt.Fprintf(out, "\nRecent reports:\n")
	}
	for i := range records {
		rec := &records[i]
		status := "pending"
		if rec.Delivered {
			status = "delivered"
		}
		line := fmt.Sprintf("  #%-4d %-24s %s  %s", rec.ID, rec.SessionID, rec.CreatedAt.Format(time.RFC3339), status)
		if reportsVerify {
			valid, err := store.Verify(ctx, rec.ID)
			switch {
			case err != nil:
				line += fmt.Sprintf("  [verify error: %v]", err)
			case valid:
				line += "  [signature ok]"
			default:
				line += "  [SIGNATURE MISMATCH]"
			}
		}
		fmt.Fprintln(out, line)
	}

	fmt.Fprintln(out)
	return nil
}
