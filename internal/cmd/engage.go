package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/SaketSinghRajput/honeycomb/internal/config"
	"github.com/SaketSinghRajput/honeycomb/internal/engage"
	"github.com/SaketSinghRajput/honeycomb/internal/intel"
	"github.com/SaketSinghRajput/honeycomb/internal/llm"
	"github.com/SaketSinghRajput/honeycomb/internal/safety"
	"github.com/SaketSinghRajput/honeycomb/internal/session"
)

var (
	engageSession string
	engageText    string
)

var engageCmd = &cobra.Command{
	Use:   "engage",
	Short: "Run one decoy conversation turn from the command line",
	Long: `Sends one scammer message through the full engagement pipeline (persona
reply, safety filter, intelligence extraction) and prints the turn result
as JSON. Useful for persona tuning. Sessions live in memory, so each
invocation starts a fresh conversation.`,
	RunE: runEngage,
}

func init() {
	engageCmd.Flags().StringVar(&engageSession, "session", "", "session ID (default: random UUID)")
	engageCmd.Flags().StringVarP(&engageText, "text", "t", "", "scammer message text (required)")
	_ = engageCmd.MarkFlagRequired("text")
	rootCmd.AddCommand(engageCmd)
}

func runEngage(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "engage")
	defer span.End()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	provider, err := llm.New(cfg.LLMMode, cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout)
	if err != nil {
		return fmt.Errorf("initializing llm provider: %w", err)
	}

	orchestrator := engage.New(
		session.NewStore(),
		provider,
		safety.MustNewFilter(),
		intel.MustNewExtractor(),
		nil,
		engage.Options{
			Persona:             cfg.Persona,
			Model:               cfg.LLMModel,
			Temperature:         cfg.LLMTemperature,
			MaxTokens:           cfg.LLMMaxTokens,
			MemoryTurns:         cfg.MemoryTurns,
			MinTurns:            cfg.MinTurns,
			MaxTurns:            cfg.MaxTurns,
			TerminationKeywords: cfg.TerminationKeywords,
		},
	)

	sessionID := engageSession
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	res, err := orchestrator.ProcessTurn(ctx, sessionID, engageText, nil)
	if err != nil {
		return fmt.Errorf("processing turn: %w", err)
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
