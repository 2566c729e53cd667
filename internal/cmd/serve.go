package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/SaketSinghRajput/honeycomb/internal/archive"
	"github.com/SaketSinghRajput/honeycomb/internal/callback"
	"github.com/SaketSinghRajput/honeycomb/internal/config"
	"github.com/SaketSinghRajput/honeycomb/internal/detect"
	"github.com/SaketSinghRajput/honeycomb/internal/engage"
	"github.com/SaketSinghRajput/honeycomb/internal/intel"
	"github.com/SaketSinghRajput/honeycomb/internal/llm"
	"github.com/SaketSinghRajput/honeycomb/internal/safety"
	"github.com/SaketSinghRajput/honeycomb/internal/server"
	"github.com/SaketSinghRajput/honeycomb/internal/session"
	"github.com/SaketSinghRajput/honeycomb/internal/speech"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the honeypot server with session sweeps and report archival",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP server port (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

//nolint:gocyclo // orchestration flow is inherently branched
func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	cfg.WarnIfDefaultSigningKey()

	provider, err := llm.New(cfg.LLMMode, cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout)
	if err != nil {
		return fmt.Errorf("initializing llm provider: %w", err)
	}

	filter := safety.MustNewFilter()
	extractor := intel.MustNewExtractor()
	rich := intel.MustNewRich()
	classifier := detect.New(cfg.DetectURL, 0)

	store := session.NewStore()

	reports, err := archive.NewStore(cfg.ReportsDBPath(), cfg.SigningKey)
	if err != nil {
		return fmt.Errorf("initializing report archive: %w", err)
	}
	defer reports.Close()

	var reporter engage.Reporter
	if cfg.CallbackURL != "" {
		reporter = callback.NewReporter(cfg.CallbackURL, cfg.CallbackTimeout,
			callback.WithEnricher(rich),
			callback.WithArchive(reports),
		)
	} else {
		log.Warn().Msg("callback.url not set — final session reports will not be delivered. Set for production.")
	}

	orchestrator := engage.New(store, provider, filter, extractor, reporter, engage.Options{
		Persona:             cfg.Persona,
		Model:               cfg.LLMModel,
		Temperature:         cfg.LLMTemperature,
		MaxTokens:           cfg.LLMMaxTokens,
		MemoryTurns:         cfg.MemoryTurns,
		MinTurns:            cfg.MinTurns,
		MaxTurns:            cfg.MaxTurns,
		TerminationKeywords: cfg.TerminationKeywords,
	})

	sweeper, err := session.NewSweeper(store, cfg.SweepSchedule, cfg.SessionMaxAge)
	if err != nil {
		return fmt.Errorf("initializing session sweeper: %w", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	if len(cfg.APIKeys) == 0 {
		log.Warn().Msg("server.api_keys not set — API endpoints are unauthenticated. Set for production.")
	}

	opts := []server.Option{
		server.WithRateLimiter(server.NewRateLimiter(cfg.RateGlobalRPM, cfg.RatePerCallerRPM)),
		server.WithDetectThreshold(cfg.DetectThreshold),
		server.WithCORSOrigins([]string{"*"}),
	}
	if cfg.STTBaseURL != "" || cfg.TTSBaseURL != "" {
		opts = append(opts, server.WithSpeech(
			speech.NewHTTPTranscriber(cfg.STTBaseURL, 0),
			speech.NewHTTPSynthesizer(cfg.TTSBaseURL, 0),
		))
	}

	srv := server.NewServer(
		orchestrator,
		classifier,
		rich,
		reports,
		cfg.APIKeys,
		opts...,
	)

	port := cfg.ServerPort
	if servePort > 0 {
		port = servePort
	}
	addr := fmt.Sprintf(":%d", port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().
		Str("addr", addr).
		Str("llm_mode", cfg.LLMMode).
		Str("model", cfg.LLMModel).
		Bool("callback", reporter != nil).
		Bool("speech", cfg.STTBaseURL != "" || cfg.TTSBaseURL != "").
		Int("sweep_entries", sweeper.Entries()).
		Msg("honeycomb_serve_started")

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown_signal_received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	// Drain is done; drop whatever sessions are still live. Their reports
	// were either delivered on a trigger or are gone with the process.
	if dropped := store.SweepExpired(shutdownCtx, 0); dropped > 0 {
		log.Info().Int("sessions_dropped", dropped).Msg("shutdown_sweep_completed")
	}
	log.Info().Msg("server_stopped")
	return nil
}
