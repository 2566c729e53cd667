// Package engage orchestrates honeypot conversation turns. Each turn
// runs under the session lock: history seeding, termination checks,
// reply generation, safety filtering, intelligence accumulation, and
// the final callback trigger all observe a consistent session state.
package engage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/SaketSinghRajput/honeycomb/internal/callback"
	"github.com/SaketSinghRajput/honeycomb/internal/intel"
	"github.com/SaketSinghRajput/honeycomb/internal/llm"
	hcotel "github.com/SaketSinghRajput/honeycomb/internal/otel"
	"github.com/SaketSinghRajput/honeycomb/internal/safety"
	"github.com/SaketSinghRajput/honeycomb/internal/session"
)

var tracer = hcotel.Tracer("github.com/SaketSinghRajput/honeycomb/internal/engage")

const (
	// closingReply ends a conversation once a termination keyword
	// arrives or the session was already terminated.
	closingReply = "Thank you for calling. Goodbye."

	// fallbackReply keeps the caller talking when generation fails or
	// the backend returns an empty completion.
	fallbackReply = "I'm not sure I understand. Could you explain that again?"
)

// Domain errors for the engage package.
var (
	ErrInvalidInput    = errors.New("invalid engagement input")
	ErrSessionNotFound = errors.New("session not found")
)

// Reporter delivers the final intelligence report for a session. A nil
// reporter disables callbacks entirely; pass a literal nil, not a typed
// nil pointer.
type Reporter interface {
	Deliver(ctx context.Context, report *callback.SessionReport) (callback.Ack, error)
}

// Options tunes conversation behavior. Zero numeric fields and an empty
// keyword list fall back to the stock deployment values; Persona is
// passed through as-is.
type Options struct {
	Persona             string
	Model               string
	Temperature         float64
	MaxTokens           int
	MemoryTurns         int
	MinTurns            int
	MaxTurns            int
	TerminationKeywords []string
}

func (o Options) withDefaults() Options {
	if o.MemoryTurns <= 0 {
		o.MemoryTurns = 10
	}
	if o.MinTurns <= 0 {
		o.MinTurns = 3
	}
	if o.MaxTurns <= 0 {
		o.MaxTurns = 10
	}
	if len(o.TerminationKeywords) == 0 {
		o.TerminationKeywords = []string{"terminate", "end_call", "stop"}
	}
	return o
}

// TurnResult is the outcome of one processed turn, shaped for the HTTP
// response body. Items is the session's cumulative intelligence, not
// just this turn's findings.
type TurnResult struct {
	SessionID    string       `json:"session_id"`
	Transcript   string       `json:"transcript"`
	Reply        string       `json:"agent_response_text"`
	TurnNumber   int          `json:"turn_number"`
	Terminated   bool         `json:"terminated"`
	Items        []intel.Item `json:"extracted_intelligence"`
	CallbackSent bool         `json:"callback_sent"`
}

// TerminateResult reports session state after a forced termination.
type TerminateResult struct {
	SessionID    string       `json:"session_id"`
	Terminated   bool         `json:"terminated"`
	Items        []intel.Item `json:"extracted_intelligence"`
	CallbackSent bool         `json:"callback_sent"`
}

// Orchestrator drives honeypot conversations one turn at a time. It is
// stateless between calls and safe for concurrent use; all per-session
// state lives in the store.
type Orchestrator struct {
	store     *session.Store
	provider  llm.Provider
	filter    *safety.Filter
	extractor *intel.Extractor
	reporter  Reporter
	opts      Options
}

// New creates an orchestrator. reporter may be nil to disable callback
// delivery.
func New(store *session.Store, provider llm.Provider, filter *safety.Filter, extractor *intel.Extractor, reporter Reporter, opts Options) *Orchestrator {
	return &Orchestrator{
		store:     store,
		provider:  provider,
		filter:    filter,
		extractor: extractor,
		reporter:  reporter,
		opts:      opts.withDefaults(),
	}
}

// ProcessTurn runs one full conversation turn for a session. seed is
// caller-provided prior history, applied only when the session has none
// yet; incomplete pairs are dropped and only the most recent MemoryTurns
// pairs are kept.
func (o *Orchestrator) ProcessTurn(ctx context.Context, sessionID, userInput string, seed []session.Exchange) (*TurnResult, error) {
	if strings.TrimSpace(sessionID) == "" || strings.TrimSpace(userInput) == "" {
		return nil, fmt.Errorf("session_id and user_input are required: %w", ErrInvalidInput)
	}

	corrID := "corr_" + uuid.New().String()[:12]
	ctx, span := tracer.Start(ctx, "engage.process_turn",
		trace.WithAttributes(
			attribute.String("session_id", sessionID),
			attribute.String("correlation_id", corrID),
		))
	defer span.End()

	logger := log.With().
		Str("correlation_id", corrID).
		Str("session_id", sessionID).
		Logger()

	sess := o.store.Acquire(ctx, sessionID)
	defer sess.Release()
	sess.Touch()

	if len(sess.History) == 0 && len(seed) > 0 {
		sess.History = seedHistory(seed, o.opts.MemoryTurns)
		logger.Debug().Int("seeded_pairs", len(sess.History)).Msg("history_seeded")
	}

	var reply string
	if sess.Terminated || o.matchTermination(userInput) != "" {
		reply = o.finishTurn(ctx, sess, userInput, logger)
	} else {
		reply = o.activeTurn(ctx, sess, userInput, logger)
	}

	turnsProcessed.Add(ctx, 1)
	span.SetAttributes(
		attribute.Int("turn_number", sess.TurnCount),
		attribute.Bool("terminated", sess.Terminated),
		attribute.Int("intel.session_items", len(sess.Items)),
	)
	logger.Info().
		Func(hcotel.LogTraceFields(ctx)).
		Int("turn_number", sess.TurnCount).
		Bool("terminated", sess.Terminated).
		Int("extracted_items", len(sess.Items)).
		Msg("turn_processed")

	return &TurnResult{
		SessionID:    sess.ID,
		Transcript:   userInput,
		Reply:        reply,
		TurnNumber:   sess.TurnCount,
		Terminated:   sess.Terminated,
		Items:        append([]intel.Item(nil), sess.Items...),
		CallbackSent: sess.CallbackSent,
	}, nil
}

// finishTurn handles a terminating input. The closing reply still counts
// as a turn and the terminating message itself is still mined for
// intelligence before the callback fires.
func (o *Orchestrator) finishTurn(ctx context.Context, sess *session.Session, userInput string, logger zerolog.Logger) string {
	sess.History = append(sess.History, session.Exchange{User: userInput, Assistant: closingReply})
	sess.TurnCount++
	sess.Items = append(sess.Items, o.extractor.Extract(ctx, userInput)...)
	sess.Terminated = true
	sessionsClosed.Add(ctx, 1)
	o.maybeReport(ctx, sess, logger)
	return closingReply
}

// activeTurn generates, filters, and records a normal reply.
func (o *Orchestrator) activeTurn(ctx context.Context, sess *session.Session, userInput string, logger zerolog.Logger) string {
	reply := o.generateReply(ctx, sess.History, userInput, logger)

	safe, rule := o.filter.Apply(ctx, reply)
	if rule != "" {
		logger.Warn().Str("rule", rule).Msg("reply_replaced_by_safety_filter")
		reply = safe
	}

	sess.History = append(sess.History, session.Exchange{User: userInput, Assistant: reply})
	sess.TurnCount++
	sess.Items = append(sess.Items, o.extractor.Extract(ctx, userInput)...)
	o.maybeReport(ctx, sess, logger)
	return reply
}

// generateReply calls the configured backend with the rendered context
// and falls back to a canned reply on failure so the conversation never
// stalls.
func (o *Orchestrator) generateReply(ctx context.Context, history []session.Exchange, userInput string, logger zerolog.Logger) string {
	prompt, messages := o.buildContext(history, userInput)

	start := time.Now()
	resp, err := o.provider.Generate(ctx, &llm.Request{
		Model:       o.opts.Model,
		Prompt:      prompt,
		Messages:    messages,
		Temperature: o.opts.Temperature,
		MaxTokens:   o.opts.MaxTokens,
	})
	elapsed := time.Since(start).Seconds()
	if err != nil {
		logger.Warn().Err(err).Msg("generation_failed_using_fallback")
		llm.RecordGenerationMetrics(ctx, elapsed, 0, o.provider.Name(), o.opts.Model, true)
		return fallbackReply
	}

	cost := o.provider.EstimateCost(o.opts.Model, resp.InputTokens, resp.OutputTokens)
	llm.RecordGenerationMetrics(ctx, elapsed, cost, o.provider.Name(), o.opts.Model, false)

	reply := strings.TrimSpace(resp.Content)
	if reply == "" {
		return fallbackReply
	}
	return reply
}

// buildContext renders history into both the flat prompt used by
// completion-style backends and the role-tagged list used by
// chat-completion backends. Only the most recent MemoryTurns exchanges
// are included.
func (o *Orchestrator) buildContext(history []session.Exchange, userInput string) (string, []llm.Message) {
	recent := history
	if len(recent) > o.opts.MemoryTurns {
		recent = recent[len(recent)-o.opts.MemoryTurns:]
	}

	lines := make([]string, 0, 2*len(recent)+3)
	lines = append(lines, "System: "+o.opts.Persona)
	messages := make([]llm.Message, 0, 2*len(recent)+2)
	messages = append(messages, llm.Message{Role: "system", Content: o.opts.Persona})
	for _, turn := range recent {
		lines = append(lines, "User: "+turn.User, "Assistant: "+turn.Assistant)
		messages = append(messages,
			llm.Message{Role: "user", Content: turn.User},
			llm.Message{Role: "assistant", Content: turn.Assistant},
		)
	}
	lines = append(lines, "User: "+userInput, "Assistant:")
	messages = append(messages, llm.Message{Role: "user", Content: userInput})

	return strings.Join(lines, "\n"), messages
}

// matchTermination returns the first termination keyword contained in
// the input (case-insensitive substring match), or "".
func (o *Orchestrator) matchTermination(input string) string {
	lowered := strings.ToLower(input)
	for _, kw := range o.opts.TerminationKeywords {
		if kw != "" && strings.Contains(lowered, strings.ToLower(kw)) {
			return kw
		}
	}
	return ""
}

// maybeReport fires the final callback when the trigger condition holds.
// The session lock is held throughout the turn, so the callbackSent flag
// is an at-most-once guard per session. Delivery failure leaves the flag
// clear for a retry on a later trigger.
func (o *Orchestrator) maybeReport(ctx context.Context, sess *session.Session, logger zerolog.Logger) {
	if o.reporter == nil || sess.CallbackSent || !o.shouldReport(sess) {
		return
	}

	report := &callback.SessionReport{
		SessionID:  sess.ID,
		TurnCount:  sess.TurnCount,
		Terminated: sess.Terminated,
		Items:      append([]intel.Item(nil), sess.Items...),
		History:    append([]session.Exchange(nil), sess.History...),
	}
	if _, err := o.reporter.Deliver(ctx, report); err != nil {
		logger.Warn().Err(err).Msg("callback_delivery_failed")
		return
	}
	sess.CallbackSent = true
	logger.Info().Int("turn_number", sess.TurnCount).Msg("callback_sent")
}

// shouldReport implements the callback trigger: terminated sessions
// always report, long sessions report past MaxTurns, and sessions
// holding at least two distinct kinds of intelligence report once
// MinTurns is reached.
func (o *Orchestrator) shouldReport(sess *session.Session) bool {
	if sess.Terminated {
		return true
	}
	if sess.TurnCount > o.opts.MaxTurns {
		return true
	}
	return distinctKinds(sess.Items) >= 2 && sess.TurnCount >= o.opts.MinTurns
}

func distinctKinds(items []intel.Item) int {
	kinds := map[string]struct{}{}
	for _, item := range items {
		if item.Value == "" {
			continue
		}
		kinds[item.Kind] = struct{}{}
	}
	return len(kinds)
}

// seedHistory keeps only complete pairs from caller-provided history,
// capped to the most recent memoryTurns.
func seedHistory(seed []session.Exchange, memoryTurns int) []session.Exchange {
	pairs := make([]session.Exchange, 0, len(seed))
	for _, turn := range seed {
		if turn.User != "" && turn.Assistant != "" {
			pairs = append(pairs, turn)
		}
	}
	if len(pairs) > memoryTurns {
		pairs = pairs[len(pairs)-memoryTurns:]
	}
	return pairs
}

// Terminate force-ends a session without a closing exchange and fires
// the callback if it has not been sent yet.
func (o *Orchestrator) Terminate(ctx context.Context, sessionID string) (*TerminateResult, error) {
	ctx, span := tracer.Start(ctx, "engage.terminate",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	sess, ok := o.store.AcquireExisting(sessionID)
	if !ok {
		return nil, fmt.Errorf("session %q: %w", sessionID, ErrSessionNotFound)
	}
	defer sess.Release()
	sess.Touch()

	logger := log.With().Str("session_id", sessionID).Logger()
	if !sess.Terminated {
		sess.Terminated = true
		sessionsClosed.Add(ctx, 1)
	}
	o.maybeReport(ctx, sess, logger)
	logger.Info().Msg("session_terminated_by_operator")

	return &TerminateResult{
		SessionID:    sess.ID,
		Terminated:   sess.Terminated,
		Items:        append([]intel.Item(nil), sess.Items...),
		CallbackSent: sess.CallbackSent,
	}, nil
}

// SessionInfo returns a read-only snapshot of a session's state.
func (o *Orchestrator) SessionInfo(sessionID string) (*session.Snapshot, error) {
	snap, ok := o.store.View(sessionID)
	if !ok {
		return nil, fmt.Errorf("session %q: %w", sessionID, ErrSessionNotFound)
	}
	return snap, nil
}

// ActiveSessions reports how many conversations are currently held in
// memory.
func (o *Orchestrator) ActiveSessions() int {
	return o.store.Len()
}
