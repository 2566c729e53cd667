// Package callback delivers final session intelligence reports to the
// upstream evaluation service.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/SaketSinghRajput/honeycomb/internal/intel"
	hcotel "github.com/SaketSinghRajput/honeycomb/internal/otel"
	"github.com/SaketSinghRajput/honeycomb/internal/session"
)

var tracer = hcotel.Tracer("github.com/SaketSinghRajput/honeycomb/internal/callback")

// DefaultTimeout bounds a single delivery attempt.
const DefaultTimeout = 10 * time.Second

// ErrDeliveryFailed signals a failed POST. The caller leaves the session's
// callbackSent flag clear so a later trigger can retry.
var ErrDeliveryFailed = errors.New("callback delivery failed")

// accountLike routes unrecognized item kinds that still look like bank
// account numbers into bankAccounts.
var accountLike = regexp.MustCompile(`^\d{9,18}$`)

// urgencyPattern drives the "Urgency tactics used" agent note.
var urgencyPattern = regexp.MustCompile(`(?i)\b(urgent|immediately|verify|confirm|blocked|suspended)\b`)

// keywordFallback is the reduced suspicious-keyword scan used when no
// enricher is wired; any hit reports the single keyword "urgency".
var keywordFallback = regexp.MustCompile(`(?i)\b(urgent|immediately|verify|blocked|suspended|otp)\b`)

// SessionReport is the snapshot of session state the reporter aggregates.
// The orchestrator builds it while holding the session lock, so the
// reporter never touches live session state.
type SessionReport struct {
	SessionID  string
	TurnCount  int
	Terminated bool
	Items      []intel.Item
	History    []session.Exchange
}

// Payload is the JSON body posted to the callback endpoint.
type Payload struct {
	SessionID              string                     `json:"sessionId"`
	ScamDetected           bool                       `json:"scamDetected"`
	TotalMessagesExchanged int                        `json:"totalMessagesExchanged"`
	ExtractedIntelligence  intel.CallbackIntelligence `json:"extractedIntelligence"`
	AgentNotes             string                     `json:"agentNotes"`
}

// Ack is the parsed acknowledgement body returned by the endpoint. A
// non-JSON acknowledgement degrades to {"status_code": N}.
type Ack map[string]any

// Enricher widens the suspicious-keyword scan over caller-side history.
type Enricher interface {
	SuspiciousKeywords(transcript string) []string
}

// Archive records delivery attempts for tamper-evident retention.
type Archive interface {
	Record(ctx context.Context, sessionID string, payload []byte) (int64, error)
	MarkDelivered(ctx context.Context, id int64) error
}

// Reporter posts aggregated session intelligence to a configured endpoint.
// It is stateless; at-most-once delivery is the orchestrator's concern,
// guarded by the session's callbackSent flag.
type Reporter struct {
	url      string
	client   *http.Client
	enricher Enricher
	archive  Archive
}

// ReporterOption configures optional collaborators.
type ReporterOption func(*Reporter)

// WithEnricher wires the report-time extractor used for the
// suspicious-keyword scan. Without it a fixed fallback regex applies.
func WithEnricher(e Enricher) ReporterOption {
	return func(r *Reporter) { r.enricher = e }
}

// WithArchive wires the report archive. Archive failures never block
// delivery.
func WithArchive(a Archive) ReporterOption {
	return func(r *Reporter) { r.archive = a }
}

// NewReporter creates a reporter for the given endpoint. A zero timeout
// falls back to DefaultTimeout.
func NewReporter(url string, timeout time.Duration, opts ...ReporterOption) *Reporter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	r := &Reporter{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// BuildPayload aggregates a session report into the wire payload. Values
// are deduplicated and sorted so a given session always produces the same
// payload regardless of extraction order.
func (r *Reporter) BuildPayload(ctx context.Context, report *SessionReport) *Payload {
	accounts := map[string]struct{}{}
	upiIDs := map[string]struct{}{}
	links := map[string]struct{}{}
	phones := map[string]struct{}{}

	for _, item := range report.Items {
		if item.Value == "" {
			continue
		}
		switch item.Kind {
		case intel.KindUPI:
			upiIDs[item.Value] = struct{}{}
		case intel.KindPhone:
			phones[item.Value] = struct{}{}
		case intel.KindURL:
			links[item.Value] = struct{}{}
		case intel.KindAccount:
			accounts[item.Value] = struct{}{}
		default:
			if accountLike.MatchString(item.Value) {
				accounts[item.Value] = struct{}{}
			}
		}
	}

	keywords := map[string]struct{}{}
	callerText := joinHistory(report.History, false)
	if r.enricher != nil {
		for _, kw := range r.enricher.SuspiciousKeywords(callerText) {
			keywords[kw] = struct{}{}
		}
	} else if keywordFallback.MatchString(callerText) {
		keywords["urgency"] = struct{}{}
	}

	return &Payload{
		SessionID:              report.SessionID,
		ScamDetected:           true,
		TotalMessagesExchanged: report.TurnCount,
		ExtractedIntelligence: intel.CallbackIntelligence{
			BankAccounts:       sortedValues(accounts),
			UPIIDs:             sortedValues(upiIDs),
			PhishingLinks:      sortedValues(links),
			PhoneNumbers:       sortedValues(phones),
			SuspiciousKeywords: sortedValues(keywords),
		},
		AgentNotes: agentNotes(report),
	}
}

// Deliver builds, archives, and posts the payload for a session. On a 2xx
// response it returns the endpoint's acknowledgement; any other outcome is
// an error and the archived record stays marked undelivered.
func (r *Reporter) Deliver(ctx context.Context, report *SessionReport) (Ack, error) {
	ctx, span := tracer.Start(ctx, "callback.deliver",
		trace.WithAttributes(
			attribute.String("session_id", report.SessionID),
			attribute.Int("callback.item_count", len(report.Items)),
		))
	defer span.End()

	payload := r.BuildPayload(ctx, report)
	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("encoding callback payload: %w", err)
	}

	var recordID int64
	if r.archive != nil {
		recordID, err = r.archive.Record(ctx, report.SessionID, body)
		if err != nil {
			log.Warn().Err(err).
				Str("session_id", report.SessionID).
				Msg("report_archive_write_failed")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("building callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		span.RecordError(err)
		deliveryFailures.Add(ctx, 1)
		return nil, fmt.Errorf("posting callback: %w: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("callback.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		deliveryFailures.Add(ctx, 1)
		err := fmt.Errorf("callback endpoint returned status %d: %w", resp.StatusCode, ErrDeliveryFailed)
		span.RecordError(err)
		log.Warn().
			Str("session_id", report.SessionID).
			Int("status_code", resp.StatusCode).
			Msg("callback_rejected")
		return nil, err
	}

	if r.archive != nil && recordID > 0 {
		if err := r.archive.MarkDelivered(ctx, recordID); err != nil {
			log.Warn().Err(err).
				Int64("report_id", recordID).
				Msg("report_archive_update_failed")
		}
	}

	ack := Ack{}
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		ack = Ack{"status_code": resp.StatusCode}
	}

	deliveriesTotal.Add(ctx, 1)
	log.Info().
		Func(hcotel.LogTraceFields(ctx)).
		Str("session_id", report.SessionID).
		Int("status_code", resp.StatusCode).
		Int("payload_bytes", len(body)).
		Msg("callback_delivered")
	return ack, nil
}

// agentNotes summarizes observed scammer tactics for human reviewers.
func agentNotes(report *SessionReport) string {
	kinds := map[string]bool{}
	for _, item := range report.Items {
		kinds[item.Kind] = true
	}

	var notes []string
	if kinds[intel.KindUPI] {
		notes = append(notes, "Scammer requested payment via UPI")
	}
	if kinds[intel.KindPhone] {
		notes = append(notes, "Exchange of phone numbers observed")
	}
	if urgencyPattern.MatchString(joinHistory(report.History, true)) {
		notes = append(notes, "Urgency tactics used")
	}
	if len(notes) == 0 {
		notes = append(notes, "No clear payment requests observed; normal engagement")
	}
	return strings.Join(notes, "; ")
}

// joinHistory flattens history into one text blob. bothSides includes the
// agent's replies; the suspicious-keyword scan reads only the caller's
// side.
func joinHistory(history []session.Exchange, bothSides bool) string {
	parts := make([]string, 0, len(history))
	for _, turn := range history {
		if bothSides {
			parts = append(parts, turn.User+" "+turn.Assistant)
		} else {
			parts = append(parts, turn.User)
		}
	}
	return strings.Join(parts, " ")
}

func sortedValues(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
