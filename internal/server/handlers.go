package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/SaketSinghRajput/honeycomb/internal/archive"
	"github.com/SaketSinghRajput/honeycomb/internal/detect"
	"github.com/SaketSinghRajput/honeycomb/internal/engage"
	"github.com/SaketSinghRajput/honeycomb/internal/intel"
	"github.com/SaketSinghRajput/honeycomb/internal/session"
	"github.com/SaketSinghRajput/honeycomb/internal/speech"
)

// neutralReply answers messages that fall below the scam threshold
// without revealing that classification happened at all.
const neutralReply = "I'm not sure I understand. Could you clarify?"

// envelope carries the fields shared by every success response body.
type envelope struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func okEnvelope() envelope {
	return envelope{Status: "success", Timestamp: time.Now().UTC()}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes the error envelope. Defined alongside writeJSON so
// middleware can use it too.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"status": "error", "message": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":         "success",
		"message":        "Service is healthy",
		"timestamp":      time.Now().UTC(),
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
	}
	if r.URL.Query().Get("detail") == "true" {
		components := map[string]string{}
		if s.reports == nil {
			components["report_archive"] = "disabled"
		} else {
			components["report_archive"] = "ok"
		}
		if s.transcriber == nil {
			components["transcriber"] = "disabled"
		} else {
			components["transcriber"] = "ok"
		}
		if s.synthesizer == nil {
			components["synthesizer"] = "disabled"
		} else {
			components["synthesizer"] = "ok"
		}
		resp["components"] = components
		if s.orchestrator != nil {
			resp["active_sessions"] = s.orchestrator.ActiveSessions()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type detectRequest struct {
	Transcript string `json:"transcript"`
}

type detectResponse struct {
	envelope
	IsScam      bool               `json:"is_scam"`
	Probability float64            `json:"scam_probability"`
	Type        string             `json:"scam_type,omitempty"`
	Scores      map[string]float64 `json:"confidence_scores"`
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Transcript) == "" {
		writeError(w, http.StatusBadRequest, "Transcript cannot be empty")
		return
	}
	det, err := s.classifier.Classify(r.Context(), req.Transcript)
	if err != nil {
		if errors.Is(err, detect.ErrInvalidTranscript) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Msg("detect_backend_failed")
		writeError(w, http.StatusServiceUnavailable, "Scam detection unavailable")
		return
	}
	writeJSON(w, http.StatusOK, detectResponse{
		envelope:    okEnvelope(),
		IsScam:      det.IsScam,
		Probability: det.Probability,
		Type:        det.Type,
		Scores:      det.Scores,
	})
}

type extractRequest struct {
	Transcript string `json:"transcript"`
}

type extractResponse struct {
	envelope
	Entities     map[string][]string `json:"entities"`
	Intelligence intel.Intelligence  `json:"scammer_intelligence"`
	Confidence   map[string]float64  `json:"confidence_scores"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Transcript) == "" {
		writeError(w, http.StatusBadRequest, "Transcript cannot be empty")
		return
	}
	result, err := s.rich.Extract(r.Context(), req.Transcript)
	if err != nil {
		if errors.Is(err, intel.ErrInvalidTranscript) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Msg("extract_failed")
		writeError(w, http.StatusInternalServerError, "Internal processing error")
		return
	}
	writeJSON(w, http.StatusOK, extractResponse{
		envelope:     okEnvelope(),
		Entities:     result.Entities,
		Intelligence: result.Intelligence,
		Confidence:   result.Confidence,
	})
}

type honeypotMessage struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

type honeypotMetadata struct {
	Channel  string `json:"channel,omitempty"`
	Language string `json:"language,omitempty"`
	Locale   string `json:"locale,omitempty"`
}

type honeypotRequest struct {
	SessionID string            `json:"sessionId"`
	Message   honeypotMessage   `json:"message"`
	History   []honeypotMessage `json:"conversationHistory"`
	Metadata  *honeypotMetadata `json:"metadata,omitempty"`
}

type honeypotResponse struct {
	envelope
	Reply string `json:"reply"`
}

// handleHoneypot classifies the incoming message and either answers with
// a fixed neutral line (below threshold, no session state is touched) or
// hands the message to the agent, seeding session history from the
// caller-supplied conversation.
func (s *Server) handleHoneypot(w http.ResponseWriter, r *http.Request) {
	var req honeypotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}
	if strings.TrimSpace(req.Message.Text) == "" {
		writeError(w, http.StatusBadRequest, "message text cannot be empty")
		return
	}

	det, err := s.classifier.Classify(r.Context(), req.Message.Text)
	if err != nil {
		if errors.Is(err, detect.ErrInvalidTranscript) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Str("session_id", req.SessionID).Msg("detect_backend_failed")
		writeError(w, http.StatusServiceUnavailable, "Scam detection unavailable")
		return
	}

	reply := neutralReply
	if det.Probability < s.threshold {
		log.Info().
			Str("session_id", req.SessionID).
			Float64("probability", det.Probability).
			Float64("threshold", s.threshold).
			Msg("honeypot_below_threshold")
	} else {
		result, err := s.orchestrator.ProcessTurn(r.Context(), req.SessionID, req.Message.Text, seedFromHistory(req.History))
		if err != nil {
			if errors.Is(err, engage.ErrInvalidInput) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			log.Error().Err(err).Str("session_id", req.SessionID).Msg("honeypot_turn_failed")
			writeError(w, http.StatusInternalServerError, "Honeypot processing failed")
			return
		}
		reply = result.Reply
	}

	writeJSON(w, http.StatusOK, honeypotResponse{envelope: okEnvelope(), Reply: reply})
}

// seedFromHistory converts the honeypot wire history into conversation
// turns: scammer messages open a turn, our messages close the most recent
// open one. Incomplete pairs are dropped by the orchestrator when seeding.
func seedFromHistory(msgs []honeypotMessage) []session.Exchange {
	var turns []session.Exchange
	for _, m := range msgs {
		switch m.Sender {
		case "scammer":
			turns = append(turns, session.Exchange{User: m.Text})
		case "user":
			if n := len(turns); n > 0 && turns[n-1].Assistant == "" {
				turns[n-1].Assistant = m.Text
			} else {
				turns = append(turns, session.Exchange{Assistant: m.Text})
			}
		}
	}
	return turns
}

type engageRequest struct {
	SessionID   string             `json:"session_id"`
	Text        string             `json:"text,omitempty"`
	AudioBase64 string             `json:"audio_base64,omitempty"`
	AudioFormat string             `json:"audio_format,omitempty"`
	History     []session.Exchange `json:"conversation_history,omitempty"`
}

type engageResponse struct {
	envelope
	SessionID  string       `json:"session_id"`
	Transcript string       `json:"transcript"`
	Reply      string       `json:"agent_response_text"`
	ReplyAudio string       `json:"agent_response_audio,omitempty"`
	TurnNumber int          `json:"turn_number"`
	Terminated bool         `json:"terminated"`
	Items      []intel.Item `json:"extracted_intelligence"`
}

// handleEngage runs one conversation turn from either a text transcript
// or an uploaded audio clip (exactly one of the two). The reply is
// synthesized to audio when a synthesizer is configured; synthesis
// failures degrade to a text-only response because the turn has already
// committed by then.
func (s *Server) handleEngage(w http.ResponseWriter, r *http.Request) {
	var req engageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	hasText := strings.TrimSpace(req.Text) != ""
	hasAudio := req.AudioBase64 != ""
	if !hasText && !hasAudio {
		writeError(w, http.StatusBadRequest, "Either audio or text must be provided")
		return
	}
	if hasText && hasAudio {
		writeError(w, http.StatusBadRequest, "Only one of audio or text can be provided")
		return
	}

	transcript := req.Text
	if hasAudio {
		if s.transcriber == nil {
			writeError(w, http.StatusBadRequest, "Audio input is not enabled on this server")
			return
		}
		audio, err := base64.StdEncoding.DecodeString(req.AudioBase64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid base64 audio")
			return
		}
		format := req.AudioFormat
		if format == "" {
			format = "wav"
		}
		transcript, err = s.transcriber.Transcribe(r.Context(), audio, format)
		if err != nil {
			if errors.Is(err, speech.ErrInvalidAudio) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			log.Error().Err(err).Str("session_id", req.SessionID).Msg("transcription_failed")
			writeError(w, http.StatusServiceUnavailable, "Transcription unavailable")
			return
		}
	}

	result, err := s.orchestrator.ProcessTurn(r.Context(), req.SessionID, transcript, req.History)
	if err != nil {
		if errors.Is(err, engage.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Str("session_id", req.SessionID).Msg("engage_turn_failed")
		writeError(w, http.StatusInternalServerError, "Internal processing error")
		return
	}

	resp := engageResponse{
		envelope:   okEnvelope(),
		SessionID:  result.SessionID,
		Transcript: result.Transcript,
		Reply:      result.Reply,
		TurnNumber: result.TurnNumber,
		Terminated: result.Terminated,
		Items:      result.Items,
	}
	if resp.Items == nil {
		resp.Items = []intel.Item{}
	}
	if s.synthesizer != nil {
		audio, err := s.synthesizer.Synthesize(r.Context(), result.Reply)
		if err != nil {
			log.Warn().Err(err).Str("session_id", req.SessionID).Msg("synthesis_failed_text_only")
		} else {
			resp.ReplyAudio = base64.StdEncoding.EncodeToString(audio)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type sessionResponse struct {
	envelope
	session.Snapshot
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	snap, err := s.orchestrator.SessionInfo(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{envelope: okEnvelope(), Snapshot: *snap})
}

type terminateResponse struct {
	envelope
	SessionID    string       `json:"session_id"`
	Terminated   bool         `json:"terminated"`
	Items        []intel.Item `json:"extracted_intelligence"`
	CallbackSent bool         `json:"callback_sent"`
}

func (s *Server) handleSessionTerminate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	result, err := s.orchestrator.Terminate(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	resp := terminateResponse{
		envelope:     okEnvelope(),
		SessionID:    result.SessionID,
		Terminated:   result.Terminated,
		Items:        result.Items,
		CallbackSent: result.CallbackSent,
	}
	if resp.Items == nil {
		resp.Items = []intel.Item{}
	}
	writeJSON(w, http.StatusOK, resp)
}

type reportsResponse struct {
	envelope
	Reports []archive.Record `json:"reports"`
	Count   int              `json:"count"`
}

func (s *Server) handleReportsList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	records, err := s.reports.List(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("report_list_failed")
		writeError(w, http.StatusInternalServerError, "Internal processing error")
		return
	}
	if records == nil {
		records = []archive.Record{}
	}
	writeJSON(w, http.StatusOK, reportsResponse{
		envelope: okEnvelope(),
		Reports:  records,
		Count:    len(records),
	})
}

func (s *Server) handleReportsBySession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	records, err := s.reports.GetBySession(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("session_id", id).Msg("report_lookup_failed")
		writeError(w, http.StatusInternalServerError, "Internal processing error")
		return
	}
	if records == nil {
		records = []archive.Record{}
	}
	writeJSON(w, http.StatusOK, reportsResponse{
		envelope: okEnvelope(),
		Reports:  records,
		Count:    len(records),
	})
}
