package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// HTTPSynthesizer posts text to a TTS service and returns the rendered
// audio bytes (WAV).
type HTTPSynthesizer struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSynthesizer creates a synthesizer for the given base URL. A
// zero timeout falls back to DefaultTimeout.
func NewHTTPSynthesizer(baseURL string, timeout time.Duration) *HTTPSynthesizer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPSynthesizer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Synthesize renders the text into audio.
func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("synthesis text is empty: %w", ErrInvalidText)
	}
	if len(text) > MaxTextChars {
		return nil, fmt.Errorf("synthesis text too long (%d chars, max %d): %w",
			len(text), MaxTextChars, ErrInvalidText)
	}

	ctx, span := tracer.Start(ctx, "speech.synthesize")
	defer span.End()
	span.SetAttributes(attribute.Int("speech.text_chars", len(text)))

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("encoding synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/synthesize", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("posting synthesis request: %w: %v", ErrSpeechBackend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("synthesis service returned status %d: %w", resp.StatusCode, ErrSpeechBackend)
		span.RecordError(err)
		return nil, err
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("reading synthesis response: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("synthesis service returned no audio: %w", ErrSpeechBackend)
	}

	span.SetAttributes(attribute.Int("speech.audio_bytes", len(audio)))
	return audio, nil
}
