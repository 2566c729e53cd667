package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// HTTPTranscriber posts raw audio to an STT service. The service
// answers with {"transcript": "..."}.
type HTTPTranscriber struct {
	baseURL string
	client  *http.Client
}

// NewHTTPTranscriber creates a transcriber for the given base URL. A
// zero timeout falls back to DefaultTimeout.
func NewHTTPTranscriber(baseURL string, timeout time.Duration) *HTTPTranscriber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPTranscriber{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Transcribe sends the audio bytes for recognition.
func (t *HTTPTranscriber) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	format = NormalizeFormat(format)
	if len(audio) == 0 {
		return "", fmt.Errorf("audio payload is empty: %w", ErrInvalidAudio)
	}
	if len(audio) > MaxAudioBytes {
		return "", fmt.Errorf("audio payload too large (%d bytes, max %d): %w",
			len(audio), MaxAudioBytes, ErrInvalidAudio)
	}
	if !FormatSupported(format) {
		return "", fmt.Errorf("unsupported audio format %q (supported: %s): %w",
			format, strings.Join(SupportedFormats, ", "), ErrInvalidAudio)
	}

	ctx, span := tracer.Start(ctx, "speech.transcribe")
	defer span.End()
	span.SetAttributes(
		attribute.Int("speech.audio_bytes", len(audio)),
		attribute.String("speech.format", format),
	)

	endpoint := t.baseURL + "/v1/transcribe?format=" + url.QueryEscape(format)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("building transcription request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := t.client.Do(req)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("posting transcription request: %w: %v", ErrSpeechBackend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("transcription service returned status %d: %w", resp.StatusCode, ErrSpeechBackend)
		span.RecordError(err)
		return "", err
	}

	var body struct {
		Transcript string `json:"transcript"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("decoding transcription response: %w", err)
	}

	span.SetAttributes(attribute.Int("speech.transcript_chars", len(body.Transcript)))
	return body.Transcript, nil
}
