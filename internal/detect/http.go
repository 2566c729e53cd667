package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	hcotel "github.com/SaketSinghRajput/honeycomb/internal/otel"
)

var tracer = hcotel.Tracer("github.com/SaketSinghRajput/honeycomb/internal/detect")

// HTTP calls an external classification service. The service accepts
// {"text": ...} and answers with the Detection JSON shape, so another
// honeycomb instance's /detect route works as a backend.
type HTTP struct {
	url    string
	client *http.Client
}

// NewHTTP creates an HTTP classifier. A zero timeout falls back to
// DefaultTimeout.
func NewHTTP(url string, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTP{url: url, client: &http.Client{Timeout: timeout}}
}

// Classify posts the transcript to the classification service.
func (h *HTTP) Classify(ctx context.Context, transcript string) (*Detection, error) {
	if err := validateTranscript(transcript); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "detect.classify")
	defer span.End()

	body, err := json.Marshal(map[string]string{"text": transcript})
	if err != nil {
		return nil, fmt.Errorf("encoding classification request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building classification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("posting classification request: %w: %v", ErrClassifierUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("classification service returned status %d: %w", resp.StatusCode, ErrClassifierUnavailable)
		span.RecordError(err)
		return nil, err
	}

	var det Detection
	if err := json.NewDecoder(resp.Body).Decode(&det); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("decoding classification response: %w", err)
	}

	span.SetAttributes(
		attribute.Bool("detect.is_scam", det.IsScam),
		attribute.Float64("detect.probability", det.Probability),
	)
	return &det, nil
}
