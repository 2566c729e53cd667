// Package detect decides whether inbound text reads like a scam
// attempt. Two classifiers are provided: an HTTP client for an external
// classification service and a built-in keyword heuristic for
// deployments without one. The engagement threshold is applied by the
// caller; classifiers only report verdicts.
package detect

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxTranscriptChars bounds classifier input length.
const MaxTranscriptChars = 10000

// DefaultTimeout bounds a single external classification call.
const DefaultTimeout = 10 * time.Second

// Domain errors for the detect package.
var (
	ErrInvalidTranscript     = errors.New("invalid transcript")
	ErrClassifierUnavailable = errors.New("classifier unavailable")
)

// Detection is a classifier verdict over one transcript.
type Detection struct {
	IsScam      bool               `json:"is_scam"`
	Probability float64            `json:"scam_probability"`
	Type        string             `json:"scam_type,omitempty"`
	Scores      map[string]float64 `json:"confidence_scores"`
}

// Classifier is the interface all detection backends implement.
type Classifier interface {
	Classify(ctx context.Context, transcript string) (*Detection, error)
}

// New returns the HTTP classifier when an endpoint is configured, the
// keyword heuristic otherwise.
func New(url string, timeout time.Duration) Classifier {
	if url == "" {
		return Keyword{}
	}
	return NewHTTP(url, timeout)
}

func validateTranscript(transcript string) error {
	if strings.TrimSpace(transcript) == "" {
		return fmt.Errorf("transcript must be non-empty: %w", ErrInvalidTranscript)
	}
	if len(transcript) > MaxTranscriptChars {
		return fmt.Errorf("transcript too long (%d chars, max %d): %w",
			len(transcript), MaxTranscriptChars, ErrInvalidTranscript)
	}
	return nil
}
