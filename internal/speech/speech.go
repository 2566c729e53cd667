// Package speech delegates audio transcription and synthesis to
// external services over HTTP. The honeypot never decodes audio
// itself; it forwards bytes to the configured backends and consumes
// text.
package speech

import (
	"context"
	"errors"
	"strings"
	"time"

	hcotel "github.com/SaketSinghRajput/honeycomb/internal/otel"
)

var tracer = hcotel.Tracer("github.com/SaketSinghRajput/honeycomb/internal/speech")

const (
	// MaxAudioBytes caps inbound audio size (50 MiB).
	MaxAudioBytes = 50 << 20

	// MaxTextChars caps synthesis input length.
	MaxTextChars = 5000

	// DefaultTimeout bounds a single backend call. Speech models are
	// slow.
	DefaultTimeout = 60 * time.Second
)

// Domain errors for the speech package.
var (
	ErrInvalidAudio  = errors.New("invalid audio input")
	ErrInvalidText   = errors.New("invalid synthesis text")
	ErrSpeechBackend = errors.New("speech backend unavailable")
)

// SupportedFormats is the audio container allow-list.
var SupportedFormats = []string{"wav", "mp3", "m4a", "flac", "ogg"}

// Transcriber converts audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, format string) (string, error)
}

// Synthesizer renders text into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// NormalizeFormat lowercases a format name and strips a leading dot, so
// ".WAV" and "wav" are equivalent.
func NormalizeFormat(format string) string {
	return strings.TrimPrefix(strings.ToLower(format), ".")
}

// FormatSupported reports whether the (normalized) format is allowed.
func FormatSupported(format string) bool {
	format = NormalizeFormat(format)
	for _, f := range SupportedFormats {
		if f == format {
			return true
		}
	}
	return false
}
