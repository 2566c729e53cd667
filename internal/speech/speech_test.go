package speech

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSupported(t *testing.T) {
	tests := []struct {
		format string
		want   bool
	}{
		{"wav", true},
		{".wav", true},
		{"MP3", true},
		{"m4a", true},
		{"flac", true},
		{"ogg", true},
		{"aiff", false},
		{"exe", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSupported(tt.format), "format %q", tt.format)
	}
}

func TestTranscribe(t *testing.T) {
	var gotFormat, gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFormat = r.URL.Query().Get("format")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"transcript":"hello, you have won a prize"}`))
	}))
	defer srv.Close()

	transcriber := NewHTTPTranscriber(srv.URL, time.Second)
	transcript, err := transcriber.Transcribe(context.Background(), []byte("RIFF...."), ".WAV")
	require.NoError(t, err)
	assert.Equal(t, "hello, you have won a prize", transcript)
	assert.Equal(t, "wav", gotFormat)
	assert.Equal(t, "application/octet-stream", gotContentType)
	assert.Equal(t, []byte("RIFF...."), gotBody)
}

func TestTranscribe_Validation(t *testing.T) {
	transcriber := NewHTTPTranscriber("http://localhost:1", time.Second)
	ctx := context.Background()

	_, err := transcriber.Transcribe(ctx, nil, "wav")
	require.ErrorIs(t, err, ErrInvalidAudio)

	_, err = transcriber.Transcribe(ctx, []byte("data"), "aiff")
	require.ErrorIs(t, err, ErrInvalidAudio)
}

func TestTranscribe_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	transcriber := NewHTTPTranscriber(srv.URL, time.Second)
	_, err := transcriber.Transcribe(context.Background(), []byte("data"), "wav")
	require.ErrorIs(t, err, ErrSpeechBackend)
}

func TestSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/synthesize", r.URL.Path)
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("RIFFWAVE"))
	}))
	defer srv.Close()

	synth := NewHTTPSynthesizer(srv.URL, time.Second)
	audio, err := synth.Synthesize(context.Background(), "Thank you for calling. Goodbye.")
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFFWAVE"), audio)
}

func TestSynthesize_Validation(t *testing.T) {
	synth := NewHTTPSynthesizer("http://localhost:1", time.Second)
	ctx := context.Background()

	_, err := synth.Synthesize(ctx, "   ")
	require.ErrorIs(t, err, ErrInvalidText)

	_, err = synth.Synthesize(ctx, strings.Repeat("a", MaxTextChars+1))
	require.ErrorIs(t, err, ErrInvalidText)
}

func TestSynthesize_EmptyAudioIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	synth := NewHTTPSynthesizer(srv.URL, time.Second)
	_, err := synth.Synthesize(context.Background(), "hello")
	require.ErrorIs(t, err, ErrSpeechBackend)
}
