// Package llm generates honeypot replies through a pluggable language
// model backend. Two providers are supported: a remote chat-completion
// API (OpenAI-compatible) and a local Ollama-style completion endpoint.
// The orchestrator selects one at startup from llm.mode and never
// switches mid-session.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout bounds a single generation call when no explicit
// timeout is configured.
const DefaultTimeout = 30 * time.Second

// Domain errors for the llm package.
var (
	ErrUpstreamUnavailable = errors.New("generation backend unavailable")
	ErrNoCompletion        = errors.New("no completion returned")
	ErrGenerationFailed    = errors.New("generation failed")
)

// Provider is the interface all generation backends must implement.
type Provider interface {
	// Name returns the provider identifier (e.g. "openai", "ollama").
	Name() string
	// Generate sends a completion request to the backend and returns the response.
	Generate(ctx context.Context, req *Request) (*Response, error)
	// EstimateCost estimates the cost in EUR for the given model and token counts.
	EstimateCost(model string, inputTokens, outputTokens int) float64
}

// Request represents a generation request. The orchestrator fills both
// transcript forms; chat-style backends consume Messages, completion-style
// backends consume Prompt.
type Request struct {
	Model       string
	Prompt      string    // flattened "System:/User:/Assistant:" transcript
	Messages    []Message // role-tagged transcript
	Temperature float64
	MaxTokens   int
}

// Message represents a chat message.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// Response represents a generation response.
type Response struct {
	Content      string
	FinishReason string
	InputTokens  int
	OutputTokens int
	Model        string
}

// New constructs the provider selected by mode. Remote mode talks to an
// OpenAI-compatible chat-completion API (baseURL empty means the
// platform default endpoint); local mode talks to an Ollama-style
// server. A zero timeout falls back to DefaultTimeout.
func New(mode, baseURL, apiKey string, timeout time.Duration) (Provider, error) {
	switch mode {
	case "remote":
		if baseURL != "" {
			return NewOpenAIProviderWithBaseURL(apiKey, baseURL, timeout), nil
		}
		return NewOpenAIProvider(apiKey, timeout), nil
	case "local", "":
		return NewOllamaProvider(baseURL, timeout), nil
	default:
		return nil, fmt.Errorf("unknown llm mode %q", mode)
	}
}
