// Package testutil provides shared test helpers, mocks, and utilities for
// honeycomb tests.
package testutil

import (
	"context"
	"sync"

	"github.com/SaketSinghRajput/honeycomb/internal/llm"
)

// MockProvider implements llm.Provider for tests without live API calls.
// When Content is empty, Generate returns "mock response from " +
// ProviderName; otherwise uses Content. Set Err to simulate LLM errors.
type MockProvider struct {
	ProviderName string // provider identifier, e.g. "openai"
	Content      string // canned response; empty = "mock response from " + ProviderName
	Err          error  // if set, Generate returns this error
}

// Name returns the provider identifier (implements llm.Provider).
func (m *MockProvider) Name() string { return m.ProviderName }

// Generate returns a canned response or the configured error.
func (m *MockProvider) Generate(_ context.Context, req *llm.Request) (*llm.Response, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	content := m.Content
	if content == "" {
		content = "mock response from " + m.ProviderName
	}
	return &llm.Response{
		Content:      content,
		FinishReason: "stop",
		InputTokens:  10,
		OutputTokens: 20,
		Model:        req.Model,
	}, nil
}

// EstimateCost returns a fixed cost for tests.
func (m *MockProvider) EstimateCost(_ string, _, _ int) float64 { return 0.001 }

// ScriptedProvider implements llm.Provider for multi-turn conversation
// tests. It returns a configurable sequence of replies, tracks call count
// and received requests for assertions. Set ErrOnCall (1-based) and Err to
// make Generate fail on that call (e.g. mid-conversation outage).
type ScriptedProvider struct {
	mu               sync.Mutex
	Replies          []string // call N gets Replies[N-1], or the last entry when exhausted
	CallCount        int      // incremented on each Generate call
	ReceivedPrompts  []string
	ReceivedMessages [][]llm.Message
	ErrOnCall        int   // 1-based; 0 = never fail
	Err              error // error to return when ErrOnCall is hit
}

// Name returns "scripted".
func (p *ScriptedProvider) Name() string { return "scripted" }

// Generate returns the next reply in the sequence and records the request.
func (p *ScriptedProvider) Generate(_ context.Context, req *llm.Request) (*llm.Response, error) {
	p.mu.Lock()
	p.CallCount++
	callCount := p.CallCount
	p.ReceivedPrompts = append(p.ReceivedPrompts, req.Prompt)
	msgCopy := make([]llm.Message, len(req.Messages))
	copy(msgCopy, req.Messages)
	p.ReceivedMessages = append(p.ReceivedMessages, msgCopy)
	replies := p.Replies
	errOnCall := p.ErrOnCall
	errReturn := p.Err
	p.mu.Unlock()

	if errOnCall > 0 && callCount == errOnCall && errReturn != nil {
		return nil, errReturn
	}
	if len(replies) == 0 {
		return &llm.Response{
			Content:      "no replies configured",
			FinishReason: "stop",
			InputTokens:  10,
			OutputTokens: 20,
			Model:        req.Model,
		}, nil
	}
	idx := callCount - 1
	if idx >= len(replies) {
		idx = len(replies) - 1
	}
	return &llm.Response{
		Content:      replies[idx],
		FinishReason: "stop",
		InputTokens:  10,
		OutputTokens: 20,
		Model:        req.Model,
	}, nil
}

// EstimateCost returns a fixed cost for tests.
func (p *ScriptedProvider) EstimateCost(_ string, _, _ int) float64 { return 0.001 }
