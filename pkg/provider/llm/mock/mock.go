// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify that the orchestrator sends correct
// CompletionRequests and to feed controlled responses without a live LLM
// backend. All fields are safe to set before calling any method; mutating
// them during a concurrent call is the caller's responsibility.
//
// Example:
//
//	p := &mock.Provider{
//	    Script: []mock.Turn{
//	        {Response: &llm.CompletionResponse{Parts: []types.ContentPart{types.TextPart("Hello!")}}},
//	    },
//	}
//	resp, err := p.Complete(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/glimt/datascout/pkg/provider/llm"
	"github.com/glimt/datascout/pkg/types"
)

// Turn is one scripted completion outcome. Exactly one of Response or Err
// should be set; setting neither makes the turn return an empty response.
type Turn struct {
	// Response is returned from Complete for this turn when Err is nil.
	Response *llm.CompletionResponse

	// Err, if non-nil, is returned from Complete for this turn.
	Err error
}

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Req is the CompletionRequest passed to Complete.
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider.
//
// If Script is non-empty, successive Complete calls consume it in order;
// calls past the end of the script fall back to CompleteResponse/CompleteErr.
// With an empty script every call returns CompleteResponse, CompleteErr.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// Script is a sequence of per-call outcomes consumed in order.
	Script []Turn

	// CompleteResponse is returned by Complete when the script is exhausted
	// or empty. May be nil (returns an empty response).
	CompleteResponse *llm.CompletionResponse

	// CompleteErr, if non-nil, is returned by Complete when the script is
	// exhausted or empty.
	CompleteErr error

	// ModelCapabilities is returned by Capabilities.
	ModelCapabilities types.ModelCapabilities

	// --- Call records (read after test) ---

	// CompleteCalls records every invocation of Complete in order.
	CompleteCalls []CompleteCall

	// CapabilitiesCallCount is the number of times Capabilities was called.
	CapabilitiesCallCount int

	next int
}

// Complete records the call and returns the next scripted outcome.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Ctx: ctx, Req: req})

	if p.next < len(p.Script) {
		turn := p.Script[p.next]
		p.next++
		if turn.Err != nil {
			return nil, turn.Err
		}
		if turn.Response == nil {
			return &llm.CompletionResponse{}, nil
		}
		return turn.Response, nil
	}

	if p.CompleteErr != nil {
		return nil, p.CompleteErr
	}
	if p.CompleteResponse == nil {
		return &llm.CompletionResponse{}, nil
	}
	return p.CompleteResponse, nil
}

// Capabilities records the call and returns ModelCapabilities.
func (p *Provider) Capabilities() types.ModelCapabilities {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CapabilitiesCallCount++
	return p.ModelCapabilities
}

// Reset clears all recorded calls and rewinds the script. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompleteCalls = nil
	p.CapabilitiesCallCount = 0
	p.next = 0
}

// Ensure Provider implements llm.Provider at compile time.
var _ llm.Provider = (*Provider)(nil)
